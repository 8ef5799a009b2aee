// Package report reads the SALT "report by client" spreadsheet, turns its rows into per-client
// service counts and writes the spreadsheets the operators work from: the manual entry sheet
// and the sheet of clients that still have to be entered.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is the first worksheet of a workbook, addressed by header name.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ReadSheet reads the first worksheet of an xlsx file, the first row is the header and rows
// whose cells are all empty are dropped.
func ReadSheet(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no worksheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	s := &Sheet{Name: sheets[0]}
	if len(rows) == 0 {
		return s, nil
	}
	s.Header = make([]string, len(rows[0]))
	for i, name := range rows[0] {
		s.Header[i] = strings.TrimSpace(name)
	}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		// trailing empty cells are not returned
		padded := make([]string, max(len(row), len(s.Header)))
		copy(padded, row)
		s.Rows = append(s.Rows, padded)
	}
	return s, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Column returns the index of a header, or -1.
func (s *Sheet) Column(name string) int {
	for i, h := range s.Header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value of a row's column, or an empty string.
func (s *Sheet) Cell(row []string, column string) string {
	i := s.Column(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// WriteSheet writes the sheet as a single worksheet workbook. The workbook is written next to
// path and renamed over it, so readers see either the old or the new file.
func WriteSheet(path string, s *Sheet) error {
	return writeWorkbook(path, s.Name, func(f *excelize.File, name string) error {
		err := setRow(f, name, 1, s.Header)
		if err != nil {
			return err
		}
		for i, row := range s.Rows {
			err = setRow(f, name, i+2, row)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func setRow(f *excelize.File, sheet string, n int, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// sheet names are limited to 31 characters
func sheetName(name string) string {
	if name == "" {
		return "Sheet1"
	}
	if len(name) > 31 {
		return name[:31]
	}
	return name
}

func writeWorkbook(path, name string, fill func(f *excelize.File, name string) error) error {
	f := excelize.NewFile()
	defer f.Close()

	name = sheetName(name)
	err := f.SetSheetName(f.GetSheetName(0), name)
	if err != nil {
		return err
	}
	err = fill(f, name)
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	err = f.Write(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

package report

import (
	"github.com/xuri/excelize/v2"
)

var manualHeader = []string{COLUMN_HMIS_ID, COLUMN_CLIENT_NAME, "Services", COLUMN_DOB}

// WriteManualSheet writes the sheet operators use to enter clients by hand: one row per entry
// with its services spelled out and the birthdate already in HMIS order.
func WriteManualSheet(path, name string, entries []Entry) error {
	return writeWorkbook(path, name, func(f *excelize.File, sheet string) error {
		err := setRow(f, sheet, 1, manualHeader)
		if err != nil {
			return err
		}
		for i, e := range entries {
			err = setRow(f, sheet, i+2, []string{
				e.Query.ID,
				e.Name,
				e.Services.String(),
				e.Query.Birthdate,
			})
			if err != nil {
				return err
			}
		}

		wrap, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		})
		if err != nil {
			return err
		}
		err = f.SetColStyle(sheet, "A:D", wrap)
		if err != nil {
			return err
		}
		err = f.SetColWidth(sheet, "B", "C", 28)
		if err != nil {
			return err
		}
		return f.SetColWidth(sheet, "A", "A", 12)
	})
}

package report

import (
	"fmt"
	"sort"
)

// FailureSet is the set of report rows that have not been entered yet. It starts as the whole
// report and is written to disk on creation and after every removal, so an interrupted run
// leaves behind exactly the rows that still need to be entered.
type FailureSet struct {
	path   string
	name   string
	header []string
	rows   map[int][]string
}

// NewFailureSet creates a FailureSet holding every row of s and writes it to path.
func NewFailureSet(path string, s *Sheet) (*FailureSet, error) {
	fs := &FailureSet{
		path:   path,
		name:   s.Name,
		header: append([]string(nil), s.Header...),
		rows:   make(map[int][]string, len(s.Rows)),
	}
	for i, row := range s.Rows {
		fs.rows[i] = append([]string(nil), row...)
	}
	err := fs.checkpoint()
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// Remove drops a row and rewrites the file, removing a row that is not in the set only
// rewrites the file.
func (fs *FailureSet) Remove(row int) error {
	delete(fs.rows, row)
	return fs.checkpoint()
}

func (fs *FailureSet) Contains(row int) bool {
	_, ok := fs.rows[row]
	return ok
}

func (fs *FailureSet) Len() int {
	return len(fs.rows)
}

func (fs *FailureSet) Path() string {
	return fs.path
}

// Sheet returns the remaining rows in their original order.
func (fs *FailureSet) Sheet() *Sheet {
	keys := make([]int, 0, len(fs.rows))
	for k := range fs.rows {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	s := &Sheet{Name: fs.name, Header: fs.header}
	for _, k := range keys {
		s.Rows = append(s.Rows, fs.rows[k])
	}
	return s
}

func (fs *FailureSet) checkpoint() error {
	err := WriteSheet(fs.path, fs.Sheet())
	if err != nil {
		return fmt.Errorf("checkpoint remaining entries: %w", err)
	}
	return nil
}

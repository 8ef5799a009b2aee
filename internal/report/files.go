package report

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"hmis-autoentry/internal/outreach"
)

// DateLayout is the date format used in report file names and on the command line.
const DateLayout = "01-02-2006"

// ReportFileName is the name of the report by client downloaded from SALT for a day.
func ReportFileName(day time.Time) string {
	return fmt.Sprintf("Report_by_client_%s.xlsx", day.Format(DateLayout))
}

// FailureFileName is the name of the sheet of clients still to be entered for a day.
func FailureFileName(loc outreach.Location, day time.Time) string {
	return fmt.Sprintf("%s_Failed_entries_%s.xlsx", loc, day.Format(DateLayout))
}

// ManualSheetName is the worksheet name of the manual entry sheet, like "14 Mar 2024".
func ManualSheetName(day time.Time) string {
	return day.Format("02 Jan 2006")
}

// ManualFileName is the name of the manual entry sheet for a day.
func ManualFileName(loc outreach.Location, day time.Time) string {
	return fmt.Sprintf("%s %s.xlsx", loc, ManualSheetName(day))
}

var fileDate = regexp.MustCompile(`[0-9]{2}-[0-9]{2}-[0-9]{4}`)

// DateFromFileName reads the MM-DD-YYYY date out of a report or failure sheet file name.
func DateFromFileName(path string) (time.Time, error) {
	match := fileDate.FindString(filepath.Base(path))
	if match == "" {
		return time.Time{}, fmt.Errorf("%s does not contain a MM-DD-YYYY date", filepath.Base(path))
	}
	return time.Parse(DateLayout, match)
}

// ServiceDate formats a day as the MMDDYYYY service date HMIS forms take.
func ServiceDate(day time.Time) string {
	return day.Format("01022006")
}

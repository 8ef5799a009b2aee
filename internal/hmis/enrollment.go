package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/outreach"
)

const report_enrollment_find = "enrollment.find-best"

// statusExited is the status group header every enrollment below which has ended.
const statusExited = "Exited"

// EnrollmentRow is a row of an enrollment list, either a status group header or an enrollment.
type EnrollmentRow struct {
	Header bool
	// Status is the group name of a header row.
	Status string
	// Name is the program name of an enrollment row.
	Name string
}

// BestEnrollment returns the index of the enrollment whose name contains the most preferred
// program, scanning stops at the "Exited" header so ended enrollments are never chosen.
func BestEnrollment(rows []EnrollmentRow, prefs outreach.EnrollmentPreference) (int, bool) {
	best := -1
	bestRank := len(prefs)
	for i, row := range rows {
		if row.Header {
			if row.Status == statusExited {
				break
			}
			continue
		}
		rank := prefs.Rank(row.Name)
		if rank >= 0 && rank < bestRank {
			best = i
			bestRank = rank
		}
	}
	return best, best >= 0
}

// FindBestEnrollment returns the row of the best live enrollment in the dashboard's
// enrollment table.
func (d *Driver) FindBestEnrollment(ctx context.Context, prefs outreach.EnrollmentPreference) (browser.Element, error) {
	err := d.tab(ctx, "client dashboard")
	if err != nil {
		return nil, err
	}
	elements, err := d.wait.Elements(ctx, d.session, rowsDashboardEnr)
	if err != nil {
		return nil, err
	}

	rows := make([]EnrollmentRow, len(elements))
	for i, el := range elements {
		class, err := el.Attribute(ctx, "class")
		if err != nil {
			return nil, err
		}
		if class == "gbHead" {
			label, err := browser.FindIn(ctx, el, linkGroupHeader, 0)
			if err != nil {
				return nil, err
			}
			status, err := label.Attribute(ctx, "data-value")
			if err != nil {
				return nil, err
			}
			rows[i] = EnrollmentRow{Header: true, Status: status}
			continue
		}
		name, err := textOf(ctx, el, cellEnrollment)
		if err != nil {
			return nil, err
		}
		rows[i] = EnrollmentRow{Name: name}
	}

	idx, ok := BestEnrollment(rows, prefs)
	if !ok {
		d.tel.ReportDebug(report_enrollment_find, "no live enrollment", prefs)
		return nil, fmt.Errorf("no live enrollment matches %v: %w", []string(prefs), browser.ErrNotFound)
	}
	return elements[idx], nil
}

// selectEnrollmentOption picks the best enrollment in the add service form's enrollment
// dropdown, it returns false when the client has no matching enrollment.
func (d *Driver) selectEnrollmentOption(ctx context.Context, prefs outreach.EnrollmentPreference) (bool, error) {
	dropdown, err := d.wait.Element(ctx, d.session, dropdownEnrollment)
	if err != nil {
		return false, err
	}
	options, err := dropdown.Options(ctx)
	if err != nil {
		return false, err
	}
	rows := make([]EnrollmentRow, len(options))
	for i, o := range options {
		rows[i] = EnrollmentRow{Name: o.Text}
	}
	idx, ok := BestEnrollment(rows, prefs)
	if !ok {
		return false, nil
	}
	err = d.choose(ctx, dropdown, options[idx].Value)
	if err != nil {
		return false, err
	}
	return true, nil
}

package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/outreach"
)

const report_engagement = "engagement.update"

// UpdateDateOfEngagement sets the date of engagement of the client's best live enrollment to
// serviceDate. The dashboard of the client must be loaded, and the enrollment must already
// have an assessment since HMIS refuses the update otherwise.
func (d *Driver) UpdateDateOfEngagement(ctx context.Context, prefs outreach.EnrollmentPreference, serviceDate string) error {
	err := d.ready(ctx, "client dashboard")
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "dashboard", err)
	}
	row, err := d.FindBestEnrollment(ctx, prefs)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "enrollment", err)
	}

	err = d.openEditEnrollment(ctx, row)
	if err != nil {
		d.tel.ReportWarning(report_engagement, err)
		return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "action-menu", err)
	}

	err = d.tab(ctx, "edit enrollment")
	if err == nil {
		_, err = d.wait.Elements(ctx, d.session, fieldsEngagementDates)
	}
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "edit-enrollment", err)
	}

	formFields, err := d.session.FindAll(ctx, fieldsEngagementForm)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "edit-enrollment", err)
	}
	assessed := ""
	if len(formFields) > 3 {
		assessed, err = formFields[3].Value(ctx)
		if err != nil {
			return fail(KIND_NOT_FOUND, OP_UPDATE_ENGAGEMENT, "edit-enrollment", err)
		}
	}
	if assessed == "" {
		return fail(
			KIND_WORKFLOW_ABORTED, OP_UPDATE_ENGAGEMENT, "assessment",
			fmt.Errorf("enrollment has no assessment yet"),
		)
	}

	err = d.fillEngagementDate(ctx, serviceDate)
	if err != nil {
		d.tel.ReportWarning(report_engagement, err)
		return fail(KIND_WORKFLOW_ABORTED, OP_UPDATE_ENGAGEMENT, "household", err)
	}
	return nil
}

func (d *Driver) openEditEnrollment(ctx context.Context, row browser.Element) error {
	menu, err := browser.FindIn(ctx, row, buttonActionMenu, 0)
	if err != nil {
		return err
	}
	err = menu.ScrollIntoView(ctx)
	if err != nil {
		return err
	}
	err = d.wait.Pause(ctx)
	if err != nil {
		return err
	}
	err = menu.Click(ctx)
	if err != nil {
		return err
	}
	_, err = d.wait.Element(ctx, d.session, menuAction)
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, linkEditEnroll)
}

// fillEngagementDate sets the engagement date on the household row of the client themselves,
// the last such row wins.
func (d *Driver) fillEngagementDate(ctx context.Context, serviceDate string) error {
	rows, err := d.session.FindAll(ctx, rowsHousehold)
	if err != nil {
		return err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		relationship, err := browser.FindIn(ctx, rows[i], dropdownRowRelation, 0)
		if err != nil {
			return err
		}
		text, err := relationship.SelectedText(ctx)
		if err != nil {
			return err
		}
		if text != "Self" {
			continue
		}

		field, err := browser.FindIn(ctx, rows[i], fieldsRowInputs, 5)
		if err != nil {
			return fmt.Errorf("date of engagement: %w", err)
		}
		err = field.ScrollIntoView(ctx)
		if err != nil {
			return err
		}
		err = d.fill(ctx, field, serviceDate)
		if err != nil {
			return err
		}
		return d.click(ctx, d.wait, buttonSave)
	}
	return fmt.Errorf("no household member is self: %w", browser.ErrNotFound)
}

package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/similarity"
	"strings"
)

const (
	report_intake_stage  = "intake.stage"
	report_intake_cancel = "intake.cancel"
)

// intake workflow stages, in order
const (
	STAGE_NEW_ENROLLMENT           = "new-enrollment"
	STAGE_BASIC_CLIENT_INFO        = "basic-client-info"
	STAGE_FAMILY_MEMBERS           = "family-members"
	STAGE_PROGRAM_ENROLLMENT       = "program-enrollment"
	STAGE_UNIVERSAL_DATA           = "universal-data"
	STAGE_INSURANCE_STATUS         = "insurance-status"
	STAGE_BARRIER                  = "barrier"
	STAGE_DOMESTIC_VIOLENCE        = "domestic-violence"
	STAGE_INCOME                   = "income"
	STAGE_CURRENT_LIVING_SITUATION = "current-living-situation"
	STAGE_TRANSLATION_ASSISTANCE   = "translation-assistance"
	STAGE_FINISH                   = "finish"
)

type stage struct {
	name string
	run  func(ctx context.Context, serviceDate string) error
}

func (d *Driver) stages() []stage {
	return []stage{
		{STAGE_NEW_ENROLLMENT, d.newEnrollment},
		{STAGE_BASIC_CLIENT_INFO, d.basicClientInfo},
		{STAGE_FAMILY_MEMBERS, d.familyMembers},
		{STAGE_PROGRAM_ENROLLMENT, d.programEnrollment},
		{STAGE_UNIVERSAL_DATA, d.universalData},
		{STAGE_INSURANCE_STATUS, d.insuranceStatus},
		{STAGE_BARRIER, d.barrier},
		{STAGE_DOMESTIC_VIOLENCE, d.domesticViolence},
		{STAGE_INCOME, d.income},
		{STAGE_CURRENT_LIVING_SITUATION, d.currentLivingSituation},
		{STAGE_TRANSLATION_ASSISTANCE, d.translationAssistance},
		{STAGE_FINISH, d.finish},
	}
}

// Enroll enrolls the client on the dashboard into the location's program, filling in every
// required assessment, serviceDate (MMDDYYYY) is used as the project start and assessment
// date.
//
// On failure the workflow is left open, callers recover with CancelIntake.
func (d *Driver) Enroll(ctx context.Context, serviceDate string) error {
	for _, s := range d.stages() {
		err := s.run(ctx, serviceDate)
		if err != nil {
			d.tel.ReportWarning(report_intake_stage, s.name, err)
			return fail(KIND_WORKFLOW_ABORTED, OP_ENROLL, s.name, err)
		}
		d.tel.ReportDebug(report_intake_stage, s.name, "done")
	}
	return nil
}

func (d *Driver) newEnrollment(ctx context.Context, _ string) error {
	err := d.openEnrollmentList(ctx)
	if err != nil {
		return err
	}
	err = d.tab(ctx, "enrollments")
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonNewEnrollment)
}

func (d *Driver) basicClientInfo(ctx context.Context, _ string) error {
	err := d.ready(ctx, "intake basic client info")
	if err != nil {
		return err
	}

	// veteran status is a recently added required field, older profiles leave it unset and
	// some intake layouts do not have it at all
	veteran, err := d.wait.Element(ctx, d.session, dropdownVeteran)
	if err == nil {
		empty, err := dropdownEmpty(ctx, veteran)
		if err == nil && empty {
			err = d.choose(ctx, veteran, optionDataNotCollected)
		}
		if err != nil {
			return fmt.Errorf("veteran status: %w", err)
		}
	}

	return d.click(ctx, d.wait, buttonSave)
}

func (d *Driver) familyMembers(ctx context.Context, _ string) error {
	err := d.tab(ctx, "intake family members")
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonSaveAndClose)
}

func (d *Driver) programEnrollment(ctx context.Context, serviceDate string) error {
	err := d.tab(ctx, "intake program enrollment")
	if err != nil {
		return err
	}

	project, err := d.wait.Element(ctx, d.session, dropdownProject)
	if err != nil {
		return err
	}
	err = d.choose(ctx, project, d.projectOption())
	if err != nil {
		return fmt.Errorf("program %s: %w", d.projectOption(), err)
	}

	_, err = d.wait.Element(ctx, d.session, dropdownsHousehold)
	if err != nil {
		return fmt.Errorf("household: %w", err)
	}
	rows, err := d.session.FindAll(ctx, rowsHousehold)
	if err != nil {
		return err
	}

	var projectDate browser.Element
	if len(rows) < 2 {
		fields, err := d.session.FindAll(ctx, fieldsHouseholdDates)
		if err != nil {
			return err
		}
		if len(fields) < 3 {
			return fmt.Errorf("project start date: %w", browser.ErrNotFound)
		}
		projectDate = fields[2]
		err = projectDate.ScrollIntoView(ctx)
		if err != nil {
			return err
		}
	} else {
		row, err := d.householdSelf(ctx, rows)
		if err != nil {
			return err
		}
		self, err := browser.FindIn(ctx, row, optionSelf, 0)
		if err != nil {
			return fmt.Errorf("relationship self: %w", err)
		}
		err = self.Click(ctx)
		if err != nil {
			return err
		}
		projectDate, err = browser.FindIn(ctx, row, fieldsRowDates, 2)
		if err != nil {
			return fmt.Errorf("project start date: %w", err)
		}
	}

	err = d.wait.Pause(ctx)
	if err != nil {
		return err
	}
	err = d.fill(ctx, projectDate, serviceDate)
	if err != nil {
		return fmt.Errorf("project start date: %w", err)
	}
	return d.click(ctx, d.wait, buttonSave)
}

// householdSelf returns the household member row that best matches the loaded client's name.
func (d *Driver) householdSelf(ctx context.Context, rows []browser.Element) (browser.Element, error) {
	err := d.top(ctx)
	if err != nil {
		return nil, err
	}
	label, err := d.wait.Element(ctx, d.session, labelClientName)
	if err != nil {
		return nil, fmt.Errorf("client name: %w", err)
	}
	text, err := label.Text(ctx)
	if err != nil {
		return nil, err
	}
	clientName := householdName(text)

	err = d.session.SetFocus(ctx, browser.Frame(frameTab))
	if err != nil {
		return nil, err
	}

	best := rows[0]
	bestScore := 0.0
	for _, row := range rows {
		name, err := textOf(ctx, row, cellHouseholdName)
		if err != nil {
			return nil, err
		}
		score := similarity.Ratio(name, clientName)
		if score > bestScore {
			best = row
			bestScore = score
		}
	}
	return best, nil
}

// householdName turns the header's "First Last" into the household table's "Last, First".
func householdName(display string) string {
	parts := strings.Fields(display)
	if len(parts) < 2 {
		return strings.TrimSpace(display)
	}
	return parts[1] + ", " + parts[0]
}

func (d *Driver) finish(ctx context.Context, _ string) error {
	err := d.ready(ctx, "finish page")
	if err != nil {
		return err
	}
	return d.click(ctx, d.wait, buttonFinish)
}

// CancelIntake abandons an open intake workflow and returns to the find client page, leaving
// the session ready for the next client.
func (d *Driver) CancelIntake(ctx context.Context) error {
	err := d.ready(ctx, "intake")
	if err == nil {
		err = d.top(ctx)
	}
	if err == nil {
		err = d.click(ctx, d.wait, buttonCancelWorkflow)
	}
	if err != nil {
		d.tel.ReportWarning(report_intake_cancel, err)
		return fail(KIND_NOT_FOUND, OP_CANCEL_INTAKE, "cancel", err)
	}

	// the dialog iframe's id changes every time a dialog is opened
	dialog := fmt.Sprintf("%s%d", frameDialogPrefix, d.dialogCounter)
	d.dialogCounter++

	err = d.wait.Focus(ctx, d.session, browser.Frame(dialog))
	if err == nil {
		err = d.click(ctx, d.wait, buttonDialogYes)
	}
	if err != nil {
		d.tel.ReportWarning(report_intake_cancel, dialog, err)
		return fail(KIND_NOT_FOUND, OP_CANCEL_INTAKE, "confirm", err)
	}

	err = d.top(ctx)
	if err == nil {
		err = d.ready(ctx, "client dashboard")
	}
	if err == nil {
		err = d.NavigateToFindClient(ctx)
	}
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_CANCEL_INTAKE, "return", err)
	}
	return nil
}

package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"hmis-autoentry/internal/outreach"
	"strconv"
)

const (
	report_services_line   = "services.line"
	report_services_ledger = "services.ledger"
	report_services_enroll = "services.enroll"
)

// ServiceRequest is everything needed to record a client's services for one day.
type ServiceRequest struct {
	Client      outreach.ClientQuery
	Preferences outreach.EnrollmentPreference
	// ServiceDate is MMDDYYYY.
	ServiceDate string
	Lines       outreach.ServiceSet
}

// EnterServices records every service line against the best enrollment of the client on the
// dashboard. A client without a matching enrollment is enrolled once, after which entry
// resumes according to the driver's RetryPolicy. Lines saved before a failure stay saved.
func (d *Driver) EnterServices(ctx context.Context, req ServiceRequest) error {
	if len(req.Lines) == 0 {
		return nil
	}

	err := d.openServices(ctx)
	if err != nil {
		return fail(KIND_NOT_FOUND, OP_ENTER_SERVICES, "services", err)
	}

	client := req.Client.Key()
	saved := 0
	enrolled := false
	lineFailure := func(line outreach.ServiceLine, step string, err error) error {
		kind := KIND_NOT_FOUND
		if saved > 0 {
			kind = KIND_PARTIAL_SUCCESS
		}
		d.tel.ReportWarning(report_services_line, client, line.Code.String(), step, err)
		return fail(kind, OP_ENTER_SERVICES, line.Code.String()+": "+step, err)
	}

	for cursor := 0; cursor < len(req.Lines); {
		line := req.Lines[cursor]

		if d.opts.Policy == RETRY_DEDUP {
			done, err := d.ledger.Saved(ctx, client, line.Code, req.ServiceDate)
			if err != nil {
				d.tel.ReportWarning(report_services_ledger, client, err)
			}
			if done {
				d.tel.ReportDebug(report_services_line, client, line.Code.String(), "already saved")
				cursor++
				continue
			}
		}

		err := d.openAddService(ctx)
		if err != nil {
			return lineFailure(line, "add-service", err)
		}

		found, err := d.selectEnrollmentOption(ctx, req.Preferences)
		if err != nil {
			return lineFailure(line, "enrollment", err)
		}
		if !found {
			if enrolled {
				return lineFailure(line, "enrollment", fmt.Errorf(
					"no enrollment matching %v after enrolling: %w",
					[]string(req.Preferences), browser.ErrNotFound,
				))
			}
			err = d.enrollForServices(ctx, req.ServiceDate)
			if err != nil {
				return err
			}
			enrolled = true

			err = d.openServices(ctx)
			if err != nil {
				return lineFailure(line, "services", err)
			}
			if d.opts.Policy == RETRY_RESUBMIT {
				cursor = 0
			}
			continue
		}

		err = d.saveLine(ctx, line, req.ServiceDate)
		if err != nil {
			return lineFailure(line, "save", err)
		}
		saved++
		err = d.ledger.Record(ctx, client, line, req.ServiceDate)
		if err != nil {
			d.tel.ReportWarning(report_services_ledger, client, err)
		}
		cursor++
	}
	return nil
}

func (d *Driver) openServices(ctx context.Context) error {
	err := d.NavigateToDashboard(ctx)
	if err != nil {
		return err
	}
	return d.openServiceList(ctx)
}

// enrollForServices enrolls the client, cancelling the intake workflow when it fails.
func (d *Driver) enrollForServices(ctx context.Context, serviceDate string) error {
	d.tel.ReportDebug(report_services_enroll, "client is not enrolled, enrolling")

	err := d.NavigateToDashboard(ctx)
	if err != nil {
		return fail(KIND_WORKFLOW_ABORTED, OP_ENROLL, "dashboard", err)
	}
	err = d.Enroll(ctx, serviceDate)
	if err == nil {
		return nil
	}

	cancelErr := d.CancelIntake(ctx)
	if cancelErr != nil {
		d.tel.ReportBroken(report_services_enroll, "intake could not be cancelled", cancelErr)
	}
	return err
}

func (d *Driver) openAddService(ctx context.Context) error {
	err := d.tab(ctx, "services")
	if err != nil {
		return err
	}
	// an empty service history renders without a result set
	_, err = d.wait.Element(ctx, d.session, resultSet)
	if err != nil {
		d.tel.ReportDebug(report_services_line, "service list has no result set", err)
	}
	err = d.click(ctx, d.wait, buttonAddService)
	if err != nil {
		return err
	}
	return d.ready(ctx, "add service")
}

func (d *Driver) saveLine(ctx context.Context, line outreach.ServiceLine, serviceDate string) error {
	option, ok := serviceOptions[line.Code]
	if !ok {
		return fmt.Errorf("no service option for %s", line.Code)
	}
	if line.Count <= 0 {
		return fmt.Errorf("%s has non-positive count %d", line.Code, line.Count)
	}

	dropdown, err := d.wait.Element(ctx, d.session, dropdownService)
	if err != nil {
		return err
	}
	err = d.choose(ctx, dropdown, option)
	if err != nil {
		return fmt.Errorf("service %s: %w", option, err)
	}
	err = d.fillSelector(ctx, fieldUnits, strconv.Itoa(line.Count))
	if err != nil {
		return fmt.Errorf("units: %w", err)
	}
	err = d.fillSelector(ctx, fieldServiceDate, serviceDate)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	err = d.click(ctx, d.wait, buttonSave)
	if err != nil {
		return err
	}
	return d.wait.Pause(ctx)
}

package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
)

const (
	report_login    = "driver.login"
	report_navigate = "driver.navigate"
)

// Login opens the login page and signs in, it succeeds once the sidebar is available.
func (d *Driver) Login(ctx context.Context) error {
	err := d.session.Navigate(ctx, d.opts.LoginURL)
	if err != nil {
		d.tel.ReportBroken(report_login, err)
		return fail(KIND_NOT_FOUND, OP_LOGIN, "open", err)
	}

	username, err := d.longWait.Element(ctx, d.session, fieldUsername)
	if err != nil {
		d.tel.ReportBroken(report_login, err)
		return fail(KIND_NOT_FOUND, OP_LOGIN, "form", err)
	}
	password, err := d.wait.Element(ctx, d.session, fieldPassword)
	if err != nil {
		d.tel.ReportBroken(report_login, err)
		return fail(KIND_NOT_FOUND, OP_LOGIN, "form", err)
	}
	err = username.Type(ctx, d.opts.Username)
	if err == nil {
		err = password.Type(ctx, d.opts.Password)
	}
	if err == nil {
		err = password.Submit(ctx)
	}
	if err != nil {
		d.tel.ReportBroken(report_login, err)
		return fail(KIND_NOT_FOUND, OP_LOGIN, "submit", err)
	}

	_, err = d.longWait.Element(ctx, d.session, navClients)
	if err != nil {
		d.tel.ReportBroken(report_login, "sidebar never appeared, check the credentials", err)
		return fail(KIND_NOT_FOUND, OP_LOGIN, "dashboard", err)
	}
	return nil
}

// NavigateToDashboard opens the loaded client's dashboard from any page.
func (d *Driver) NavigateToDashboard(ctx context.Context) error {
	err := d.navigate(ctx, navClients, navDashboard)
	if err != nil {
		d.tel.ReportWarning(report_navigate, "dashboard", err)
		return fail(KIND_NOT_FOUND, OP_NAVIGATE, "dashboard", err)
	}
	return nil
}

// NavigateToFindClient opens the client search page from any page.
func (d *Driver) NavigateToFindClient(ctx context.Context) error {
	err := d.navigate(ctx, navClients, navDashboard)
	if err == nil {
		// the sidebar entry only works once the dashboard frame exists
		err = d.longWait.Focus(ctx, d.session, browser.Frame(frameTab))
	}
	if err == nil {
		err = d.navigate(ctx, navFindClient)
	}
	if err != nil {
		d.tel.ReportWarning(report_navigate, "find client", err)
		return fail(KIND_NOT_FOUND, OP_NAVIGATE, "find-client", err)
	}
	return nil
}

// navigate clicks sidebar entries in order.
func (d *Driver) navigate(ctx context.Context, entries ...browser.Selector) error {
	err := d.top(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		err = d.click(ctx, d.longWait, entry)
		if err != nil {
			return fmt.Errorf("sidebar %s: %w", entry, err)
		}
	}
	return nil
}

// openFromDashboard clicks one of the dashboard's section links.
func (d *Driver) openFromDashboard(ctx context.Context, link browser.Selector, page string) error {
	err := d.ready(ctx, "client dashboard")
	if err != nil {
		return err
	}
	err = d.tab(ctx, "client dashboard")
	if err != nil {
		return err
	}
	err = d.click(ctx, d.wait, link)
	if err != nil {
		return fmt.Errorf("open %s: %w", page, err)
	}
	return nil
}

func (d *Driver) openServiceList(ctx context.Context) error {
	return d.openFromDashboard(ctx, linkServices, "services")
}

func (d *Driver) openEnrollmentList(ctx context.Context) error {
	return d.openFromDashboard(ctx, linkEnrollments, "enrollments")
}

package hmis

import (
	"context"
	"fmt"
	"hmis-autoentry/internal/browser"
	"strings"
)

const (
	report_ui_ready   = "ui.ready"
	report_ui_default = "ui.default-from-last"
)

// top focuses the top level document.
func (d *Driver) top(ctx context.Context) error {
	return d.session.SetFocus(ctx, browser.Top())
}

// tab focuses the page iframe and waits for it to finish loading.
func (d *Driver) tab(ctx context.Context, page string) error {
	err := d.wait.Focus(ctx, d.session, browser.Frame(frameTab))
	if err != nil {
		return fmt.Errorf("focus %s: %w", page, err)
	}
	return d.ready(ctx, page)
}

func (d *Driver) ready(ctx context.Context, page string) error {
	err := d.wait.Ready(ctx, d.session)
	if err != nil {
		d.tel.ReportDebug(report_ui_ready, page, err)
		return fmt.Errorf("%s did not load: %w", page, err)
	}
	return nil
}

func (d *Driver) click(ctx context.Context, w browser.Waiter, sel browser.Selector) error {
	el, err := w.Element(ctx, d.session, sel)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// fill replaces the value of an input, pausing between keystroke groups since the HMIS date
// masks drop input that arrives too quickly.
func (d *Driver) fill(ctx context.Context, el browser.Element, value string) error {
	err := el.Click(ctx)
	if err != nil {
		return err
	}
	err = el.Clear(ctx)
	if err != nil {
		return err
	}
	err = d.wait.Pause(ctx)
	if err != nil {
		return err
	}
	err = el.Type(ctx, value)
	if err != nil {
		return err
	}
	return d.wait.Pause(ctx)
}

func (d *Driver) fillSelector(ctx context.Context, sel browser.Selector, value string) error {
	el, err := d.wait.Element(ctx, d.session, sel)
	if err != nil {
		return err
	}
	return d.fill(ctx, el, value)
}

func dropdownEmpty(ctx context.Context, el browser.Element) (bool, error) {
	text, err := el.SelectedText(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(text, emptyOptionMarker), nil
}

// choose selects an option and pauses.
func (d *Driver) choose(ctx context.Context, el browser.Element, value string) error {
	err := el.SelectValue(ctx, value)
	if err != nil {
		return err
	}
	return d.wait.Pause(ctx)
}

// chooseIfEmpty selects an option only when the dropdown is still on its placeholder.
func (d *Driver) chooseIfEmpty(ctx context.Context, sel browser.Selector, value string) error {
	el, err := d.wait.Element(ctx, d.session, sel)
	if err != nil {
		return err
	}
	empty, err := dropdownEmpty(ctx, el)
	if err != nil {
		return fmt.Errorf("read %s: %w", sel, err)
	}
	if !empty {
		return nil
	}
	err = d.choose(ctx, el, value)
	if err != nil {
		return fmt.Errorf("select %s in %s: %w", value, sel, err)
	}
	return nil
}

// defaultFromLast clicks an assessment's "default from last assessment" control, the control
// only exists when the client has a previous assessment so its absence is not a failure.
func (d *Driver) defaultFromLast(ctx context.Context, sel browser.Selector, page string) error {
	el, err := d.wait.Element(ctx, d.session, sel)
	if err != nil {
		d.tel.ReportDebug(report_ui_default, page, "no previous assessment")
		return nil
	}
	err = el.Click(ctx)
	if err != nil {
		return fmt.Errorf("default %s from last assessment: %w", page, err)
	}
	return d.ready(ctx, page)
}

func textOf(ctx context.Context, parent browser.Element, sel browser.Selector) (string, error) {
	el, err := browser.FindIn(ctx, parent, sel, 0)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

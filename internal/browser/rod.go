package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"hmis-autoentry/internal/components/assert"
	"hmis-autoentry/internal/components/telemetry"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	report_rod_launch = "rod.launch"
	report_rod_focus  = "rod.focus"
)

// Options configures how Chrome is started.
type Options struct {
	// ControlURL connects to an already running Chrome instead of launching one.
	ControlURL string `json:"control_url"`
	// Bin is the Chrome binary, empty means the launcher downloads or finds one.
	Bin      string `json:"bin"`
	Headless bool   `json:"headless"`
	// KeepOpen leaves the browser running after the session closes, useful to inspect a
	// failed client by hand.
	KeepOpen bool `json:"keep_open"`
}

// RodSession implements Session on a Chrome tab driven over the devtools protocol.
type RodSession struct {
	browser  *rod.Browser
	page     *rod.Page
	focused  *rod.Page
	focus    Focus
	keepOpen bool

	tel telemetry.API
}

// Launch starts (or connects to) Chrome and opens a blank tab.
func Launch(ctx context.Context, opts Options, tel telemetry.API) (*RodSession, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("browser", tel)

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		if opts.KeepOpen {
			l = l.Leakless(false)
		}
		url, err := l.Launch()
		if err != nil {
			tel.ReportBroken(report_rod_launch, err)
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	err := browser.Connect()
	if err != nil {
		tel.ReportBroken(report_rod_launch, err)
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &RodSession{
		browser:  browser,
		page:     page,
		focused:  page,
		keepOpen: opts.KeepOpen,
		tel:      tel,
	}, nil
}

func (s *RodSession) Navigate(ctx context.Context, url string) error {
	s.focused = s.page
	s.focus = Top()
	err := s.page.Context(ctx).Navigate(url)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *RodSession) Focus() Focus {
	return s.focus
}

func (s *RodSession) SetFocus(ctx context.Context, focus Focus) error {
	current := s.page
	for i, id := range focus.Frames {
		sel := ID(id)
		frames, err := current.Context(ctx).Elements(sel.Expr())
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return &LookupError{Selector: sel, Focus: Frame(focus.Frames[:i]...), Err: ErrNotFound}
		}
		next, err := frames[0].Frame()
		if err != nil {
			s.tel.ReportDebug(report_rod_focus, id, err)
			return &LookupError{Selector: sel, Focus: Frame(focus.Frames[:i]...), Err: err}
		}
		current = next
	}
	s.focused = current
	s.focus = focus
	return nil
}

func (s *RodSession) Ready(ctx context.Context) (bool, error) {
	res, err := s.focused.Context(ctx).Eval(`() => document.readyState`)
	if err != nil {
		return false, err
	}
	return res.Value.Str() == "complete", nil
}

func (s *RodSession) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	page := s.focused.Context(ctx)
	var (
		found rod.Elements
		err   error
	)
	if sel.IsXPath() {
		found, err = page.ElementsX(sel.Expr())
	} else {
		found, err = page.Elements(sel.Expr())
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(found), nil
}

func (s *RodSession) Close() error {
	if s.keepOpen {
		return nil
	}
	return s.browser.Close()
}

func wrapElements(found rod.Elements) []Element {
	out := make([]Element, len(found))
	for i, el := range found {
		out[i] = rodElement{el: el}
	}
	return out
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e rodElement) Type(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e rodElement) Clear(ctx context.Context) error {
	el := e.el.Context(ctx)
	err := el.SelectAllText()
	if err != nil {
		return err
	}
	return el.Input("")
}

func (e rodElement) Submit(ctx context.Context) error {
	return e.el.Context(ctx).Type(input.Enter)
}

func (e rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e rodElement) Attribute(ctx context.Context, name string) (string, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (e rodElement) Value(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.value ?? ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e rodElement) Checked(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`() => !!this.checked`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e rodElement) Options(ctx context.Context) ([]Option, error) {
	res, err := e.el.Context(ctx).Eval(`() => JSON.stringify(Array.from(this.options || []).map(o => ({
		value: o.value,
		text: o.text,
		selected: o.selected,
	})))`)
	if err != nil {
		return nil, err
	}
	var options []Option
	err = json.Unmarshal([]byte(res.Value.Str()), &options)
	if err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return options, nil
}

func (e rodElement) SelectedText(ctx context.Context) (string, error) {
	options, err := e.Options(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range options {
		if o.Selected {
			return o.Text, nil
		}
	}
	if len(options) > 0 {
		return options[0].Text, nil
	}
	return "", &LookupError{Selector: CSS("option"), Err: ErrNotFound}
}

func (e rodElement) SelectValue(ctx context.Context, value string) error {
	res, err := e.el.Context(ctx).Eval(`(value) => {
		const option = Array.from(this.options || []).find(o => o.value === value)
		if (!option) {
			return false
		}
		this.value = value
		this.dispatchEvent(new Event("input", { bubbles: true }))
		this.dispatchEvent(new Event("change", { bubbles: true }))
		return true
	}`, value)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return &LookupError{
			Selector: CSS(`option[value="` + value + `"]`),
			Err:      ErrNotFound,
		}
	}
	return nil
}

func (e rodElement) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	el := e.el.Context(ctx)
	var (
		found rod.Elements
		err   error
	)
	if sel.IsXPath() {
		found, err = el.ElementsX(sel.Expr())
	} else {
		found, err = el.Elements(sel.Expr())
	}
	if err != nil {
		return nil, err
	}
	return wrapElements(found), nil
}

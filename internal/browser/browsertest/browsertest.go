// Package browsertest provides an in-memory browser.Session whose documents are populated by
// tests, elements are keyed by the exact selector the code under test looks them up with.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hmis-autoentry/internal/browser"
)

// Doc is a document (top level or iframe).
type Doc struct {
	Loading  bool
	elements map[string][]*Element
}

func newDoc() *Doc {
	return &Doc{elements: map[string][]*Element{}}
}

// Set replaces every element matching sel.
func (d *Doc) Set(sel browser.Selector, elements ...*Element) *Doc {
	d.elements[sel.String()] = elements
	return d
}

// Remove removes every element matching sel.
func (d *Doc) Remove(sel browser.Selector) *Doc {
	delete(d.elements, sel.String())
	return d
}

// Get returns the first element matching sel, or nil.
func (d *Doc) Get(sel browser.Selector) *Element {
	els := d.elements[sel.String()]
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// All returns every element matching sel.
func (d *Doc) All(sel browser.Selector) []*Element {
	return d.elements[sel.String()]
}

// Session implements browser.Session.
type Session struct {
	docs  map[string]*Doc
	focus browser.Focus

	Navigations []string
	// Trace is every interaction in order, formatted as "<action> <element name>".
	Trace  []string
	Closed bool
}

func NewSession() *Session {
	return &Session{docs: map[string]*Doc{"": newDoc()}}
}

func frameKey(f browser.Focus) string {
	return strings.Join(f.Frames, "/")
}

// Doc returns the document of a frame chain, creating it if needed. A frame exists (can be
// focused) once its document has been created.
func (s *Session) Doc(frames ...string) *Doc {
	key := strings.Join(frames, "/")
	d, ok := s.docs[key]
	if !ok {
		d = newDoc()
		s.docs[key] = d
	}
	return d
}

// DropFrame removes a frame's document.
func (s *Session) DropFrame(frames ...string) {
	delete(s.docs, strings.Join(frames, "/"))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.Navigations = append(s.Navigations, url)
	s.focus = browser.Top()
	return nil
}

func (s *Session) Focus() browser.Focus {
	return s.focus
}

func (s *Session) SetFocus(ctx context.Context, focus browser.Focus) error {
	if _, ok := s.docs[frameKey(focus)]; !ok {
		id := ""
		if len(focus.Frames) > 0 {
			id = focus.Frames[len(focus.Frames)-1]
		}
		return &browser.LookupError{Selector: browser.ID(id), Focus: s.focus, Err: browser.ErrNotFound}
	}
	s.focus = focus
	return nil
}

func (s *Session) current() *Doc {
	d, ok := s.docs[frameKey(s.focus)]
	if !ok {
		return newDoc()
	}
	return d
}

func (s *Session) Ready(ctx context.Context) (bool, error) {
	return !s.current().Loading, nil
}

func (s *Session) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	return s.wrap(s.current().elements[sel.String()]), nil
}

func (s *Session) Close() error {
	s.Closed = true
	return nil
}

func (s *Session) wrap(els []*Element) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = handle{el: el, s: s}
	}
	return out
}

func (s *Session) trace(action string, el *Element) {
	s.Trace = append(s.Trace, action+" "+el.Name)
}

// Element is a fake DOM element, the zero value is a button with no text.
type Element struct {
	Name    string
	Text    string
	Attrs   map[string]string
	Value   string
	Checked bool
	Options []browser.Option
	// Children are the elements found by relative selectors under this one.
	Children map[string][]*Element
	// Err makes every interaction with the element fail.
	Err error

	// OnClick runs after the element is clicked, it is how tests script page transitions.
	OnClick func()
	// OnSelect runs after an option is selected.
	OnSelect func(value string)

	Clicks   int
	Submits  int
	Scrolls  int
	Typed    []string
	Selected []string
	Cleared  int
}

func New(name string) *Element {
	return &Element{Name: name}
}

// Select makes a <select> element whose options are given as value/text pairs, the option with
// value selected starts selected.
func Select(name, selected string, pairs ...string) *Element {
	el := New(name)
	for i := 0; i+1 < len(pairs); i += 2 {
		el.Options = append(el.Options, browser.Option{
			Value:    pairs[i],
			Text:     pairs[i+1],
			Selected: pairs[i] == selected,
		})
	}
	return el
}

// Child sets the elements under this one that match a relative selector.
func (e *Element) Child(sel browser.Selector, els ...*Element) *Element {
	if e.Children == nil {
		e.Children = map[string][]*Element{}
	}
	e.Children[sel.String()] = els
	return e
}

// WithAttr sets an attribute.
func (e *Element) WithAttr(name, value string) *Element {
	if e.Attrs == nil {
		e.Attrs = map[string]string{}
	}
	e.Attrs[name] = value
	return e
}

// WithText sets the visible text.
func (e *Element) WithText(text string) *Element {
	e.Text = text
	return e
}

// SelectedValue returns the value of the selected option, or an empty string.
func (e *Element) SelectedValue() string {
	for _, o := range e.Options {
		if o.Selected {
			return o.Value
		}
	}
	return ""
}

type handle struct {
	el *Element
	s  *Session
}

func (h handle) Click(ctx context.Context) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	h.el.Clicks++
	h.s.trace("click", h.el)
	if h.el.OnClick != nil {
		h.el.OnClick()
	}
	return nil
}

func (h handle) Type(ctx context.Context, text string) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	h.el.Value += text
	h.el.Typed = append(h.el.Typed, text)
	h.s.trace("type", h.el)
	return nil
}

func (h handle) Clear(ctx context.Context) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	h.el.Value = ""
	h.el.Cleared++
	h.s.trace("clear", h.el)
	return nil
}

func (h handle) Submit(ctx context.Context) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	h.el.Submits++
	h.s.trace("submit", h.el)
	if h.el.OnClick != nil {
		h.el.OnClick()
	}
	return nil
}

func (h handle) ScrollIntoView(ctx context.Context) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	h.el.Scrolls++
	return nil
}

func (h handle) Text(ctx context.Context) (string, error) {
	return h.el.Text, h.el.Err
}

func (h handle) Attribute(ctx context.Context, name string) (string, error) {
	if h.el.Err != nil {
		return "", h.el.Err
	}
	return h.el.Attrs[name], nil
}

func (h handle) Value(ctx context.Context) (string, error) {
	return h.el.Value, h.el.Err
}

func (h handle) Checked(ctx context.Context) (bool, error) {
	return h.el.Checked, h.el.Err
}

func (h handle) Options(ctx context.Context) ([]browser.Option, error) {
	if h.el.Err != nil {
		return nil, h.el.Err
	}
	out := make([]browser.Option, len(h.el.Options))
	copy(out, h.el.Options)
	return out, nil
}

func (h handle) SelectedText(ctx context.Context) (string, error) {
	if h.el.Err != nil {
		return "", h.el.Err
	}
	if len(h.el.Options) == 0 {
		return "", fmt.Errorf("%s has no options: %w", h.el.Name, browser.ErrNotFound)
	}
	for _, o := range h.el.Options {
		if o.Selected {
			return o.Text, nil
		}
	}
	return h.el.Options[0].Text, nil
}

func (h handle) SelectValue(ctx context.Context, value string) error {
	if h.el.Err != nil {
		return h.el.Err
	}
	idx := -1
	for i, o := range h.el.Options {
		if o.Value == value {
			idx = i
		}
	}
	if idx < 0 {
		return &browser.LookupError{
			Selector: browser.CSS(`option[value="` + value + `"]`),
			Err:      browser.ErrNotFound,
		}
	}
	for i := range h.el.Options {
		h.el.Options[i].Selected = i == idx
	}
	h.el.Selected = append(h.el.Selected, value)
	h.s.trace("select "+value, h.el)
	if h.el.OnSelect != nil {
		h.el.OnSelect(value)
	}
	return nil
}

func (h handle) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if h.el.Err != nil {
		return nil, h.el.Err
	}
	return h.s.wrap(h.el.Children[sel.String()]), nil
}

// ErrBroken is a convenience error for Element.Err.
var ErrBroken = errors.New("element is broken")

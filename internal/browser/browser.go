// Package browser is the UI automation surface the HMIS driver is written against: a single
// focused page (or frame) in which elements are looked up, read and interacted with.
//
// A Session is stateful and is never safe to share between goroutines.
package browser

import (
	"context"
	"strings"
)

type selectorKind string

const (
	kindID    selectorKind = "id"
	kindXPath selectorKind = "xpath"
	kindCSS   selectorKind = "css"
)

// Selector locates elements in the focused document, or relative to an element when passed to
// Element.FindAll.
type Selector struct {
	kind selectorKind
	expr string
}

func ID(id string) Selector {
	return Selector{kind: kindID, expr: id}
}

func XPath(expr string) Selector {
	return Selector{kind: kindXPath, expr: expr}
}

func CSS(expr string) Selector {
	return Selector{kind: kindCSS, expr: expr}
}

func (s Selector) IsXPath() bool {
	return s.kind == kindXPath
}

// Expr returns the selector as a css selector or an xpath expression, ids are rendered as an
// attribute selector since most HMIS ids start with a digit.
func (s Selector) Expr() string {
	if s.kind == kindID {
		return `[id="` + s.expr + `"]`
	}
	return s.expr
}

func (s Selector) String() string {
	return string(s.kind) + "=" + s.expr
}

// Focus is the chain of iframe ids, from the top level document inwards, that lookups are
// evaluated in. The zero value is the top level document.
type Focus struct {
	Frames []string
}

func Top() Focus {
	return Focus{}
}

func Frame(ids ...string) Focus {
	return Focus{Frames: ids}
}

func (f Focus) String() string {
	if len(f.Frames) == 0 {
		return "top"
	}
	return strings.Join(f.Frames, " > ")
}

// Option is a single <option> of a <select>.
type Option struct {
	Value    string `json:"value"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Session is a single browser tab.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Focus returns the current focus.
	Focus() Focus
	// SetFocus moves the focus, it fails with a *LookupError if any frame in the chain does
	// not exist yet.
	SetFocus(ctx context.Context, focus Focus) error
	// Ready returns true when the focused document has finished loading.
	Ready(ctx context.Context) (bool, error)
	// FindAll returns every element matching the selector in the focused document, it does
	// not wait and returns an empty slice when nothing matches.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
	Close() error
}

// Element is a handle to a DOM element, it becomes stale once the document it was found in
// navigates away.
type Element interface {
	Click(ctx context.Context) error
	// Type appends text to the element's current value.
	Type(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	// Submit presses enter on the element.
	Submit(ctx context.Context) error
	ScrollIntoView(ctx context.Context) error

	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value or an empty string when it is absent.
	Attribute(ctx context.Context, name string) (string, error)
	Value(ctx context.Context) (string, error)
	// Checked reports the state of a radio button or checkbox.
	Checked(ctx context.Context) (bool, error)

	// Options lists the options of a <select>.
	Options(ctx context.Context) ([]Option, error)
	// SelectedText returns the text of the selected option of a <select>.
	SelectedText(ctx context.Context) (string, error)
	// SelectValue selects the option of a <select> with the given value, it fails with
	// ErrNotFound when no such option exists.
	SelectValue(ctx context.Context, value string) error

	FindAll(ctx context.Context, sel Selector) ([]Element, error)
}

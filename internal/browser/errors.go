package browser

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an element, option or frame does not exist, including when it
// did not appear before a wait timed out.
var ErrNotFound = errors.New("not found")

// ErrTimeout is returned by waits on conditions other than an element appearing.
var ErrTimeout = fmt.Errorf("wait timed out: %w", ErrNotFound)

// LookupError describes a failed lookup.
type LookupError struct {
	Selector Selector
	Focus    Focus
	Err      error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s in %s: %v", e.Selector, e.Focus, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func notFound(s Session, sel Selector) error {
	return &LookupError{Selector: sel, Focus: s.Focus(), Err: ErrNotFound}
}

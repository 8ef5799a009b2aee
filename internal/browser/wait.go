package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Waiter polls the session until a condition holds or Timeout passes.
type Waiter struct {
	Timeout time.Duration
	Poll    time.Duration
	// Settle is the pause taken after filling in a form control, the HMIS forms drop input
	// that arrives too quickly.
	Settle time.Duration
}

// Until calls cond every Poll until it returns true, errors returned by cond are treated as
// "not yet" and the last one is wrapped into the timeout error.
func (w Waiter) Until(ctx context.Context, what string, cond func(ctx context.Context) (bool, error)) error {
	poll := w.Poll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.Now().Add(w.Timeout)

	var last error
	for {
		ok, err := cond(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			last = err
		}
		if !time.Now().Before(deadline) {
			break
		}

		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if last != nil {
		return fmt.Errorf("%s: %w (last error: %v)", what, ErrTimeout, last)
	}
	return fmt.Errorf("%s: %w", what, ErrTimeout)
}

// Elements waits for at least one element to match the selector.
func (w Waiter) Elements(ctx context.Context, s Session, sel Selector) ([]Element, error) {
	var found []Element
	err := w.Until(ctx, sel.String(), func(ctx context.Context) (bool, error) {
		elements, err := s.FindAll(ctx, sel)
		if err != nil {
			return false, err
		}
		found = elements
		return len(elements) > 0, nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, notFound(s, sel)
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Element waits for the selector and returns the first match.
func (w Waiter) Element(ctx context.Context, s Session, sel Selector) (Element, error) {
	elements, err := w.Elements(ctx, s, sel)
	if err != nil {
		return nil, err
	}
	return elements[0], nil
}

// Focus waits until every frame in the chain exists and focuses it.
func (w Waiter) Focus(ctx context.Context, s Session, focus Focus) error {
	return w.Until(ctx, "focus "+focus.String(), func(ctx context.Context) (bool, error) {
		err := s.SetFocus(ctx, focus)
		return err == nil, err
	})
}

// Ready waits until the focused document has finished loading.
func (w Waiter) Ready(ctx context.Context, s Session) error {
	return w.Until(ctx, "document ready in "+s.Focus().String(), s.Ready)
}

// Pause sleeps for Settle.
func (w Waiter) Pause(ctx context.Context) error {
	if w.Settle <= 0 {
		return nil
	}
	timer := time.NewTimer(w.Settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Find returns the first element matching the selector without waiting.
func Find(ctx context.Context, s Session, sel Selector) (Element, error) {
	elements, err := s.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, notFound(s, sel)
	}
	return elements[0], nil
}

// FindIn returns the element at index i of the elements matching the selector under parent.
func FindIn(ctx context.Context, parent Element, sel Selector, i int) (Element, error) {
	elements, err := parent.FindAll(ctx, sel)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(elements) {
		return nil, &LookupError{
			Selector: sel,
			Err:      fmt.Errorf("index %d of %d matches: %w", i, len(elements), ErrNotFound),
		}
	}
	return elements[i], nil
}

package router

import (
	"errors"
	"fmt"
)

// Sentinel errors describing how a navigation ended.
var (
	// ErrSuperseded is returned when a newer navigation started before this
	// one could commit. Its effects are discarded.
	ErrSuperseded = errors.New("router: navigation superseded")

	// ErrGuardRejected is returned when a guard denied the navigation.
	ErrGuardRejected = errors.New("router: navigation rejected by guard")

	// ErrGuardFailed is returned when a guard returned an error or panicked.
	ErrGuardFailed = errors.New("router: guard error")

	// ErrNoRoute is returned when no route matches and the table has no wildcard.
	ErrNoRoute = errors.New("router: no route")

	// ErrMountFailed is returned when the target component could not be
	// constructed or attached.
	ErrMountFailed = errors.New("router: mount failed")

	// ErrRedirectLimit is returned when guard redirects chain past the limit.
	ErrRedirectLimit = errors.New("router: too many redirects")

	// ErrNotStarted is returned by navigation on a router that was not started.
	ErrNotStarted = errors.New("router: not started")

	// ErrAlreadyStarted is returned by Start on a running router.
	ErrAlreadyStarted = errors.New("router: already started")

	// ErrInvalidParam is returned by Params.Decode for values that do not
	// fit the tagged field.
	ErrInvalidParam = errors.New("router: invalid param")
)

// NavigationError wraps the outcome of a failed navigation with its context.
type NavigationError struct {
	Path   string
	Seq    uint64
	Source Source
	Err    error
}

// Error returns the error message with navigation context.
func (e *NavigationError) Error() string {
	return fmt.Sprintf("router: navigate %s (seq %d, %s): %v", e.Path, e.Seq, e.Source, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *NavigationError) Unwrap() error {
	return e.Err
}

func navError(nav *Navigation, err error) *NavigationError {
	return &NavigationError{
		Path:   nav.Path,
		Seq:    nav.Seq,
		Source: nav.Source,
		Err:    err,
	}
}

// PanicError wraps a value recovered from a panicking guard or component.
type PanicError struct {
	Op    string
	Value any
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("router: panic in %s: %v", e.Op, e.Value)
}

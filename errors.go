package permits

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfiguration is a sentinel for the error that
	// occurs when a limiter is built with a non-positive capacity
	// or window period.
	ErrInvalidConfiguration = &InvalidConfiguration{}

	// ErrCancelled is a sentinel for the error that occurs when
	// a caller waiting in Acquire gave up before a permit was granted,
	// either because its context ended or because the limiter was shut down.
	ErrCancelled = &Cancelled{}

	// ErrShutdown is the cause carried by a Cancelled error
	// when the wait was interrupted by a limiter shutdown.
	ErrShutdown = errors.New("rate limiter has been shut down")
)

// InvalidConfiguration is returned by the constructors
// when the provided configuration can't be used.
type InvalidConfiguration struct {
	Reason string
}

func (e *InvalidConfiguration) Error() string {
	return fmt.Sprintf("InvalidConfiguration: %v", e.Reason)
}

func (e *InvalidConfiguration) Is(tgt error) bool {
	_, ok := tgt.(*InvalidConfiguration)
	return ok
}

// Cancelled is returned by Acquire when the caller stopped waiting
// without being granted a permit. No permit is consumed in that case.
//
// Cause is either the context error (context.Canceled, context.DeadlineExceeded)
// or ErrShutdown, and can be checked with errors.Is.
type Cancelled struct {
	Cause     error
	WaitedFor time.Duration
}

func (e *Cancelled) Error() string {
	return fmt.Sprintf(
		"Cancelled: permit acquisition aborted after %v ms (%v)",
		e.WaitedFor.Milliseconds(),
		e.Cause,
	)
}

func (e *Cancelled) Is(tgt error) bool {
	_, ok := tgt.(*Cancelled)
	return ok
}

func (e *Cancelled) Unwrap() error {
	return e.Cause
}

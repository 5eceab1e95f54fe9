package permits

import (
	"context"
	"time"
)

// Limiter is the parent interface for all kinds
// of rate limiters.
//
// You are encouraged to use this type when storing references
// to your limiters in order to allow for easier implementations switch.
type Limiter interface {
	// Acquire blocks until a permit is granted or the wait is aborted.
	// Permits are granted in arrival order.
	//
	// A nil value is returned when a permit was granted.
	// Otherwise the returned error matches permits.ErrCancelled
	// and wraps either the context error or permits.ErrShutdown.
	// No permit is consumed when an error is returned.
	Acquire(ctx context.Context) error

	// AcquireWithDetails works like Acquire but also reports
	// how long the caller waited for the permit.
	AcquireWithDetails(ctx context.Context) AcquireResult

	// TryAcquire takes a permit only if one is available right now
	// and no other caller is already waiting for one.
	// It never blocks.
	TryAcquire() bool

	// Release gives a permit back to the limiter and wakes
	// the longest waiting caller, if any.
	//
	// The available permits never grow above the configured capacity:
	// releasing more permits than acquired is silently ignored.
	// Release never blocks.
	Release()

	// Do acquires a permit, runs the task and releases the permit
	// once the task returned, whatever its outcome.
	// The error returned by the task is passed through unchanged.
	Do(ctx context.Context, task func(ctx context.Context) error) error

	// Shutdown stops the replenisher and unblocks every waiting caller
	// with a permits.ErrCancelled error wrapping permits.ErrShutdown.
	// It is safe to call Shutdown more than once.
	Shutdown()

	// IsComposite returns true if the limiter is a CompositeRateLimiter.
	IsComposite() bool
}

// RateLimiter is the specialized interface for the standard
// rate limiters created with permits.New(...).
type RateLimiter interface {
	Limiter

	// Stats returns runtime statistics useful to evaluate system status.
	Stats() RuntimeStatistics
}

// CompositeRateLimiter is the specialized interface for the composite
// rate limiters created with permits.NewComposite(...).
//
// A permit is granted only when every composed limiter granted one.
type CompositeRateLimiter interface {
	Limiter

	// Stats returns runtime statistics for every composed limiter,
	// in configuration order.
	Stats() CompositeRuntimeStatistics
}

// AcquireResult holds the result of a permit request
// made via AcquireWithDetails.
//
// the Error field will be nil if the permit was granted.
type AcquireResult struct {
	WaitedFor time.Duration
	Error     error
}

// RuntimeStatistics holds runtime statistics
// for a single rate limiter.
type RuntimeStatistics struct {
	// Capacity is the configured number of permits per window.
	Capacity uint64

	// Available is the number of permits that can be granted right now.
	Available uint64

	// Waiting is the number of callers currently blocked in Acquire.
	Waiting uint64

	// Windows counts the resets performed by the replenisher.
	Windows uint64

	// Acquired counts the permits granted, including the ones
	// handed back because the caller gave up at the same time.
	Acquired        uint64
	Released        uint64
	ClampedReleases uint64
	// Cancelled counts the Acquire calls that returned an error,
	// including the ones made after Shutdown.
	Cancelled uint64

	Closed bool
}

// CompositeRuntimeStatistics holds runtime statistics
// for a composite rate limiter.
type CompositeRuntimeStatistics struct {

	// LimitersStats holds the statistics for each composed limiter
	LimitersStats []RuntimeStatistics
}

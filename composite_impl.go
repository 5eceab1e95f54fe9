package permits

import (
	"context"
	"errors"
	"time"
)

type compositeRateLimiterDefaultImpl struct {
	Logger   Logger
	Limiters []*rateLimiterDefaultImpl

	TimeFunc func() time.Time
}

func (instance *compositeRateLimiterDefaultImpl) currentTime() time.Time {
	// hook time provider here to allow easier testing
	return instance.TimeFunc()
}

func (instance *compositeRateLimiterDefaultImpl) IsComposite() bool {
	return true
}

// Acquire blocks until every composed limiter granted a permit.
func (instance *compositeRateLimiterDefaultImpl) Acquire(ctx context.Context) error {
	res := instance.acquire(ctx)
	return res.Error
}

// AcquireWithDetails works like Acquire but also reports
// how long the caller waited for all the permits.
func (instance *compositeRateLimiterDefaultImpl) AcquireWithDetails(ctx context.Context) AcquireResult {
	return instance.acquire(ctx)
}

// acquire for a composite instance
// requests a permit from every composed limiter, in configuration order.
//
// If one of the requests fails, the permits already granted by the
// previous limiters are handed back without being counted as released,
// so that an aborted request does not consume any capacity.
func (instance *compositeRateLimiterDefaultImpl) acquire(ctx context.Context) AcquireResult {
	startedAt := instance.currentTime()

	for i, limiter := range instance.Limiters {
		err := limiter.Acquire(ctx)
		if err == nil {
			continue
		}

		for j := 0; j < i; j++ {
			granted := instance.Limiters[j]
			granted.Lock.Lock()
			granted.giveBack()
			granted.Lock.Unlock()
		}

		waited := instance.currentTime().Sub(startedAt)
		var cancelled *Cancelled
		if errors.As(err, &cancelled) {
			cancelled.WaitedFor = waited
		}
		return AcquireResult{
			WaitedFor: waited,
			Error:     err,
		}
	}

	return AcquireResult{WaitedFor: instance.currentTime().Sub(startedAt)}
}

// TryAcquire takes a permit from every composed limiter
// only if all of them can grant one right now.
func (instance *compositeRateLimiterDefaultImpl) TryAcquire() bool {
	// locks are always taken in configuration order
	for _, limiter := range instance.Limiters {
		limiter.Lock.Lock()
	}
	defer func() {
		for i := len(instance.Limiters) - 1; i >= 0; i-- {
			instance.Limiters[i].Lock.Unlock()
		}
	}()

	for _, limiter := range instance.Limiters {
		if limiter.Closed || limiter.Available == 0 || limiter.Waiting > 0 {
			return false
		}
	}

	for _, limiter := range instance.Limiters {
		limiter.Available--
		limiter.Acquired++
	}
	return true
}

// Release gives a permit back to every composed limiter.
func (instance *compositeRateLimiterDefaultImpl) Release() {
	for _, limiter := range instance.Limiters {
		limiter.Release()
	}
}

// Do acquires the permits, runs the task and releases the permits
// once the task returned, whatever its outcome.
func (instance *compositeRateLimiterDefaultImpl) Do(ctx context.Context, task func(ctx context.Context) error) error {
	if err := instance.Acquire(ctx); err != nil {
		return err
	}
	defer instance.Release()

	return task(ctx)
}

// Shutdown stops every composed limiter.
func (instance *compositeRateLimiterDefaultImpl) Shutdown() {
	for _, limiter := range instance.Limiters {
		limiter.Shutdown()
	}
}

// Stats returns runtime statistics for every composed limiter.
func (instance *compositeRateLimiterDefaultImpl) Stats() CompositeRuntimeStatistics {
	out := CompositeRuntimeStatistics{
		LimitersStats: make([]RuntimeStatistics, len(instance.Limiters)),
	}
	for i, limiter := range instance.Limiters {
		out.LimitersStats[i] = limiter.Stats()
	}
	return out
}

package permits

import (
	"context"
	"fmt"
)

// Acquire blocks until a permit is granted or the wait is aborted.
// Permits are granted in arrival order.
//
// A nil value is returned when a permit was granted.
// Otherwise the returned error matches permits.ErrCancelled
// and wraps either the context error or permits.ErrShutdown.
func (instance *rateLimiterDefaultImpl) Acquire(ctx context.Context) error {
	res := instance.acquire(ctx)
	return res.Error
}

// AcquireWithDetails works like Acquire but also reports
// how long the caller waited for the permit.
func (instance *rateLimiterDefaultImpl) AcquireWithDetails(ctx context.Context) AcquireResult {
	return instance.acquire(ctx)
}

func (instance *rateLimiterDefaultImpl) acquire(ctx context.Context) AcquireResult {
	startedAt := instance.currentTime()

	cancelled := func(cause error) AcquireResult {
		waited := instance.currentTime().Sub(startedAt)
		return AcquireResult{
			WaitedFor: waited,
			Error:     &Cancelled{Cause: cause, WaitedFor: waited},
		}
	}

	instance.Lock.Lock()

	if instance.Closed {
		instance.Cancelled++
		instance.Lock.Unlock()
		return cancelled(ErrShutdown)
	}

	if err := ctx.Err(); err != nil {
		instance.Cancelled++
		instance.Lock.Unlock()
		return cancelled(err)
	}

	// fast path: only when nobody is queued, so that late callers
	// never overtake the ones already waiting.
	if instance.Available > 0 && instance.Waiting == 0 {
		instance.Available--
		instance.Acquired++
		instance.Lock.Unlock()
		return AcquireResult{}
	}

	w := &waiter{ready: make(chan struct{})}
	instance.WaitQueue.PushBack(w)
	instance.Waiting++
	instance.Lock.Unlock()

	select {
	case <-w.ready:
		if w.err != nil {
			return cancelled(w.err)
		}
		return AcquireResult{WaitedFor: instance.currentTime().Sub(startedAt)}

	case <-ctx.Done():
		instance.Lock.Lock()
		var cause error
		switch {
		case w.err != nil:
			// shutdown got here first and already accounted for it
			cause = w.err
		case w.granted:
			// the permit was granted while we were giving up
			instance.giveBack()
			instance.Cancelled++
			cause = ctx.Err()
		default:
			instance.abandon(w)
			instance.Cancelled++
			cause = ctx.Err()
		}
		instance.Lock.Unlock()

		instance.Logger.Debug(fmt.Sprintf("permit request abandoned by the caller: %v", cause))
		return cancelled(cause)
	}
}

// TryAcquire takes a permit only if one is available right now
// and no other caller is already waiting for one.
func (instance *rateLimiterDefaultImpl) TryAcquire() bool {
	instance.Lock.Lock()
	defer instance.Lock.Unlock()

	if instance.Closed || instance.Available == 0 || instance.Waiting > 0 {
		return false
	}

	instance.Available--
	instance.Acquired++
	return true
}

// Release gives a permit back and wakes the longest waiting caller, if any.
//
// Releasing more permits than acquired is not an error: the available
// permits are clamped to the configured capacity.
func (instance *rateLimiterDefaultImpl) Release() {
	instance.Lock.Lock()
	instance.Released++

	if instance.Available >= instance.Config.Capacity {
		instance.ClampedReleases++
		instance.Lock.Unlock()

		instance.Logger.Debug("release ignored, all permits are already available")
		return
	}

	instance.Available++
	instance.grantWaiters()
	instance.Lock.Unlock()
}

// Do acquires a permit, runs the task and releases the permit
// once the task returned, whatever its outcome.
func (instance *rateLimiterDefaultImpl) Do(ctx context.Context, task func(ctx context.Context) error) error {
	if err := instance.Acquire(ctx); err != nil {
		return err
	}
	defer instance.Release()

	return task(ctx)
}

package permits

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// rateLimiterDefaultImpl holds all the required
// runtime data together with the parsed configuration.
type rateLimiterDefaultImpl struct {
	Logger Logger
	Config *rateLimiterEffectiveConfig

	// Time functions can be overridden for testing.
	TimeFunc   func() time.Time
	TickerFunc TickerFunc

	// Lock protects every field below.
	// It is never held while a caller is waiting for a permit.
	Lock sync.Mutex

	// Available is always in the range [0, Config.Capacity].
	Available uint64

	// a deque implementation is used to represent the FIFO wait queue.
	// Cancelled waiters are only marked and get discarded
	// when they reach the front of the queue.
	WaitQueue *deque.Deque

	// Waiting is the number of live (not cancelled) waiters in WaitQueue.
	Waiting uint64

	// Abandoned is the number of cancelled waiters still in WaitQueue.
	// The queue is compacted as soon as they outnumber the live ones.
	Abandoned uint64

	Closed bool

	// counters exposed via Stats
	Windows         uint64
	Acquired        uint64
	Released        uint64
	ClampedReleases uint64
	Cancelled       uint64

	stop         chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once
}

// rateLimiterEffectiveConfig holds the validated and parsed configuration
// that was obtained from the user-provided configuration.
type rateLimiterEffectiveConfig struct {
	Capacity     uint64
	WindowPeriod time.Duration
}

// waiter represents a single caller blocked in Acquire.
// All fields except ready are guarded by the limiter Lock;
// ready is closed exactly once, under the Lock, when the waiter
// is either granted a permit or cancelled by a shutdown.
type waiter struct {
	ready     chan struct{}
	granted   bool
	cancelled bool
	err       error
}

// waitQueueMinCapacity is the initial and minimum size of the wait queue.
// The queue holds blocked callers, not permits, so it does not depend on Capacity.
const waitQueueMinCapacity = 16

func newWaitQueue() *deque.Deque {
	return deque.New(waitQueueMinCapacity, waitQueueMinCapacity)
}

func (instance *rateLimiterDefaultImpl) currentTime() time.Time {
	// hook time provider here to allow easier testing
	return instance.TimeFunc()
}

// grantWaiters hands out the available permits to the queued waiters
// in arrival order. Must be called with the Lock held.
func (instance *rateLimiterDefaultImpl) grantWaiters() {
	queue := instance.WaitQueue

	for queue.Len() > 0 {
		head := queue.Front().(*waiter)
		if head.cancelled {
			queue.PopFront()
			instance.Abandoned--
			continue
		}
		if instance.Available == 0 {
			return
		}

		queue.PopFront()
		instance.Available--
		instance.Waiting--
		instance.Acquired++
		head.granted = true
		close(head.ready)
	}
}

// abandon marks a queued waiter as cancelled.
// Must be called with the Lock held.
func (instance *rateLimiterDefaultImpl) abandon(w *waiter) {
	w.cancelled = true
	instance.Waiting--
	instance.Abandoned++

	if instance.Abandoned > instance.Waiting {
		instance.compactWaitQueue()
	}
}

// compactWaitQueue drops every cancelled waiter,
// keeping the live ones in arrival order.
// Must be called with the Lock held.
func (instance *rateLimiterDefaultImpl) compactWaitQueue() {
	queue := instance.WaitQueue
	for n := queue.Len(); n > 0; n-- {
		w := queue.PopFront().(*waiter)
		if !w.cancelled {
			queue.PushBack(w)
		}
	}
	instance.Abandoned = 0
}

// giveBack returns a permit that was granted but never used.
// It is not counted as a release.
// Must be called with the Lock held.
func (instance *rateLimiterDefaultImpl) giveBack() {
	if instance.Available < instance.Config.Capacity {
		instance.Available++
	}
	instance.grantWaiters()
}

func (instance *rateLimiterDefaultImpl) IsComposite() bool {
	return false
}

// Stats returns runtime statistics useful to evaluate system status.
func (instance *rateLimiterDefaultImpl) Stats() RuntimeStatistics {
	instance.Lock.Lock()
	defer instance.Lock.Unlock()

	return RuntimeStatistics{
		Capacity:        instance.Config.Capacity,
		Available:       instance.Available,
		Waiting:         instance.Waiting,
		Windows:         instance.Windows,
		Acquired:        instance.Acquired,
		Released:        instance.Released,
		ClampedReleases: instance.ClampedReleases,
		Cancelled:       instance.Cancelled,
		Closed:          instance.Closed,
	}
}

// core methods have been moved to the acquire.go and replenisher.go files

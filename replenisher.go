package permits

import (
	"fmt"
	"time"
)

func (instance *rateLimiterDefaultImpl) startReplenisher() {
	ticks, stopTicker := instance.TickerFunc(instance.Config.WindowPeriod)
	go instance.replenishLoop(ticks, stopTicker)
}

func (instance *rateLimiterDefaultImpl) replenishLoop(ticks <-chan time.Time, stopTicker func()) {
	defer close(instance.done)
	defer stopTicker()

	for {
		select {
		case <-instance.stop:
			return
		case <-ticks:
			instance.replenish()
		}
	}
}

// replenish starts a new window.
//
// The available permits are set back to the configured capacity,
// never recomputed from the current count: a fully drained window
// must start again with every permit available.
func (instance *rateLimiterDefaultImpl) replenish() {
	instance.Lock.Lock()
	defer instance.Lock.Unlock()

	if instance.Closed {
		return
	}

	instance.Available = instance.Config.Capacity
	instance.Windows++
	instance.grantWaiters()
}

// Shutdown stops the replenisher and unblocks every waiting caller.
// It is safe to call Shutdown more than once.
func (instance *rateLimiterDefaultImpl) Shutdown() {
	instance.shutdownOnce.Do(instance.shutdown)
}

func (instance *rateLimiterDefaultImpl) shutdown() {
	instance.Lock.Lock()
	instance.Closed = true

	unblocked := 0
	queue := instance.WaitQueue
	for queue.Len() > 0 {
		w := queue.PopFront().(*waiter)
		if w.cancelled {
			continue
		}
		w.err = ErrShutdown
		close(w.ready)
		unblocked++
	}
	instance.Waiting = 0
	instance.Abandoned = 0
	instance.Cancelled += uint64(unblocked)
	instance.Lock.Unlock()

	// the Lock must not be held here: the replenisher
	// may need it to complete an in-flight tick before exiting.
	close(instance.stop)
	<-instance.done

	instance.Logger.Info(fmt.Sprintf("rate limiter shut down, %d waiting callers unblocked", unblocked))
}

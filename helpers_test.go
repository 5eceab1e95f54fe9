package permits

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	defaultCapacity     = 3
	defaultWindowPeriod = time.Second
	defaultStartTime    = 1000000
	eventuallyTimeout   = 2 * time.Second
	eventuallyTick      = time.Millisecond
)

type testLogger struct {
	lock     sync.Mutex
	Messages []string
}

func (l *testLogger) append(text string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.Messages = append(l.Messages, text)
}

func (l *testLogger) Debug(text string) {
	l.append(fmt.Sprintf("[d] %v", text))
}
func (l *testLogger) Info(text string) {
	l.append(fmt.Sprintf("[i] %v", text))
}
func (l *testLogger) Warning(text string) {
	l.append(fmt.Sprintf("[w] %v", text))
}
func (l *testLogger) Error(text string) {
	l.append(fmt.Sprintf("[e] %v", text))
}

func (l *testLogger) Snapshot() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.Messages...)
}

// manualTicker replaces time.Ticker so that tests decide
// exactly when a window ends.
type manualTicker struct {
	Period  time.Duration
	C       chan time.Time
	stopped atomic.Bool
}

func (mt *manualTicker) Stopped() bool {
	return mt.stopped.Load()
}

// manualTickers hands out a manualTicker for every limiter built with it.
type manualTickers struct {
	lock    sync.Mutex
	Tickers []*manualTicker
}

func (mts *manualTickers) TickerFunc(d time.Duration) (<-chan time.Time, func()) {
	mts.lock.Lock()
	defer mts.lock.Unlock()

	mt := &manualTicker{
		Period: d,
		C:      make(chan time.Time),
	}
	mts.Tickers = append(mts.Tickers, mt)
	return mt.C, func() { mt.stopped.Store(true) }
}

func (mts *manualTickers) At(i int) *manualTicker {
	mts.lock.Lock()
	defer mts.lock.Unlock()
	return mts.Tickers[i]
}

type testableInstance struct {
	Instance *rateLimiterDefaultImpl
	Tickers  *manualTickers
	Logger   *testLogger

	// CurrentTime is expressed in milliseconds
	CurrentTime atomic.Int64
}

func (ti *testableInstance) TimeTravel(diff int64) {
	ti.CurrentTime.Add(diff)
}

// Tick ends the current window and waits for the replenisher to process it.
func (ti *testableInstance) Tick(t *testing.T) {
	tickLimiter(t, ti.Instance, ti.Tickers.At(0))
}

func (ti *testableInstance) AssertStats(t *testing.T, available, waiting uint64) {
	stats := ti.Instance.Stats()
	assert.Equal(t, available, stats.Available, "available permits")
	assert.Equal(t, waiting, stats.Waiting, "waiting callers")
}

func tickLimiter(t *testing.T, instance *rateLimiterDefaultImpl, ticker *manualTicker) {
	before := instance.Stats().Windows

	select {
	case ticker.C <- time.Now():
	case <-time.After(eventuallyTimeout):
		require.FailNow(t, "the replenisher did not receive the tick")
	}

	require.Eventually(t, func() bool {
		return instance.Stats().Windows == before+1
	}, eventuallyTimeout, eventuallyTick, "the replenisher did not process the tick")
}

func fakeTimeFunc(currentTime *atomic.Int64) func() time.Time {
	return func() time.Time {
		return time.UnixMilli(currentTime.Load())
	}
}

func buildInstance(t *testing.T, configurer func(config *Config)) *testableInstance {
	ti := &testableInstance{
		Tickers: &manualTickers{},
		Logger:  &testLogger{},
	}
	ti.CurrentTime.Store(defaultStartTime)

	config := Config{
		Capacity:     defaultCapacity,
		WindowPeriod: defaultWindowPeriod,
		TimeFunc:     fakeTimeFunc(&ti.CurrentTime),
		TickerFunc:   ti.Tickers.TickerFunc,
		Logger:       ti.Logger,
	}

	if configurer != nil {
		configurer(&config)
	}

	instance, err := New(&config)
	require.NoError(t, err)
	require.NotNil(t, instance)

	ti.Instance = instance.(*rateLimiterDefaultImpl)
	t.Cleanup(ti.Instance.Shutdown)

	return ti
}

func buildDefaultInstance(t *testing.T) *testableInstance {
	return buildInstance(t, nil)
}

// acquireAsync calls Acquire in a new goroutine
// and delivers the outcome on the returned channel.
func acquireAsync(ctx context.Context, limiter Limiter) <-chan error {
	out := make(chan error, 1)
	go func() {
		out <- limiter.Acquire(ctx)
	}()
	return out
}

// waitForWaiters blocks until exactly n callers are queued on the instance.
func waitForWaiters(t *testing.T, instance *rateLimiterDefaultImpl, n uint64) {
	require.Eventually(t, func() bool {
		return instance.Stats().Waiting == n
	}, eventuallyTimeout, eventuallyTick, "expected %d waiting callers", n)
}

// receiveWithin fails the test if no value is delivered in time.
func receiveWithin(t *testing.T, ch <-chan error, d time.Duration) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(d):
		require.FailNow(t, fmt.Sprintf("no result received within %v", d))
		return nil
	}
}

// assertBlocked fails the test if a value is delivered right away.
func assertBlocked(t *testing.T, ch <-chan error) {
	select {
	case err := <-ch:
		assert.Fail(t, fmt.Sprintf("the caller should still be blocked, got result %v", err))
	case <-time.After(20 * time.Millisecond):
	}
}

// A fair, fixed-window rate limiter for gating outbound calls.
//
// Features:
//
// - At most Capacity operations admitted per WindowPeriod
//
// - Hard reset of the available permits at every window boundary
//
// - Blocking Acquire with context cancellation, granted in strict arrival (FIFO) order
//
// - Non-blocking Release, clamped to the configured capacity
//
// - Safe Shutdown that stops the replenisher and unblocks every waiting caller
//
// - Composite limiters to enforce several windows at once (ex. 10/s and 300/min)
//
// - Runtime statistics and a Prometheus collector
//
// - Thread safe
package permits

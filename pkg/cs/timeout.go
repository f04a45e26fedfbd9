package cs

import (
	"math"
	"time"

	"github.com/cenkalti/backoff"
)

// Timeout is an optional duration: either a bounded window or infinite.
// The zero value is a zero-length window (no retries), not infinite.
type Timeout struct {
	d        time.Duration
	infinite bool
}

// TimeoutAfter returns a bounded timeout
func TimeoutAfter(d time.Duration) Timeout {
	return Timeout{d: d}
}

// InfiniteTimeout never expires
var InfiniteTimeout = Timeout{infinite: true}

// deadline resolves the timeout against now. ok is false for an infinite
// timeout. The absolute deadline lives on the clock's nanosecond scale, so
// a window that would push it past the representable range saturates to
// infinite instead of wrapping.
func (t Timeout) deadline(now time.Time) (time.Time, bool) {
	if t.infinite {
		return time.Time{}, false
	}
	if t.d > 0 && int64(t.d) > math.MaxInt64-now.UnixNano() {
		return time.Time{}, false
	}
	return now.Add(t.d), true
}

// deadlineBackOff retries at a constant interval until an absolute
// deadline computed from a monotonic clock. Matches the kernel-submission
// retry contract: a retry is allowed only while now is strictly before
// the deadline, so a wakeup exactly at the deadline stops.
type deadlineBackOff struct {
	interval time.Duration
	deadline time.Time
	infinite bool
	clock    backoff.Clock
}

func newDeadlineBackOff(clock backoff.Clock, interval time.Duration, timeout Timeout) *deadlineBackOff {
	b := &deadlineBackOff{
		interval: interval,
		clock:    clock,
	}
	deadline, ok := timeout.deadline(clock.Now())
	b.deadline = deadline
	b.infinite = !ok
	return b
}

// NextBackOff implements backoff.BackOff
func (b *deadlineBackOff) NextBackOff() time.Duration {
	if !b.infinite && !b.clock.Now().Before(b.deadline) {
		return backoff.Stop
	}
	return b.interval
}

// Reset implements backoff.BackOff; the deadline is absolute, so there is
// nothing to rewind.
func (b *deadlineBackOff) Reset() {}

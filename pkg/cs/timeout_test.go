//go:build unit

package cs

import (
	"math"
	"testing"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/emergingrobotics/go-amdgpu/testutil"
)

func TestTimeoutDeadline(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d, ok := TimeoutAfter(time.Second).deadline(now)
	if !ok {
		t.Fatal("bounded timeout reported as infinite")
	}
	if !d.Equal(now.Add(time.Second)) {
		t.Errorf("deadline = %v, expected %v", d, now.Add(time.Second))
	}

	if _, ok := InfiniteTimeout.deadline(now); ok {
		t.Error("infinite timeout reported a deadline")
	}

	// the zero value is an already-expired window, not infinite
	d, ok = Timeout{}.deadline(now)
	if !ok {
		t.Fatal("zero timeout reported as infinite")
	}
	if !d.Equal(now) {
		t.Errorf("zero-timeout deadline = %v, expected %v", d, now)
	}
}

func TestTimeoutDeadlineOverflowSaturates(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// now + d does not fit in the clock's nanosecond range
	if _, ok := TimeoutAfter(time.Duration(math.MaxInt64)).deadline(now); ok {
		t.Error("overflowing window reported a finite deadline")
	}

	headroom := time.Duration(math.MaxInt64 - now.UnixNano())
	if _, ok := TimeoutAfter(headroom + 1).deadline(now); ok {
		t.Error("window one past the clock range reported a finite deadline")
	}
	if _, ok := TimeoutAfter(headroom).deadline(now); !ok {
		t.Error("largest representable window reported as infinite")
	}
}

func TestDeadlineBackOffOverflowNeverStops(t *testing.T) {
	clock := &testutil.FakeClock{
		Base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: 24 * time.Hour,
	}
	b := newDeadlineBackOff(clock, time.Millisecond, TimeoutAfter(time.Duration(math.MaxInt64)))

	for i := 0; i < 10; i++ {
		if next := b.NextBackOff(); next == backoff.Stop {
			t.Fatalf("saturated backoff stopped after %d steps", i)
		}
	}
}

func TestDeadlineBackOffRetriesBeforeDeadline(t *testing.T) {
	clock := &testutil.FakeClock{
		Base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: time.Millisecond,
	}
	b := newDeadlineBackOff(clock, time.Millisecond, TimeoutAfter(time.Second))

	for i := 0; i < 10; i++ {
		if next := b.NextBackOff(); next != time.Millisecond {
			t.Fatalf("NextBackOff %d = %v, expected 1ms", i, next)
		}
	}
}

func TestDeadlineBackOffStopsAtDeadline(t *testing.T) {
	// Step equals the window: the first wakeup lands exactly on the
	// deadline and must not retry.
	clock := &testutil.FakeClock{
		Base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: time.Second,
	}
	b := newDeadlineBackOff(clock, time.Millisecond, TimeoutAfter(time.Second))

	if next := b.NextBackOff(); next != backoff.Stop {
		t.Errorf("NextBackOff at the deadline = %v, expected Stop", next)
	}
}

func TestDeadlineBackOffInfinite(t *testing.T) {
	clock := &testutil.FakeClock{
		Base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: 24 * time.Hour,
	}
	b := newDeadlineBackOff(clock, time.Millisecond, InfiniteTimeout)

	for i := 0; i < 10; i++ {
		if next := b.NextBackOff(); next == backoff.Stop {
			t.Fatalf("infinite backoff stopped after %d steps", i)
		}
	}
}

func TestDeadlineBackOffResetKeepsDeadline(t *testing.T) {
	clock := &testutil.FakeClock{
		Base: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: 600 * time.Millisecond,
	}
	b := newDeadlineBackOff(clock, time.Millisecond, TimeoutAfter(time.Second))

	if next := b.NextBackOff(); next != time.Millisecond {
		t.Fatalf("first NextBackOff = %v, expected 1ms", next)
	}
	b.Reset()
	// the deadline is absolute; Reset must not extend it
	if next := b.NextBackOff(); next != backoff.Stop {
		t.Errorf("NextBackOff after Reset = %v, expected Stop", next)
	}
}

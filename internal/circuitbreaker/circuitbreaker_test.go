package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock; safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	return Config{
		ErrorThreshold: 0.50,
		MinSamples:     4,
		WindowSeconds:  10,
		OpenTimeout:    5 * time.Second,
	}
}

func TestSlidingWindow_RecordAndErrorRate(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(10)
	now := time.Unix(1_700_000_000, 0)

	for range 6 {
		w.Record(0, now)
	}
	for range 4 {
		w.Record(1.0, now)
	}

	rate, samples := w.ErrorRate(now)
	if samples != 10 {
		t.Fatalf("samples = %d, want 10", samples)
	}
	if rate < 0.39 || rate > 0.41 {
		t.Fatalf("rate = %f, want ~0.40", rate)
	}
}

func TestSlidingWindow_Expiry(t *testing.T) {
	t.Parallel()

	w := newSlidingWindow(5)
	base := time.Unix(1_700_000_000, 0)
	w.Record(1.0, base)
	w.Record(1.0, base.Add(2*time.Second))

	// At t=6 only the t=2 bucket remains.
	_, samples := w.ErrorRate(base.Add(6 * time.Second))
	if samples != 1 {
		t.Fatalf("samples = %d, want 1", samples)
	}
	_, samples = w.ErrorRate(base.Add(30 * time.Second))
	if samples != 0 {
		t.Fatalf("samples = %d, want 0 after full expiry", samples)
	}
}

func TestSlidingWindow_InvalidSize(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, -1, 61, 100} {
		if w := newSlidingWindow(n); w.size != 60 {
			t.Errorf("newSlidingWindow(%d).size = %d, want 60", n, w.size)
		}
	}
}

func TestBreaker_OpensOnThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := NewBreaker(testConfig(), WithClock(clock.Now))

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordError(1.0)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed below min samples", b.State())
	}
	b.RecordError(1.0) // 2/4 = 50%
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Fatal("open breaker should reject")
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		probeErr  error
		wantState State
	}{
		{name: "probe succeeds", probeErr: nil, wantState: StateClosed},
		{name: "probe fails", probeErr: errors.New("connection refused"), wantState: StateOpen},
		{name: "probe canceled", probeErr: context.Canceled, wantState: StateHalfOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := newFakeClock()
			b := NewBreaker(testConfig(), WithClock(clock.Now))
			for range 4 {
				b.RecordError(1.0)
			}
			if b.Allow() {
				t.Fatal("should reject before open timeout")
			}

			clock.Advance(5 * time.Second)
			if !b.Allow() {
				t.Fatal("should allow probe after open timeout")
			}
			if b.State() != StateHalfOpen {
				t.Fatalf("state = %v, want half_open", b.State())
			}
			if b.Allow() {
				t.Fatal("second call during probe should be rejected")
			}

			b.Record(tt.probeErr)
			if b.State() != tt.wantState {
				t.Fatalf("state = %v, want %v", b.State(), tt.wantState)
			}
		})
	}
}

func TestBreaker_CanceledDoesNotTrip(t *testing.T) {
	t.Parallel()

	b := NewBreaker(testConfig())
	for range 10 {
		b.Record(context.Canceled)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_CanceledProbeFreesSlot(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	b := NewBreaker(testConfig(), WithClock(clock.Now))
	for range 4 {
		b.RecordError(WeightFailure)
	}
	clock.Advance(5 * time.Second)
	if !b.Allow() {
		t.Fatal("should allow probe after open timeout")
	}
	b.Record(context.Canceled)
	if !b.Allow() {
		t.Fatal("canceled probe should free the slot for another probe")
	}
	b.Record(nil)
	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var transitions []string
	b := NewBreaker(testConfig(), WithClock(clock.Now), OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	for range 4 {
		b.RecordError(1.0)
	}
	clock.Advance(6 * time.Second)
	b.Allow()
	b.RecordSuccess()

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	b := NewBreaker(Config{
		ErrorThreshold: 0.50,
		MinSamples:     100,
		WindowSeconds:  60,
		OpenTimeout:    time.Millisecond,
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			for range 100 {
				b.Allow()
				b.RecordSuccess()
				b.RecordError(0.5)
				_ = b.State()
			}
		})
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

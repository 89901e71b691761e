// Package circuitbreaker implements a sliding-window circuit breaker used to
// short-circuit calls to a failing cache store. While the breaker is open,
// callers skip the store in nanoseconds instead of waiting out a network timeout
// on every request.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows all calls through.
	StateClosed State = iota
	// StateOpen rejects all calls.
	StateOpen
	// StateHalfOpen allows a single probe call.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker parameters.
type Config struct {
	ErrorThreshold float64       // weighted error rate to trip (e.g. 0.50)
	MinSamples     int           // minimum calls before the breaker can open
	WindowSeconds  int           // sliding window duration in seconds, at most 60
	OpenTimeout    time.Duration // time in OPEN before a half-open probe
}

// DefaultConfig returns defaults tuned for a cache store: a short window and a
// short open period, since the store is expected to recover quickly.
func DefaultConfig() Config {
	return Config{
		ErrorThreshold: 0.50,
		MinSamples:     20,
		WindowSeconds:  10,
		OpenTimeout:    5 * time.Second,
	}
}

// bucket holds error and call counts for a 1-second slot.
type bucket struct {
	errors float64 // weighted error sum
	total  int
}

// SlidingWindow is a fixed-size ring buffer of 1-second buckets.
type SlidingWindow struct {
	buckets  [60]bucket
	size     int   // active buckets (== window seconds)
	head     int   // index of current bucket
	headTime int64 // unix seconds of head bucket
}

func newSlidingWindow(windowSeconds int) SlidingWindow {
	if windowSeconds <= 0 || windowSeconds > 60 {
		windowSeconds = 60
	}
	return SlidingWindow{size: windowSeconds}
}

// advance moves the head forward to nowSec, clearing buckets that fell out of the window.
func (w *SlidingWindow) advance(nowSec int64) {
	if w.headTime == 0 {
		w.headTime = nowSec
		return
	}
	gap := nowSec - w.headTime
	if gap <= 0 {
		return
	}
	stale := min(int(gap), w.size)
	for i := range stale {
		w.buckets[(w.head+1+i)%w.size] = bucket{}
	}
	w.head = (w.head + int(gap)) % w.size
	w.headTime = nowSec
}

// Record adds a call with the given error weight. Weight 0 means success.
func (w *SlidingWindow) Record(weight float64, now time.Time) {
	w.advance(now.Unix())
	w.buckets[w.head].total++
	w.buckets[w.head].errors += weight
}

// ErrorRate returns the weighted error rate and sample count across the window.
func (w *SlidingWindow) ErrorRate(now time.Time) (rate float64, samples int) {
	w.advance(now.Unix())
	var errs float64
	for i := range w.size {
		errs += w.buckets[i].errors
		samples += w.buckets[i].total
	}
	if samples == 0 {
		return 0, 0
	}
	return errs / float64(samples), samples
}

// Reset clears all buckets.
func (w *SlidingWindow) Reset() {
	for i := range w.size {
		w.buckets[i] = bucket{}
	}
	w.headTime = 0
	w.head = 0
}

// Breaker is a circuit breaker state machine. It is safe for concurrent use.
type Breaker struct {
	mu          sync.Mutex
	state       State
	window      SlidingWindow
	openedAt    time.Time
	probing     bool // a half-open probe is in flight
	threshold   float64
	minSamples  int
	openTimeout time.Duration
	now         func() time.Time
	onChange    func(from, to State)
}

// Option customizes a Breaker.
type Option func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// OnStateChange registers a callback invoked (under the breaker lock) on every
// state transition. The callback must not call back into the breaker.
func OnStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

// NewBreaker creates a closed breaker with the given config.
func NewBreaker(cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		state:       StateClosed,
		window:      newSlidingWindow(cfg.WindowSeconds),
		threshold:   cfg.ErrorThreshold,
		minSamples:  cfg.MinSamples,
		openTimeout: cfg.OpenTimeout,
		now:         time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	s := b.state
	b.mu.Unlock()
	return s
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if now.Sub(b.openedAt) >= b.openTimeout {
			// This call becomes the probe.
			b.transition(StateHalfOpen)
			b.probing = true
			return true
		}
		return false
	case StateHalfOpen:
		if !b.probing {
			b.probing = true
			return true
		}
		return false
	}
	return false
}

// Record classifies err and records the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	w, neutral := ClassifyError(err)
	switch {
	case neutral:
		b.release()
	case w > 0:
		b.RecordError(w)
	default:
		b.RecordSuccess()
	}
}

// release frees a half-open probe slot without judging the store.
func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window.Record(0, now)

	if b.state == StateHalfOpen {
		b.transition(StateClosed)
		b.probing = false
		b.window.Reset()
	}
}

// RecordError records a failed call with the given error weight.
func (b *Breaker) RecordError(weight float64) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.window.Record(weight, now)

	switch b.state {
	case StateClosed:
		rate, samples := b.window.ErrorRate(now)
		if samples >= b.minSamples && rate >= b.threshold {
			b.transition(StateOpen)
			b.openedAt = now
		}
	case StateHalfOpen:
		b.transition(StateOpen)
		b.openedAt = now
		b.probing = false
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.onChange != nil && from != to {
		b.onChange(from, to)
	}
}

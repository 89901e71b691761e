package cache

import (
	"context"
	"time"

	"github.com/eugener/reel/internal/circuitbreaker"
)

// Guarded wraps a Store with a circuit breaker. While the breaker is open every
// call fails fast with ErrCircuitOpen instead of waiting on a dead store.
type Guarded struct {
	store   Store
	breaker *circuitbreaker.Breaker
}

// NewGuarded returns store guarded by breaker.
func NewGuarded(store Store, breaker *circuitbreaker.Breaker) *Guarded {
	return &Guarded{store: store, breaker: breaker}
}

// Get reads through the breaker. While it is open the call fails fast with
// ErrCircuitOpen; a miss counts as a success.
func (g *Guarded) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !g.breaker.Allow() {
		return nil, false, ErrCircuitOpen
	}
	val, ok, err := g.store.Get(ctx, key)
	g.breaker.Record(err)
	return val, ok, err
}

// Set writes through the breaker, failing fast with ErrCircuitOpen while it is open.
func (g *Guarded) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	err := g.store.Set(ctx, key, val, ttl)
	g.breaker.Record(err)
	return err
}

// State reports the breaker state, for readiness and logging.
func (g *Guarded) State() circuitbreaker.State {
	return g.breaker.State()
}

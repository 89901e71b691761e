// Package cache implements a cache-aside resolver over a pluggable key-value store.
//
// A Resolver owns a Store handle and an operation table. Typed Operation handles
// derive a deterministic key from an operation ID and its arguments, serve hits
// straight from the store, and on a miss call the caller's fetch function and
// write its non-empty result back with the operation TTL. Store failures never
// reach the caller: a failed read is a miss and a failed write is dropped.
package cache

import (
	"context"
	"errors"
	"time"
)

// Store is the key-value store behind the resolver. Implementations must be safe
// for concurrent use and must apply val and ttl in a single atomic write.
type Store interface {
	// Get returns the payload stored under key. A missing or expired key is
	// reported as ok == false with a nil error.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	// Set stores val under key for ttl.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Errors reported by this package.
var (
	// ErrCircuitOpen is returned by a Guarded store while its breaker is open.
	ErrCircuitOpen = errors.New("cache: circuit open")
	// ErrUnsupportedArg is returned when an argument has no canonical encoding.
	ErrUnsupportedArg = errors.New("cache: unsupported argument")
	// ErrShapeMismatch is returned when an operation's declared shape contradicts its result type.
	ErrShapeMismatch = errors.New("cache: result shape mismatch")
	// ErrNoStore is returned by NewResolver without a store.
	ErrNoStore = errors.New("cache: no store configured")
	// ErrCorruptPayload marks a stored payload that does not decode into the
	// operation's result type. The resolver treats it as a miss.
	ErrCorruptPayload = errors.New("cache: corrupt payload")
	// ErrFetchPanic is returned to every caller sharing a flight whose fetch
	// panicked.
	ErrFetchPanic = errors.New("cache: fetch panicked")
)

// Package testutil provides configurable test fakes for reel interfaces.
package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeEntry is one value held by FakeCache.
type FakeEntry struct {
	Value     []byte
	TTL       time.Duration
	ExpiresAt time.Time
}

// FakeCache is an in-memory cache.Store that records every write. Set GetErr
// or SetErr to make the corresponding calls fail.
type FakeCache struct {
	mu      sync.Mutex
	entries map[string]FakeEntry
	getErr  error
	setErr  error
	gets    int
	sets    int
}

// NewFakeCache returns an empty FakeCache.
func NewFakeCache() *FakeCache {
	return &FakeCache{entries: make(map[string]FakeEntry)}
}

// Get returns the live entry for key.
func (c *FakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !time.Now().Before(e.ExpiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.Value, true, nil
}

// Set stores val under key for ttl.
func (c *FakeCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.entries[key] = FakeEntry{
		Value:     append([]byte(nil), val...),
		TTL:       ttl,
		ExpiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Put seeds key directly, bypassing counters and injected errors.
func (c *FakeCache) Put(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = FakeEntry{Value: val, TTL: ttl, ExpiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Entry returns the raw entry for key, expired or not.
func (c *FakeCache) Entry(key string) (FakeEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Len returns the number of held entries.
func (c *FakeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FailGets makes every Get return err. A nil err clears the failure.
func (c *FakeCache) FailGets(err error) {
	c.mu.Lock()
	c.getErr = err
	c.mu.Unlock()
}

// FailSets makes every Set return err. A nil err clears the failure.
func (c *FakeCache) FailSets(err error) {
	c.mu.Lock()
	c.setErr = err
	c.mu.Unlock()
}

// Gets returns the number of Get calls.
func (c *FakeCache) Gets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets
}

// Sets returns the number of Set calls.
func (c *FakeCache) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

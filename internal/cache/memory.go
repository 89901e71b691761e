package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
)

// entry wraps a cached value with its expiration time.
type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process W-TinyLFU store backed by otter. Entries outlive
// neither their own TTL nor maxTTL.
type Memory struct {
	cache *otter.Cache[string, entry]
}

// NewMemory creates an in-memory store holding at most maxSize entries. maxTTL
// bounds how long otter keeps any entry; per-entry TTLs are checked on read.
func NewMemory(maxSize int, maxTTL time.Duration) (*Memory, error) {
	c, err := otter.New[string, entry](&otter.Options[string, entry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryWriting[string, entry](maxTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &Memory{cache: c}, nil
}

// Get returns the value under key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := m.cache.GetIfPresent(key)
	if !ok {
		return nil, false, nil
	}
	if !time.Now().Before(e.expiresAt) {
		m.cache.Invalidate(key)
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores val with a per-entry TTL. The slice is copied so callers may reuse it.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.cache.Set(key, entry{
		data:      append([]byte(nil), val...),
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

package cache

import (
	"context"
	"time"
)

// Tiered serves reads from a local store in front of a shared remote store.
// Local copies live at most localTTL so that other processes' refreshes become
// visible quickly. Local failures are ignored; remote failures are returned.
type Tiered struct {
	local    Store
	remote   Store
	localTTL time.Duration
}

// NewTiered layers local over remote.
func NewTiered(local, remote Store, localTTL time.Duration) *Tiered {
	return &Tiered{local: local, remote: remote, localTTL: localTTL}
}

// Get checks the local store, then the remote one, backfilling local on a remote hit.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if val, ok, err := t.local.Get(ctx, key); err == nil && ok {
		return val, true, nil
	}
	val, ok, err := t.remote.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.local.Set(ctx, key, val, t.localTTL)
	return val, true, nil
}

// Set writes the remote store first and mirrors the value locally.
func (t *Tiered) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := t.remote.Set(ctx, key, val, ttl); err != nil {
		return err
	}
	_ = t.local.Set(ctx, key, val, min(ttl, t.localTTL))
	return nil
}

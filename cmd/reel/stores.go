package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/circuitbreaker"
	"github.com/eugener/reel/internal/config"
)

// cacheBackend is the configured store stack plus the handles of its remote
// tier. Ping and Close are nil for the memory backend.
type cacheBackend struct {
	Store cache.Store
	Ping  func(context.Context) error
	Close func() error
}

func (b cacheBackend) close() {
	if b.Close != nil {
		if err := b.Close(); err != nil {
			slog.Warn("close cache store", "error", err)
		}
	}
}

func openCacheStore(ctx context.Context, cfg config.CacheConfig) (cacheBackend, error) {
	if cfg.Backend == config.BackendMemory {
		mem, err := cache.NewMemory(cfg.MaxSize, maxTTL(cfg))
		if err != nil {
			return cacheBackend{}, err
		}
		return cacheBackend{Store: mem}, nil
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis.RedisOptions())
	if err != nil {
		return cacheBackend{}, fmt.Errorf("open redis: %w", err)
	}
	backend := cacheBackend{Store: rdb, Ping: rdb.Ping, Close: rdb.Close}
	if cfg.Breaker.Enabled {
		breaker := circuitbreaker.NewBreaker(cfg.Breaker.BreakerSettings(),
			circuitbreaker.OnStateChange(func(from, to circuitbreaker.State) {
				slog.Warn("cache store breaker state changed",
					"from", from.String(),
					"to", to.String(),
				)
			}),
		)
		backend.Store = cache.NewGuarded(rdb, breaker)
	}

	if cfg.Backend == config.BackendTiered {
		local, err := cache.NewMemory(cfg.MaxSize, cfg.LocalTTL)
		if err != nil {
			rdb.Close()
			return cacheBackend{}, err
		}
		backend.Store = cache.NewTiered(local, backend.Store, cfg.LocalTTL)
	}
	return backend, nil
}

// maxTTL is the longest TTL any operation can write with. A zero cache TTL
// falls back to the resolver default, as the resolver itself does.
func maxTTL(cfg config.CacheConfig) time.Duration {
	longest := cfg.TTL
	if longest <= 0 {
		longest = cache.DefaultTTL
	}
	for _, op := range cfg.Operations {
		longest = max(longest, op.TTL)
	}
	return longest
}

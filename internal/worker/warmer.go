package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/app"
	"github.com/eugener/reel/internal/storage"
)

// warmTask resolves one hot read through the cache.
type warmTask struct {
	name string
	run  func(ctx context.Context) error
}

// CacheWarmer periodically resolves the most requested pages so that their
// entries are refetched shortly after they expire rather than on a user request.
// A pass over entries that are still cached only reads the store.
type CacheWarmer struct {
	interval time.Duration
	tasks    []warmTask
}

// NewCacheWarmer warms the first genre page and the first film page by
// descending rating every interval.
func NewCacheWarmer(catalog *app.Catalog, interval time.Duration) *CacheWarmer {
	return &CacheWarmer{
		interval: interval,
		tasks: []warmTask{
			{name: app.OpGenreList, run: func(ctx context.Context) error {
				_, err := catalog.Genres.List(ctx, reel.DefaultPage())
				return err
			}},
			{name: app.OpFilmList, run: func(ctx context.Context) error {
				_, err := catalog.Films.List(ctx, storage.FilmQuery{
					Sort: reel.FilmSort{Field: reel.SortField, Desc: true},
					Page: reel.DefaultPage(),
				})
				return err
			}},
		},
	}
}

// Name returns the worker identifier.
func (w *CacheWarmer) Name() string { return "cache_warmer" }

// Run warms once immediately, then every interval until ctx is cancelled.
// Failures are logged and never stop the worker.
func (w *CacheWarmer) Run(ctx context.Context) error {
	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.warm(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *CacheWarmer) warm(ctx context.Context) {
	for _, t := range w.tasks {
		if ctx.Err() != nil {
			return
		}
		err := t.run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, reel.ErrNotFound), errors.Is(err, context.Canceled):
			slog.LogAttrs(ctx, slog.LevelDebug, "cache warm skipped",
				slog.String("operation", t.name),
				slog.String("error", err.Error()),
			)
		default:
			slog.LogAttrs(ctx, slog.LevelWarn, "cache warm failed",
				slog.String("operation", t.name),
				slog.String("error", err.Error()),
			)
		}
	}
}

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// Runner supervises background workers. The first worker to fail cancels the
// rest; a panicking worker is reported as a failure instead of crashing the
// process.
type Runner struct {
	workers []Worker
}

// NewRunner creates a Runner with the given workers.
func NewRunner(workers ...Worker) *Runner {
	return &Runner{workers: workers}
}

// Run blocks until every worker has returned. With no workers it waits for ctx.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.workers) == 0 {
		<-ctx.Done()
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range r.workers {
		name := workerName(w)
		g.Go(func() error {
			slog.LogAttrs(ctx, slog.LevelInfo, "worker started", slog.String("worker", name))
			err := supervise(ctx, name, w)
			if err != nil {
				slog.LogAttrs(ctx, slog.LevelError, "worker failed",
					slog.String("worker", name),
					slog.String("error", err.Error()),
				)
				return err
			}
			slog.LogAttrs(ctx, slog.LevelInfo, "worker stopped", slog.String("worker", name))
			return nil
		})
	}
	return g.Wait()
}

func supervise(ctx context.Context, name string, w Worker) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("worker %s: panic: %v\n%s", name, v, debug.Stack())
		}
	}()
	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("worker %s: %w", name, err)
	}
	return nil
}

func workerName(w Worker) string {
	if n, ok := w.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", w)
}

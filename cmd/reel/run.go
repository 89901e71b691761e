package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugener/reel/internal/app"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/config"
	"github.com/eugener/reel/internal/server"
	"github.com/eugener/reel/internal/storage/sqlite"
	"github.com/eugener/reel/internal/telemetry"
	"github.com/eugener/reel/internal/worker"
)

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Telemetry.LogLevel)

	slog.Info("starting reel", "version", version, "addr", cfg.Server.Addr, "cache_backend", cfg.Cache.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	// Metrics
	var metrics *telemetry.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = telemetry.NewMetrics(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Open database
	store, err := sqlite.New(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Bootstrap from fixture
	if _, err := config.Bootstrap(ctx, cfg, store); err != nil {
		return err
	}

	// Cache
	backend, err := openCacheStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer backend.close()

	ops, err := cfg.Cache.OperationSpecs()
	if err != nil {
		return err
	}
	resolver, err := cache.NewResolver(cache.Options{
		Store:         backend.Store,
		TTL:           cfg.Cache.TTL,
		StoreTimeout:  cfg.Cache.StoreTimeout,
		SingleFlight:  cfg.Cache.SingleFlight,
		FlightTimeout: cfg.Cache.FlightTimeout,
		Operations:    ops,
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	// Wire services
	catalog, err := app.NewCatalog(store, resolver)
	if err != nil {
		return err
	}

	// Background workers
	var workers []worker.Worker
	if cfg.Warmer.Enabled {
		workers = append(workers, worker.NewCacheWarmer(catalog, cfg.Warmer.Interval))
	}
	workerCtx, stopWorkers := context.WithCancel(ctx)
	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.NewRunner(workers...).Run(workerCtx) }()

	// Create HTTP server
	handler := server.New(server.Deps{
		Catalog:        catalog,
		ReadyCheck:     store.Ping,
		CacheCheck:     backend.Ping,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("reel ready", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		stopWorkers()
		<-workerErr
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	stopWorkers()
	err = errors.Join(err, <-workerErr)
	if err != nil {
		return err
	}

	slog.Info("reel stopped")
	return nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

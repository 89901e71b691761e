// Package telemetry provides observability primitives for the reel service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	CacheShared      *prometheus.CounterVec
	CacheStoreErrors *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	FetchErrors      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "reel",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reel",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "cache_hits_total",
			Help:      "Total cache hits per operation.",
		}, []string{"operation"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "cache_misses_total",
			Help:      "Total cache misses per operation.",
		}, []string{"operation"}),

		CacheShared: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "cache_shared_total",
			Help:      "Total fetches shared between concurrent misses on the same key.",
		}, []string{"operation"}),

		CacheStoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "cache_store_errors_total",
			Help:      "Total cache store failures absorbed by the resolver.",
		}, []string{"operation", "phase"}),

		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "reel",
			Name:                            "fetch_duration_seconds",
			Help:                            "Source-of-truth fetch duration on cache miss.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"operation"}),

		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reel",
			Name:      "fetch_errors_total",
			Help:      "Total fetch failures propagated to callers.",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.CacheHits,
		m.CacheMisses,
		m.CacheShared,
		m.CacheStoreErrors,
		m.FetchDuration,
		m.FetchErrors,
	)

	return m
}

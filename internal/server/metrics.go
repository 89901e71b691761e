package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/reel/internal/telemetry"
)

// unrecorded routes are probes and scrapes; counting them would drown the
// catalogue traffic in the request series.
var unrecorded = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// statusLabels caches the label for every valid status code.
var statusLabels = func() (l [600]string) {
	for i := range l {
		l[i] = strconv.Itoa(i)
	}
	return l
}()

func statusLabel(code int) string {
	if code >= 0 && code < len(statusLabels) {
		return statusLabels[code]
	}
	return strconv.Itoa(code)
}

// metricsMiddleware records request duration, status, and in-flight count for
// catalogue routes, labelled by chi route pattern.
func metricsMiddleware(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unrecorded[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()
			start := time.Now()

			sw := acquireStatusWriter(w)
			next.ServeHTTP(sw, r)
			status := sw.status
			releaseStatusWriter(sw)

			pattern := routePattern(r)
			m.RequestsTotal.WithLabelValues(r.Method, pattern, statusLabel(status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the matched chi pattern; unmatched requests share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Package server implements the HTTP transport layer for the reel catalogue.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eugener/reel/internal/app"
	"github.com/eugener/reel/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Catalog        *app.Catalog
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	CacheCheck     ReadyChecker       // reported by /readyz, never fails it; nil = not reported
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = no /metrics route
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(middleware.StripSlashes)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/films", func(r chi.Router) {
			r.Get("/", s.handleListFilms)
			r.Get("/search", s.handleSearchFilms)
			r.Get("/{film_id}", s.handleGetFilm)
		})
		r.Route("/genres", func(r chi.Router) {
			r.Get("/", s.handleListGenres)
			r.Get("/search", s.handleSearchGenres)
			r.Get("/{genre_id}", s.handleGetGenre)
		})
		r.Route("/persons", func(r chi.Router) {
			r.Get("/search", s.handleSearchPersons)
			r.Get("/{person_id}", s.handleGetPerson)
			r.Get("/{person_id}/film", s.handlePersonFilms)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})

	return r
}

type server struct {
	deps Deps
}

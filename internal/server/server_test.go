package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/app"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/testutil"
)

func newTestCatalog(t testing.TB) (*app.Catalog, *testutil.FakeStore) {
	t.Helper()
	store := testutil.NewFakeStore()
	ctx := context.Background()
	drama := reel.Genre{ID: "g-drama", Name: "Drama"}
	ford := reel.Person{ID: "p-ford", FullName: "Harrison Ford"}
	store.PutGenre(ctx, &drama)
	store.PutPerson(ctx, &ford)
	store.PutFilm(ctx, &reel.FilmDetail{
		ID: "f-sw", Title: "Star Wars", IMDbRating: 8.6,
		Genres: []reel.Genre{drama}, Actors: []reel.Person{ford},
	})
	store.PutFilm(ctx, &reel.FilmDetail{ID: "f-witness", Title: "Witness", IMDbRating: 7.4, Actors: []reel.Person{ford}})

	r, err := cache.NewResolver(cache.Options{Store: testutil.NewFakeCache()})
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := app.NewCatalog(store, r)
	if err != nil {
		t.Fatal(err)
	}
	return catalog, store
}

func newTestHandler(t testing.TB) http.Handler {
	t.Helper()
	catalog, _ := newTestCatalog(t)
	return New(Deps{Catalog: catalog})
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := get(newTestHandler(t), "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "ok")
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	rec := get(newTestHandler(t), "/readyz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyzChecks(t *testing.T) {
	t.Parallel()
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		db, cache  ReadyChecker
		wantStatus int
		wantBody   string
	}{
		{"all up", up, up, http.StatusOK, `{"status":"ready","database":"ok","cache":"ok"}`},
		{"cache down", up, down, http.StatusOK, `{"status":"ready","database":"ok","cache":"degraded"}`},
		{"db down", down, up, http.StatusServiceUnavailable, `{"status":"not ready","database":"unavailable","cache":"ok"}`},
		{"no cache check", up, nil, http.StatusOK, `{"status":"ready","database":"ok"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			catalog, _ := newTestCatalog(t)
			h := New(Deps{Catalog: catalog, ReadyCheck: tt.db, CacheCheck: tt.cache})

			rec := get(h, "/readyz")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)

	if get(h, "/healthz").Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("request id = %q, want client-id", got)
	}
}

func TestCatalogRoutes(t *testing.T) {
	t.Parallel()
	h := newTestHandler(t)

	tests := []struct {
		name     string
		target   string
		status   int
		contains string
	}{
		{"film", "/api/v1/films/f-sw", http.StatusOK, `"title":"Star Wars"`},
		{"film trailing slash", "/api/v1/films/f-sw/", http.StatusOK, `"title":"Star Wars"`},
		{"film missing", "/api/v1/films/nope", http.StatusNotFound, `"detail"`},
		{"films", "/api/v1/films?sort=-imdb_rating", http.StatusOK, `"id":"f-sw"`},
		{"films by genre", "/api/v1/films/?genre=g-drama", http.StatusOK, `"id":"f-sw"`},
		{"films bad sort", "/api/v1/films?sort=title", http.StatusUnprocessableEntity, "unsupported sort"},
		{"films bad page", "/api/v1/films?page_size=51", http.StatusUnprocessableEntity, "page_size"},
		{"films page not int", "/api/v1/films?page_number=x", http.StatusUnprocessableEntity, "page_number"},
		{"films past end", "/api/v1/films?page_number=9", http.StatusOK, `[]`},
		{"film search", "/api/v1/films/search?query=star", http.StatusOK, `"Star Wars"`},
		{"film search short", "/api/v1/films/search?query=st", http.StatusUnprocessableEntity, "at least 3"},
		{"genres", "/api/v1/genres", http.StatusOK, `"name":"Drama"`},
		{"genre", "/api/v1/genres/g-drama", http.StatusOK, `"name":"Drama"`},
		{"genre search", "/api/v1/genres/search?query=dra", http.StatusOK, `"g-drama"`},
		{"genre search no match", "/api/v1/genres/search?query=NonExistentGenre", http.StatusOK, `[]`},
		{"film search past end", "/api/v1/films/search?query=star&page_number=2&page_size=1", http.StatusOK, `[]`},
		{"genre search empty", "/api/v1/genres/search", http.StatusUnprocessableEntity, `"detail"`},
		{"person", "/api/v1/persons/p-ford", http.StatusOK, `"full_name":"Harrison Ford"`},
		{"person search", "/api/v1/persons/search?query=ford", http.StatusOK, `"roles":["actor"]`},
		{"person films", "/api/v1/persons/p-ford/film", http.StatusOK, `"f-witness"`},
		{"person films unknown", "/api/v1/persons/nope/film", http.StatusOK, `[]`},
		{"person missing", "/api/v1/persons/nope", http.StatusNotFound, `"detail"`},
		{"unknown route", "/api/v2/films", http.StatusNotFound, `"detail":"not found"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(h, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body = %s, want it to contain %s", rec.Body.String(), tt.contains)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content-type = %q", ct)
			}
		})
	}
}

func TestFilmServedFromCache(t *testing.T) {
	t.Parallel()
	catalog, store := newTestCatalog(t)
	h := New(Deps{Catalog: catalog})

	for range 3 {
		if rec := get(h, "/api/v1/films/f-sw"); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	if n := store.Calls("GetFilm"); n != 1 {
		t.Errorf("store reads = %d, want 1", n)
	}
}

func TestInternalErrorHidden(t *testing.T) {
	t.Parallel()
	catalog, store := newTestCatalog(t)
	store.Fail(errors.New("secret database path /var/db"))
	h := New(Deps{Catalog: catalog})

	rec := get(h, "/api/v1/films/f-sw")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Detail != "internal server error" {
		t.Errorf("detail = %q", body.Detail)
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	// A nil catalog makes every API handler panic.
	h := New(Deps{})

	rec := get(h, "/api/v1/films/f-sw")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{reel.ErrNotFound, http.StatusNotFound},
		{errors.Join(errors.New("ctx"), reel.ErrBadRequest), http.StatusUnprocessableEntity},
		{reel.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

// Package reel defines domain types for the reel content-query service.
// This package has no project imports -- it is the dependency root.
package reel

import (
	"context"
	"fmt"
	"time"
)

// --- Catalogue ---

// Genre is a film genre.
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Person is anyone credited on a film (actor, writer, director).
type Person struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// Film is the short film representation used in lists and search results.
type Film struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	IMDbRating float64 `json:"imdb_rating"`
}

// FilmDetail is the full film card.
type FilmDetail struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	IMDbRating   float64    `json:"imdb_rating"`
	Description  string     `json:"description"`
	CreationDate *time.Time `json:"creation_date,omitempty"`
	Genres       []Genre    `json:"genres"`
	Actors       []Person   `json:"actors"`
	Writers      []Person   `json:"writers"`
	Directors    []Person   `json:"directors"`
}

// Short returns the list representation of the film.
func (f *FilmDetail) Short() Film {
	return Film{ID: f.ID, Title: f.Title, IMDbRating: f.IMDbRating}
}

// Credit roles.
const (
	RoleActor    = "actor"
	RoleWriter   = "writer"
	RoleDirector = "director"
)

// PersonFilm is a film a person worked on, with the roles they held.
type PersonFilm struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	IMDbRating float64  `json:"imdb_rating"`
	Roles      []string `json:"roles"`
}

// PersonDetail is a person together with their filmography.
type PersonDetail struct {
	ID       string       `json:"id"`
	FullName string       `json:"full_name"`
	Films    []PersonFilm `json:"films"`
}

// --- Pagination ---

// Page size bounds accepted by the public API.
const (
	DefaultPageSize = 50
	MaxPageSize     = 50
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

// DefaultPage is the first page at the default size.
func DefaultPage() Page {
	return Page{Number: 1, Size: DefaultPageSize}
}

// Validate reports ErrBadRequest for out-of-range page parameters.
func (p Page) Validate() error {
	if p.Number < 1 {
		return fmt.Errorf("%w: page_number must be >= 1", ErrBadRequest)
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrBadRequest, MaxPageSize)
	}
	return nil
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// --- Sorting ---

// SortField is the only sortable film field.
const SortField = "imdb_rating"

// FilmSort is a parsed film ordering. The zero value means storage order.
type FilmSort struct {
	Field string
	Desc  bool
}

// ParseFilmSort parses "imdb_rating" or "-imdb_rating". An empty string is no ordering.
func ParseFilmSort(s string) (FilmSort, error) {
	if s == "" {
		return FilmSort{}, nil
	}
	desc := false
	field := s
	if field[0] == '-' {
		desc = true
		field = field[1:]
	}
	if field != SortField {
		return FilmSort{}, fmt.Errorf("%w: unsupported sort %q", ErrBadRequest, s)
	}
	return FilmSort{Field: field, Desc: desc}, nil
}

// String returns the wire form of the ordering.
func (s FilmSort) String() string {
	if s.Field == "" {
		return ""
	}
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// --- Context keys ---

type contextKey int

const ctxKeyRequestID contextKey = 0

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

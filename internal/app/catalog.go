// Package app implements the catalogue read services. Every read path is a
// cached operation resolved through the shared cache.Resolver.
package app

import (
	"errors"
	"fmt"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/storage"
)

// Cached operation identifiers. They namespace cache keys and name rows of the
// operation table in config.
const (
	OpFilmByID     = "film_by_id"
	OpFilmList     = "film_list"
	OpFilmSearch   = "film_search"
	OpGenreByID    = "genre_by_id"
	OpGenreList    = "genre_list"
	OpGenreSearch  = "genre_search"
	OpPersonByID   = "person_by_id"
	OpPersonSearch = "person_search"
	OpPersonFilms  = "person_films"
)

// Operations lists every cached operation.
var Operations = []string{
	OpFilmByID, OpFilmList, OpFilmSearch,
	OpGenreByID, OpGenreList, OpGenreSearch,
	OpPersonByID, OpPersonSearch, OpPersonFilms,
}

// Catalog bundles the read services.
type Catalog struct {
	Films   *FilmService
	Genres  *GenreService
	Persons *PersonService
}

// NewCatalog registers every cached operation on r and returns the services.
func NewCatalog(store storage.Store, r *cache.Resolver) (*Catalog, error) {
	films, err := NewFilmService(store, r)
	if err != nil {
		return nil, err
	}
	genres, err := NewGenreService(store, r)
	if err != nil {
		return nil, err
	}
	persons, err := NewPersonService(store, r)
	if err != nil {
		return nil, err
	}
	return &Catalog{Films: films, Genres: genres, Persons: persons}, nil
}

// register is cache.Register with the error annotated for startup logs.
func register[T any](r *cache.Resolver, id string) (*cache.Operation[T], error) {
	op, err := cache.Register[T](r, id)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", id, err)
	}
	return op, nil
}

// absentOnNotFound turns a store ErrNotFound into an absent result, which the
// resolver never caches.
func absentOnNotFound[T any](v T, err error) (T, error) {
	if errors.Is(err, reel.ErrNotFound) {
		var zero T
		return zero, nil
	}
	return v, err
}

// orEmpty keeps "no results" a JSON array. Empty results are never cached, so
// they are resolved fresh on every call.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// pageArgs adds the paging arguments shared by list operations.
func pageArgs(args cache.Args, page reel.Page) cache.Args {
	args["page_number"] = page.Number
	args["page_size"] = page.Size
	return args
}

// optional maps an empty filter to null so "no filter" has one key.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Package storage defines persistence interfaces for the catalogue.
package storage

import (
	"context"

	reel "github.com/eugener/reel/internal"
)

// FilmQuery filters and orders a film listing.
type FilmQuery struct {
	GenreID string // empty = all genres
	Sort    reel.FilmSort
	Page    reel.Page
}

// FilmStore manages film persistence.
type FilmStore interface {
	PutFilm(ctx context.Context, f *reel.FilmDetail) error
	GetFilm(ctx context.Context, id string) (*reel.FilmDetail, error)
	ListFilms(ctx context.Context, q FilmQuery) ([]reel.Film, error)
	SearchFilms(ctx context.Context, query string, page reel.Page) ([]reel.Film, error)
}

// GenreStore manages genre persistence.
type GenreStore interface {
	PutGenre(ctx context.Context, g *reel.Genre) error
	GetGenre(ctx context.Context, id string) (*reel.Genre, error)
	ListGenres(ctx context.Context, page reel.Page) ([]reel.Genre, error)
	SearchGenres(ctx context.Context, query string, page reel.Page) ([]reel.Genre, error)
}

// PersonStore manages person persistence.
type PersonStore interface {
	PutPerson(ctx context.Context, p *reel.Person) error
	GetPerson(ctx context.Context, id string) (*reel.PersonDetail, error)
	SearchPersons(ctx context.Context, query string, page reel.Page) ([]reel.PersonDetail, error)
	ListPersonFilms(ctx context.Context, personID string) ([]reel.Film, error)
}

// Store combines all storage interfaces.
type Store interface {
	FilmStore
	GenreStore
	PersonStore
	Ping(ctx context.Context) error
	Close() error
}

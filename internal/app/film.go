package app

import (
	"context"
	"fmt"
	"strings"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/storage"
)

// MinFilmQuery is the shortest accepted film search query.
const MinFilmQuery = 3

// FilmService serves film cards, listings and search.
type FilmService struct {
	store  storage.FilmStore
	byID   *cache.Operation[*reel.FilmDetail]
	list   *cache.Operation[[]reel.Film]
	search *cache.Operation[[]reel.Film]
}

// NewFilmService registers the film operations on r.
func NewFilmService(store storage.FilmStore, r *cache.Resolver) (*FilmService, error) {
	s := &FilmService{store: store}
	var err error
	if s.byID, err = register[*reel.FilmDetail](r, OpFilmByID); err != nil {
		return nil, err
	}
	if s.list, err = register[[]reel.Film](r, OpFilmList); err != nil {
		return nil, err
	}
	if s.search, err = register[[]reel.Film](r, OpFilmSearch); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the film card for id.
func (s *FilmService) Get(ctx context.Context, id string) (*reel.FilmDetail, error) {
	f, err := s.byID.Resolve(ctx, cache.Args{"id": id}, func(ctx context.Context) (*reel.FilmDetail, error) {
		return absentOnNotFound(s.store.GetFilm(ctx, id))
	})
	if err != nil {
		return nil, fmt.Errorf("get film %s: %w", id, err)
	}
	if f == nil {
		return nil, fmt.Errorf("film %s: %w", id, reel.ErrNotFound)
	}
	return f, nil
}

// List returns a page of films, optionally filtered by genre and sorted by rating.
func (s *FilmService) List(ctx context.Context, q storage.FilmQuery) ([]reel.Film, error) {
	if err := q.Page.Validate(); err != nil {
		return nil, err
	}
	args := pageArgs(cache.Args{
		"genre": optional(q.GenreID),
		"sort":  optional(q.Sort.String()),
	}, q.Page)
	films, err := s.list.Resolve(ctx, args, func(ctx context.Context) ([]reel.Film, error) {
		return s.store.ListFilms(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}
	return orEmpty(films), nil
}

// Search returns a page of films matching query.
func (s *FilmService) Search(ctx context.Context, query string, page reel.Page) ([]reel.Film, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinFilmQuery {
		return nil, fmt.Errorf("%w: query must be at least %d characters", reel.ErrBadRequest, MinFilmQuery)
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	films, err := s.search.Resolve(ctx, pageArgs(cache.Args{"query": query}, page), func(ctx context.Context) ([]reel.Film, error) {
		return s.store.SearchFilms(ctx, query, page)
	})
	if err != nil {
		return nil, fmt.Errorf("search films: %w", err)
	}
	return orEmpty(films), nil
}

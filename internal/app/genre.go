package app

import (
	"context"
	"fmt"
	"strings"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/storage"
)

// MinGenreQuery is the shortest accepted genre search query.
const MinGenreQuery = 1

// GenreService serves genres.
type GenreService struct {
	store  storage.GenreStore
	byID   *cache.Operation[*reel.Genre]
	list   *cache.Operation[[]reel.Genre]
	search *cache.Operation[[]reel.Genre]
}

// NewGenreService registers the genre operations on r.
func NewGenreService(store storage.GenreStore, r *cache.Resolver) (*GenreService, error) {
	s := &GenreService{store: store}
	var err error
	if s.byID, err = register[*reel.Genre](r, OpGenreByID); err != nil {
		return nil, err
	}
	if s.list, err = register[[]reel.Genre](r, OpGenreList); err != nil {
		return nil, err
	}
	if s.search, err = register[[]reel.Genre](r, OpGenreSearch); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the genre with id.
func (s *GenreService) Get(ctx context.Context, id string) (*reel.Genre, error) {
	g, err := s.byID.Resolve(ctx, cache.Args{"id": id}, func(ctx context.Context) (*reel.Genre, error) {
		return absentOnNotFound(s.store.GetGenre(ctx, id))
	})
	if err != nil {
		return nil, fmt.Errorf("get genre %s: %w", id, err)
	}
	if g == nil {
		return nil, fmt.Errorf("genre %s: %w", id, reel.ErrNotFound)
	}
	return g, nil
}

// List returns a page of genres.
func (s *GenreService) List(ctx context.Context, page reel.Page) ([]reel.Genre, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	genres, err := s.list.Resolve(ctx, pageArgs(cache.Args{}, page), func(ctx context.Context) ([]reel.Genre, error) {
		return s.store.ListGenres(ctx, page)
	})
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return orEmpty(genres), nil
}

// Search returns a page of genres whose name matches query.
func (s *GenreService) Search(ctx context.Context, query string, page reel.Page) ([]reel.Genre, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinGenreQuery {
		return nil, fmt.Errorf("%w: query must be at least %d characters", reel.ErrBadRequest, MinGenreQuery)
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	genres, err := s.search.Resolve(ctx, pageArgs(cache.Args{"query": query}, page), func(ctx context.Context) ([]reel.Genre, error) {
		return s.store.SearchGenres(ctx, query, page)
	})
	if err != nil {
		return nil, fmt.Errorf("search genres: %w", err)
	}
	return orEmpty(genres), nil
}

package app

import (
	"context"
	"fmt"
	"strings"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/cache"
	"github.com/eugener/reel/internal/storage"
)

// PersonService serves persons and their filmographies.
type PersonService struct {
	store  storage.PersonStore
	byID   *cache.Operation[*reel.PersonDetail]
	search *cache.Operation[[]reel.PersonDetail]
	films  *cache.Operation[[]reel.Film]
}

// NewPersonService registers the person operations on r.
func NewPersonService(store storage.PersonStore, r *cache.Resolver) (*PersonService, error) {
	s := &PersonService{store: store}
	var err error
	if s.byID, err = register[*reel.PersonDetail](r, OpPersonByID); err != nil {
		return nil, err
	}
	if s.search, err = register[[]reel.PersonDetail](r, OpPersonSearch); err != nil {
		return nil, err
	}
	if s.films, err = register[[]reel.Film](r, OpPersonFilms); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the person with id and their filmography.
func (s *PersonService) Get(ctx context.Context, id string) (*reel.PersonDetail, error) {
	p, err := s.byID.Resolve(ctx, cache.Args{"id": id}, func(ctx context.Context) (*reel.PersonDetail, error) {
		return absentOnNotFound(s.store.GetPerson(ctx, id))
	})
	if err != nil {
		return nil, fmt.Errorf("get person %s: %w", id, err)
	}
	if p == nil {
		return nil, fmt.Errorf("person %s: %w", id, reel.ErrNotFound)
	}
	return p, nil
}

// Search returns a page of persons whose name matches query. An empty query
// matches everyone.
func (s *PersonService) Search(ctx context.Context, query string, page reel.Page) ([]reel.PersonDetail, error) {
	query = strings.TrimSpace(query)
	if err := page.Validate(); err != nil {
		return nil, err
	}
	persons, err := s.search.Resolve(ctx, pageArgs(cache.Args{"query": query}, page), func(ctx context.Context) ([]reel.PersonDetail, error) {
		return s.store.SearchPersons(ctx, query, page)
	})
	if err != nil {
		return nil, fmt.Errorf("search persons: %w", err)
	}
	return orEmpty(persons), nil
}

// Films returns the films a person is credited on.
func (s *PersonService) Films(ctx context.Context, id string) ([]reel.Film, error) {
	films, err := s.films.Resolve(ctx, cache.Args{"id": id}, func(ctx context.Context) ([]reel.Film, error) {
		return s.store.ListPersonFilms(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("person %s films: %w", id, err)
	}
	return orEmpty(films), nil
}

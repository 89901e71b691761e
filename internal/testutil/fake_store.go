package testutil

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/storage"
)

// FakeStore is an in-memory implementation of storage.Store for testing.
// It counts calls per method so tests can tell cache hits from store reads.
type FakeStore struct {
	mu      sync.RWMutex
	films   map[string]*reel.FilmDetail
	genres  map[string]*reel.Genre
	persons map[string]*reel.Person
	calls   map[string]int
	err     error
}

var _ storage.Store = (*FakeStore)(nil)

// NewFakeStore returns a FakeStore with empty collections.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		films:   make(map[string]*reel.FilmDetail),
		genres:  make(map[string]*reel.Genre),
		persons: make(map[string]*reel.Person),
		calls:   make(map[string]int),
	}
}

// Fail makes every read return err. A nil err clears the failure.
func (s *FakeStore) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Calls returns how many times method was called.
func (s *FakeStore) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

// read records a call and returns the injected failure, if any.
// Callers must hold mu.
func (s *FakeStore) read(method string) error {
	s.calls[method]++
	return s.err
}

// --- Writes ---

// PutFilm stores a film.
func (s *FakeStore) PutFilm(_ context.Context, f *reel.FilmDetail) error {
	s.mu.Lock()
	c := *f
	s.films[f.ID] = &c
	s.mu.Unlock()
	return nil
}

// PutGenre stores a genre.
func (s *FakeStore) PutGenre(_ context.Context, g *reel.Genre) error {
	s.mu.Lock()
	c := *g
	s.genres[g.ID] = &c
	s.mu.Unlock()
	return nil
}

// PutPerson stores a person.
func (s *FakeStore) PutPerson(_ context.Context, p *reel.Person) error {
	s.mu.Lock()
	c := *p
	s.persons[p.ID] = &c
	s.mu.Unlock()
	return nil
}

// --- FilmStore ---

// GetFilm looks up a film by ID.
func (s *FakeStore) GetFilm(_ context.Context, id string) (*reel.FilmDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetFilm"); err != nil {
		return nil, err
	}
	f, ok := s.films[id]
	if !ok {
		return nil, reel.ErrNotFound
	}
	c := *f
	return &c, nil
}

// ListFilms filters by genre and sorts like the SQLite store.
func (s *FakeStore) ListFilms(_ context.Context, q storage.FilmQuery) ([]reel.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListFilms"); err != nil {
		return nil, err
	}
	var out []reel.Film
	for _, f := range s.films {
		if q.GenreID != "" && !slices.ContainsFunc(f.Genres, func(g reel.Genre) bool { return g.ID == q.GenreID }) {
			continue
		}
		out = append(out, f.Short())
	}
	slices.SortFunc(out, func(a, b reel.Film) int {
		if q.Sort.Field != "" {
			c := cmp.Compare(a.IMDbRating, b.IMDbRating)
			if q.Sort.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return paginate(out, q.Page), nil
}

// SearchFilms matches query against titles.
func (s *FakeStore) SearchFilms(_ context.Context, query string, page reel.Page) ([]reel.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("SearchFilms"); err != nil {
		return nil, err
	}
	var out []reel.Film
	for _, f := range s.films {
		if contains(f.Title, query) {
			out = append(out, f.Short())
		}
	}
	slices.SortFunc(out, func(a, b reel.Film) int { return cmp.Compare(a.ID, b.ID) })
	return paginate(out, page), nil
}

// --- GenreStore ---

// GetGenre looks up a genre by ID.
func (s *FakeStore) GetGenre(_ context.Context, id string) (*reel.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetGenre"); err != nil {
		return nil, err
	}
	g, ok := s.genres[id]
	if !ok {
		return nil, reel.ErrNotFound
	}
	c := *g
	return &c, nil
}

// ListGenres returns genres ordered by name.
func (s *FakeStore) ListGenres(_ context.Context, page reel.Page) ([]reel.Genre, error) {
	return s.genresMatching("ListGenres", "", page)
}

// SearchGenres matches query against genre names.
func (s *FakeStore) SearchGenres(_ context.Context, query string, page reel.Page) ([]reel.Genre, error) {
	return s.genresMatching("SearchGenres", query, page)
}

func (s *FakeStore) genresMatching(method, query string, page reel.Page) ([]reel.Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read(method); err != nil {
		return nil, err
	}
	var out []reel.Genre
	for _, g := range s.genres {
		if contains(g.Name, query) {
			out = append(out, *g)
		}
	}
	slices.SortFunc(out, func(a, b reel.Genre) int { return cmp.Compare(a.Name, b.Name) })
	return paginate(out, page), nil
}

// --- PersonStore ---

// GetPerson looks up a person and derives the filmography from stored films.
func (s *FakeStore) GetPerson(_ context.Context, id string) (*reel.PersonDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("GetPerson"); err != nil {
		return nil, err
	}
	p, ok := s.persons[id]
	if !ok {
		return nil, reel.ErrNotFound
	}
	d := s.detail(p)
	return &d, nil
}

// SearchPersons matches query against full names.
func (s *FakeStore) SearchPersons(_ context.Context, query string, page reel.Page) ([]reel.PersonDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("SearchPersons"); err != nil {
		return nil, err
	}
	var out []reel.PersonDetail
	for _, p := range s.persons {
		if contains(p.FullName, query) {
			out = append(out, s.detail(p))
		}
	}
	slices.SortFunc(out, func(a, b reel.PersonDetail) int { return cmp.Compare(a.FullName, b.FullName) })
	return paginate(out, page), nil
}

// ListPersonFilms returns the films a person is credited on.
func (s *FakeStore) ListPersonFilms(_ context.Context, personID string) ([]reel.Film, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.read("ListPersonFilms"); err != nil {
		return nil, err
	}
	var out []reel.Film
	for _, pf := range s.detail(&reel.Person{ID: personID}).Films {
		out = append(out, reel.Film{ID: pf.ID, Title: pf.Title, IMDbRating: pf.IMDbRating})
	}
	return out, nil
}

// detail must be called with mu held.
func (s *FakeStore) detail(p *reel.Person) reel.PersonDetail {
	d := reel.PersonDetail{ID: p.ID, FullName: p.FullName, Films: []reel.PersonFilm{}}
	credited := func(people []reel.Person) bool {
		return slices.ContainsFunc(people, func(c reel.Person) bool { return c.ID == p.ID })
	}
	for _, f := range s.films {
		var roles []string
		if credited(f.Actors) {
			roles = append(roles, reel.RoleActor)
		}
		if credited(f.Directors) {
			roles = append(roles, reel.RoleDirector)
		}
		if credited(f.Writers) {
			roles = append(roles, reel.RoleWriter)
		}
		if roles != nil {
			d.Films = append(d.Films, reel.PersonFilm{ID: f.ID, Title: f.Title, IMDbRating: f.IMDbRating, Roles: roles})
		}
	}
	slices.SortFunc(d.Films, func(a, b reel.PersonFilm) int {
		if c := cmp.Compare(b.IMDbRating, a.IMDbRating); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return d
}

// Ping always succeeds unless a failure is injected.
func (s *FakeStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Close is a no-op.
func (s *FakeStore) Close() error { return nil }

func contains(s, query string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(query)))
}

func paginate[T any](items []T, page reel.Page) []T {
	start := min(max(page.Offset(), 0), len(items))
	end := min(start+page.Size, len(items))
	return items[start:end]
}

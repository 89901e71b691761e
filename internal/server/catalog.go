package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/storage"
)

// pageFromQuery reads page_number and page_size, defaulting to the first full page.
func pageFromQuery(r *http.Request) (reel.Page, error) {
	page := reel.DefaultPage()
	q := r.URL.Query()
	for name, dst := range map[string]*int{"page_number": &page.Number, "page_size": &page.Size} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, fmt.Errorf("%w: %s must be an integer", reel.ErrBadRequest, name)
		}
		*dst = n
	}
	return page, page.Validate()
}

func (s *server) handleListFilms(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sort, err := reel.ParseFilmSort(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	films, err := s.deps.Catalog.Films.List(r.Context(), storage.FilmQuery{
		GenreID: r.URL.Query().Get("genre"),
		Sort:    sort,
		Page:    page,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, films)
}

func (s *server) handleSearchFilms(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	films, err := s.deps.Catalog.Films.Search(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, films)
}

func (s *server) handleGetFilm(w http.ResponseWriter, r *http.Request) {
	film, err := s.deps.Catalog.Films.Get(r.Context(), chi.URLParam(r, "film_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, film)
}

func (s *server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	genres, err := s.deps.Catalog.Genres.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (s *server) handleSearchGenres(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	genres, err := s.deps.Catalog.Genres.Search(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (s *server) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := s.deps.Catalog.Genres.Get(r.Context(), chi.URLParam(r, "genre_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, genre)
}

func (s *server) handleSearchPersons(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	persons, err := s.deps.Catalog.Persons.Search(r.Context(), r.URL.Query().Get("query"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, persons)
}

func (s *server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	person, err := s.deps.Catalog.Persons.Get(r.Context(), chi.URLParam(r, "person_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (s *server) handlePersonFilms(w http.ResponseWriter, r *http.Request) {
	films, err := s.deps.Catalog.Persons.Films(r.Context(), chi.URLParam(r, "person_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, films)
}

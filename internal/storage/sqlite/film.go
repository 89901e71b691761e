package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	reel "github.com/eugener/reel/internal"
	"github.com/eugener/reel/internal/storage"
)

// PutFilm inserts or replaces a film together with its genre and credit links.
// Referenced genres and persons must already exist.
func (s *Store) PutFilm(ctx context.Context, f *reel.FilmDetail) error {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO films (id, title, description, imdb_rating, creation_date)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description,
		 imdb_rating=excluded.imdb_rating, creation_date=excluded.creation_date`,
		f.ID, f.Title, f.Description, f.IMDbRating, timeToStr(f.CreationDate),
	); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM film_genres WHERE film_id=?`,
		`DELETE FROM film_persons WHERE film_id=?`,
	} {
		if _, err := tx.ExecContext(ctx, q, f.ID); err != nil {
			return err
		}
	}

	for _, g := range f.Genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO film_genres (film_id, genre_id) VALUES (?, ?)`, f.ID, g.ID,
		); err != nil {
			return fmt.Errorf("link genre %s: %w", g.ID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO film_persons (film_id, person_id, role) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for role, people := range map[string][]reel.Person{
		reel.RoleActor:    f.Actors,
		reel.RoleWriter:   f.Writers,
		reel.RoleDirector: f.Directors,
	} {
		for _, p := range people {
			if _, err := stmt.ExecContext(ctx, f.ID, p.ID, role); err != nil {
				return fmt.Errorf("link %s %s: %w", role, p.ID, err)
			}
		}
	}
	return tx.Commit()
}

// GetFilm retrieves the full film card by ID.
func (s *Store) GetFilm(ctx context.Context, id string) (*reel.FilmDetail, error) {
	var f reel.FilmDetail
	var created sql.NullString
	err := s.read.QueryRowContext(ctx,
		`SELECT id, title, imdb_rating, description, creation_date FROM films WHERE id=?`, id,
	).Scan(&f.ID, &f.Title, &f.IMDbRating, &f.Description, &created)
	if err != nil {
		return nil, notFoundErr(err)
	}
	f.CreationDate = parseTime(created)

	rows, err := s.read.QueryContext(ctx,
		`SELECT g.id, g.name, g.description
		 FROM genres g JOIN film_genres fg ON fg.genre_id = g.id
		 WHERE fg.film_id=? ORDER BY g.name`, id,
	)
	if err != nil {
		return nil, err
	}
	if f.Genres, err = scanAll(rows, scanGenre); err != nil {
		return nil, err
	}

	rows, err = s.read.QueryContext(ctx,
		`SELECT p.id, p.full_name, fp.role
		 FROM persons p JOIN film_persons fp ON fp.person_id = p.id
		 WHERE fp.film_id=? ORDER BY p.full_name, p.id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	f.Genres = nonNil(f.Genres)
	f.Actors, f.Writers, f.Directors = []reel.Person{}, []reel.Person{}, []reel.Person{}
	for rows.Next() {
		var p reel.Person
		var role string
		if err := rows.Scan(&p.ID, &p.FullName, &role); err != nil {
			return nil, err
		}
		switch role {
		case reel.RoleActor:
			f.Actors = append(f.Actors, p)
		case reel.RoleWriter:
			f.Writers = append(f.Writers, p)
		case reel.RoleDirector:
			f.Directors = append(f.Directors, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFilms returns a page of films, optionally restricted to one genre.
func (s *Store) ListFilms(ctx context.Context, q storage.FilmQuery) ([]reel.Film, error) {
	var b strings.Builder
	var args []any
	b.WriteString(`SELECT f.id, f.title, f.imdb_rating FROM films f`)
	if q.GenreID != "" {
		b.WriteString(` WHERE EXISTS (SELECT 1 FROM film_genres fg WHERE fg.film_id = f.id AND fg.genre_id = ?)`)
		args = append(args, q.GenreID)
	}
	b.WriteString(orderBy(q.Sort))
	b.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, q.Page.Size, q.Page.Offset())

	rows, err := s.read.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanFilm)
}

// SearchFilms returns a page of films whose title or description contains query,
// title matches first.
func (s *Store) SearchFilms(ctx context.Context, query string, page reel.Page) ([]reel.Film, error) {
	pattern := likePattern(query)
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, title, imdb_rating FROM films
		 WHERE title LIKE ?1 ESCAPE '\' OR description LIKE ?1 ESCAPE '\'
		 ORDER BY (title LIKE ?1 ESCAPE '\') DESC, imdb_rating DESC, id
		 LIMIT ?2 OFFSET ?3`,
		pattern, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanFilm)
}

func orderBy(s reel.FilmSort) string {
	switch {
	case s.Field == "":
		return ` ORDER BY f.id`
	case s.Desc:
		return ` ORDER BY f.imdb_rating DESC, f.id`
	default:
		return ` ORDER BY f.imdb_rating ASC, f.id`
	}
}

func scanFilm(s scanner) (reel.Film, error) {
	var f reel.Film
	if err := s.Scan(&f.ID, &f.Title, &f.IMDbRating); err != nil {
		return reel.Film{}, notFoundErr(err)
	}
	return f, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

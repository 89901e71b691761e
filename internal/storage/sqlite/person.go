package sqlite

import (
	"context"

	reel "github.com/eugener/reel/internal"
)

// PutPerson inserts or replaces a person.
func (s *Store) PutPerson(ctx context.Context, p *reel.Person) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO persons (id, full_name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET full_name=excluded.full_name`,
		p.ID, p.FullName,
	)
	return err
}

// GetPerson retrieves a person with their filmography.
func (s *Store) GetPerson(ctx context.Context, id string) (*reel.PersonDetail, error) {
	var p reel.PersonDetail
	err := s.read.QueryRowContext(ctx,
		`SELECT id, full_name FROM persons WHERE id=?`, id,
	).Scan(&p.ID, &p.FullName)
	if err != nil {
		return nil, notFoundErr(err)
	}
	if p.Films, err = s.filmography(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPersons returns a page of persons whose name contains query, each with
// their filmography.
func (s *Store) SearchPersons(ctx context.Context, query string, page reel.Page) ([]reel.PersonDetail, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, full_name FROM persons
		 WHERE full_name LIKE ? ESCAPE '\'
		 ORDER BY full_name, id LIMIT ? OFFSET ?`,
		likePattern(query), page.Size, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	persons, err := scanAll(rows, func(s scanner) (reel.PersonDetail, error) {
		var p reel.PersonDetail
		err := s.Scan(&p.ID, &p.FullName)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	for i := range persons {
		if persons[i].Films, err = s.filmography(ctx, persons[i].ID); err != nil {
			return nil, err
		}
	}
	return persons, nil
}

// ListPersonFilms returns the distinct films a person is credited on, best rated first.
func (s *Store) ListPersonFilms(ctx context.Context, personID string) ([]reel.Film, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT DISTINCT f.id, f.title, f.imdb_rating
		 FROM films f JOIN film_persons fp ON fp.film_id = f.id
		 WHERE fp.person_id=?
		 ORDER BY f.imdb_rating DESC, f.id`, personID,
	)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanFilm)
}

// filmography returns a person's films with the roles held on each.
func (s *Store) filmography(ctx context.Context, personID string) ([]reel.PersonFilm, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT f.id, f.title, f.imdb_rating, fp.role
		 FROM film_persons fp JOIN films f ON f.id = fp.film_id
		 WHERE fp.person_id=?
		 ORDER BY f.imdb_rating DESC, f.id, fp.role`, personID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	films := []reel.PersonFilm{}
	for rows.Next() {
		var pf reel.PersonFilm
		var role string
		if err := rows.Scan(&pf.ID, &pf.Title, &pf.IMDbRating, &role); err != nil {
			return nil, err
		}
		if n := len(films); n > 0 && films[n-1].ID == pf.ID {
			films[n-1].Roles = append(films[n-1].Roles, role)
			continue
		}
		pf.Roles = []string{role}
		films = append(films, pf)
	}
	return films, rows.Err()
}

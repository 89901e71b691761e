package sqlite

import (
	"context"

	reel "github.com/eugener/reel/internal"
)

// PutGenre inserts or replaces a genre.
func (s *Store) PutGenre(ctx context.Context, g *reel.Genre) error {
	_, err := s.write.ExecContext(ctx,
		`INSERT INTO genres (id, name, description) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, description=excluded.description`,
		g.ID, g.Name, g.Description,
	)
	return err
}

// GetGenre retrieves a genre by ID.
func (s *Store) GetGenre(ctx context.Context, id string) (*reel.Genre, error) {
	row := s.read.QueryRowContext(ctx,
		`SELECT id, name, description FROM genres WHERE id=?`, id,
	)
	g, err := scanGenre(row)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGenres returns a page of genres ordered by name.
func (s *Store) ListGenres(ctx context.Context, page reel.Page) ([]reel.Genre, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, description FROM genres ORDER BY name, id LIMIT ? OFFSET ?`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanGenre)
}

// SearchGenres returns a page of genres whose name contains query.
func (s *Store) SearchGenres(ctx context.Context, query string, page reel.Page) ([]reel.Genre, error) {
	rows, err := s.read.QueryContext(ctx,
		`SELECT id, name, description FROM genres
		 WHERE name LIKE ? ESCAPE '\'
		 ORDER BY name, id LIMIT ? OFFSET ?`,
		likePattern(query), page.Size, page.Offset(),
	)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanGenre)
}

func scanGenre(s scanner) (reel.Genre, error) {
	var g reel.Genre
	if err := s.Scan(&g.ID, &g.Name, &g.Description); err != nil {
		return reel.Genre{}, notFoundErr(err)
	}
	return g, nil
}

// Package sqlite implements the catalogue storage interfaces using SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/eugener/reel/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite. Writes go through a single
// connection; reads use a pool.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

// New opens the catalogue database at dsn, applies migrations, and returns a Store.
// ":memory:" opens a shared in-memory database.
func New(ctx context.Context, dsn string) (*Store, error) {
	fullDSN := "file:" + dsn + "?" + pragmas
	if dsn == ":memory:" {
		// Shared cache so the read and write pools see the same data.
		fullDSN = "file::memory:?mode=memory&cache=shared&" + pragmas
	}

	write, err := openPool(fullDSN, 1)
	if err != nil {
		return nil, fmt.Errorf("open write db: %w", err)
	}
	read, err := openPool(fullDSN, max(4, runtime.NumCPU()))
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read db: %w", err)
	}

	if err := migrate(ctx, write); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &Store{write: write, read: read}, nil
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConns)
	return db, nil
}

// migrate applies the embedded goose migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	_, err = provider.Up(ctx)
	return err
}

// Ping verifies database connectivity through the read pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.read.PingContext(ctx)
}

// Close closes both pools.
func (s *Store) Close() error {
	return errors.Join(s.write.Close(), s.read.Close())
}

// Package store is the variant-partitioned, durable Dependency Store: a
// SQLite-backed record of, per test, which files it depends on and which
// block checksums within those files it touched.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store is a handle to one `.testmondata` database, scoped to one Variant
// for the lifetime of the run.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	Variant string
}

// Open opens (creating if absent) the SQLite database at path and ensures
// its schema is current, scoped to variant. Foreign key enforcement is
// requested via the DSN (`_foreign_keys=on`) rather than a one-shot PRAGMA,
// since database/sql may serve later statements on a different pooled
// connection where a session-scoped PRAGMA would no longer be in effect.
func Open(ctx context.Context, path, variant string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening dependency store: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initializing dependency store schema: %w", err)
	}

	return &Store{db: db, Variant: variant}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing dependency store: %w", err)
	}

	return nil
}

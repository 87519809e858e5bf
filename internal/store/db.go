// ABOUTME: SQLite connection helpers shared by all entity stores
// ABOUTME: Opens databases with WAL mode and creates parent directories

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when inserting a record that is already present.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidPath is returned when a path cannot be canonicalized.
var ErrInvalidPath = errors.New("invalid path")

// Open opens (or creates) a SQLite database at the given path.
// Parent directories are created if needed.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return db, nil
}

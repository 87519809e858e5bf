// ABOUTME: Tracked-file store mapping canonical paths to project context
// ABOUTME: Backs MCP resources/list; add/list/remove/contains over absolute paths

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackedFile is a file registered in a project's context.
type TrackedFile struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	AddedAt time.Time `json:"added_at"`
}

// FileStore persists the set of files tracked by a project.
type FileStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFileStore creates the tracked_files table if needed.
func NewFileStore(db *sql.DB) (*FileStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS tracked_files (
			id TEXT PRIMARY KEY,
			path TEXT UNIQUE NOT NULL,
			added_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracked_files_path ON tracked_files(path);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating tracked_files schema: %w", err)
	}
	return &FileStore{db: db, logger: slog.Default().With("component", "files")}, nil
}

// Add tracks a file by its canonical path. Returns ErrInvalidPath if the path
// cannot be resolved and ErrAlreadyExists if it is already tracked.
func (s *FileStore) Add(ctx context.Context, path string) (*TrackedFile, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	now := time.Now().UTC()
	file := &TrackedFile{
		ID:      uuid.New().String(),
		Path:    canonical,
		AddedAt: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracked_files (id, path, added_at)
		VALUES (?, ?, ?)
	`, file.ID, file.Path, now.Format(time.RFC3339))
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, canonical)
		}
		return nil, fmt.Errorf("inserting tracked file: %w", err)
	}

	s.logger.Debug("tracked file", "path", file.Path)
	return file, nil
}

// Remove untracks a file. Returns ErrNotFound if the path is not tracked.
// Files deleted from disk can still be untracked by their stored path.
func (s *FileStore) Remove(ctx context.Context, path string) error {
	canonical, err := lookupPath(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM tracked_files WHERE path = ?`, canonical)
	if err != nil {
		return fmt.Errorf("deleting tracked file: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, canonical)
	}
	return nil
}

// Contains reports whether the path is tracked.
func (s *FileStore) Contains(ctx context.Context, path string) (bool, error) {
	canonical, err := lookupPath(path)
	if err != nil {
		return false, nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM tracked_files WHERE path = ?`, canonical).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying tracked file: %w", err)
	}
	return true, nil
}

// List returns every tracked file, most recently added first.
func (s *FileStore) List(ctx context.Context) ([]*TrackedFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, added_at
		FROM tracked_files
		ORDER BY added_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tracked files: %w", err)
	}
	defer rows.Close()

	var files []*TrackedFile
	for rows.Next() {
		var file TrackedFile
		var addedAt string
		if err := rows.Scan(&file.ID, &file.Path, &addedAt); err != nil {
			return nil, fmt.Errorf("scanning tracked file row: %w", err)
		}
		file.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracked file rows: %w", err)
	}
	return files, nil
}

// canonicalPath resolves a path to its absolute, symlink-free form. The file
// must exist.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// lookupPath resolves a path for matching against tracked rows: the canonical
// form when the file still exists, the absolute form otherwise.
func lookupPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if canonical, err := filepath.EvalSymlinks(abs); err == nil {
		return canonical, nil
	}
	return abs, nil
}

// isConstraintViolation checks for a SQLite UNIQUE constraint failure.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

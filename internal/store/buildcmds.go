// ABOUTME: Build command store with a single default-flagged row
// ABOUTME: The first command added to an empty store becomes the default

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// BuildCommand is a stored shell command scoped to a project.
type BuildCommand struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Command    string    `json:"command"`
	WorkingDir string    `json:"working_dir,omitempty"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// BuildCommandStore persists a project's build commands. At most one command
// carries the default flag.
type BuildCommandStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBuildCommandStore creates the build_commands table if needed.
func NewBuildCommandStore(db *sql.DB) (*BuildCommandStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS build_commands (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			command TEXT NOT NULL,
			working_dir TEXT,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_build_commands_name ON build_commands(name);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating build_commands schema: %w", err)
	}
	return &BuildCommandStore{db: db, logger: slog.Default().With("component", "buildcmds")}, nil
}

// Add inserts a build command. The new command becomes the default when no
// other command currently holds the flag.
func (s *BuildCommandStore) Add(ctx context.Context, name, command, workingDir string) (*BuildCommand, error) {
	var defaults int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM build_commands WHERE is_default = 1`).Scan(&defaults)
	if err != nil {
		return nil, fmt.Errorf("counting defaults: %w", err)
	}

	now := time.Now().UTC()
	cmd := &BuildCommand{
		ID:         uuid.New().String(),
		Name:       name,
		Command:    command,
		WorkingDir: workingDir,
		IsDefault:  defaults == 0,
		CreatedAt:  now,
	}

	isDefault := 0
	if cmd.IsDefault {
		isDefault = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO build_commands (id, name, command, working_dir, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, cmd.ID, cmd.Name, cmd.Command, nullString(cmd.WorkingDir), isDefault, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting build command: %w", err)
	}

	s.logger.Debug("added build command", "id", cmd.ID, "name", cmd.Name, "is_default", cmd.IsDefault)
	return cmd, nil
}

// Get returns a build command by id, or ErrNotFound.
func (s *BuildCommandStore) Get(ctx context.Context, id string) (*BuildCommand, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, command, working_dir, is_default, created_at
		FROM build_commands WHERE id = ?
	`, id)

	cmd, err := scanBuildCommand(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return cmd, err
}

// Remove deletes a build command by id.
func (s *BuildCommandStore) Remove(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM build_commands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting build command: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefault clears the flag on every command, then sets it on the target.
// The clear and the set are separate statements; a missing target leaves the
// store with no default.
func (s *BuildCommandStore) SetDefault(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE build_commands SET is_default = 0`); err != nil {
		return fmt.Errorf("clearing default flag: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `UPDATE build_commands SET is_default = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("setting default flag: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDefault returns the most recently created command with the default flag,
// or nil when no command is flagged.
func (s *BuildCommandStore) GetDefault(ctx context.Context) (*BuildCommand, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, command, working_dir, is_default, created_at
		FROM build_commands
		WHERE is_default = 1
		ORDER BY created_at DESC
		LIMIT 1
	`)

	cmd, err := scanBuildCommand(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cmd, err
}

// List returns every build command, newest first.
func (s *BuildCommandStore) List(ctx context.Context) ([]*BuildCommand, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, command, working_dir, is_default, created_at
		FROM build_commands
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying build commands: %w", err)
	}
	defer rows.Close()

	var cmds []*BuildCommand
	for rows.Next() {
		cmd, err := scanBuildCommand(rows.Scan)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build command rows: %w", err)
	}
	return cmds, nil
}

func scanBuildCommand(scan func(dest ...any) error) (*BuildCommand, error) {
	var cmd BuildCommand
	var workingDir sql.NullString
	var isDefault int64
	var createdAt string

	if err := scan(&cmd.ID, &cmd.Name, &cmd.Command, &workingDir, &isDefault, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning build command row: %w", err)
	}

	cmd.WorkingDir = workingDir.String
	cmd.IsDefault = isDefault != 0
	cmd.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &cmd, nil
}

// ABOUTME: Ordered todo list store backed by SQLite
// ABOUTME: Positions form a dense zero-based sequence maintained across mutations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Todo is a single task in a project's ordered list.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Position    int64     `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoStore persists a project's ordered todo list.
type TodoStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTodoStore creates the todos table if needed and returns a store bound to db.
func NewTodoStore(db *sql.DB) (*TodoStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			completed INTEGER NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_todos_position ON todos(position);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating todos schema: %w", err)
	}
	return &TodoStore{db: db, logger: slog.Default().With("component", "todos")}, nil
}

// Add inserts a todo. If position is nil the todo is appended; otherwise every
// todo at or above the target position is shifted up first.
func (s *TodoStore) Add(ctx context.Context, title, description string, position *int64) (*Todo, error) {
	pos := int64(0)
	if position != nil {
		pos = *position
	} else {
		next, err := nextPosition(ctx, s.db, "todos")
		if err != nil {
			return nil, err
		}
		pos = next
	}

	if err := shiftPositions(ctx, s.db, "todos", pos, 1); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	todo := &Todo{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Position:    pos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todos (id, title, description, completed, position, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)
	`, todo.ID, todo.Title, nullString(todo.Description), todo.Position,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting todo: %w", err)
	}

	s.logger.Debug("added todo", "id", todo.ID, "position", todo.Position)
	return todo, nil
}

// Remove deletes a todo and shifts the todos behind it down by one.
// Returns ErrNotFound if the id is absent.
func (s *TodoStore) Remove(ctx context.Context, id string) error {
	pos, err := findPosition(ctx, s.db, "todos", id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}

	return shiftPositions(ctx, s.db, "todos", pos+1, -1)
}

// SetCompleted marks a todo complete or incomplete.
func (s *TodoStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	done := 0
	if completed {
		done = 1
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE todos SET completed = ?, updated_at = ? WHERE id = ?
	`, done, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating todo: %w", err)
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

// MoveTo reassigns a todo to a new position, shifting the todos in between.
// Moving a todo to its current position is a no-op.
func (s *TodoStore) MoveTo(ctx context.Context, id string, newPosition int64) error {
	return moveTo(ctx, s.db, "todos", id, newPosition, time.Now().UTC().Format(time.RFC3339))
}

// List returns every todo ordered by ascending position.
func (s *TodoStore) List(ctx context.Context) ([]*Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, completed, position, created_at, updated_at
		FROM todos
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	var todos []*Todo
	for rows.Next() {
		todo, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todo rows: %w", err)
	}
	return todos, nil
}

// Next returns the first incomplete todo by ascending position, or nil when
// every todo is complete.
func (s *TodoStore) Next(ctx context.Context) (*Todo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, completed, position, created_at, updated_at
		FROM todos
		WHERE completed = 0
		ORDER BY position ASC
		LIMIT 1
	`)

	todo, err := scanTodo(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func scanTodo(scan func(dest ...any) error) (*Todo, error) {
	var todo Todo
	var description sql.NullString
	var completed int64
	var createdAt, updatedAt string

	if err := scan(&todo.ID, &todo.Title, &description, &completed, &todo.Position, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning todo row: %w", err)
	}

	todo.Description = description.String
	todo.Completed = completed != 0
	todo.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	todo.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &todo, nil
}

// nullString returns nil for empty strings, otherwise the string itself.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

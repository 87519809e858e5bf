// ABOUTME: Ordered free-text note store backed by SQLite
// ABOUTME: Same dense position invariant as todos, with content updates

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Note is a single free-text line in a project's ordered note list.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteStore persists a project's ordered notes.
type NoteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNoteStore creates the notes table if needed and returns a store bound to db.
func NewNoteStore(db *sql.DB) (*NoteStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notes_position ON notes(position);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating notes schema: %w", err)
	}
	return &NoteStore{db: db, logger: slog.Default().With("component", "notes")}, nil
}

// Add inserts a note, appending when position is nil.
func (s *NoteStore) Add(ctx context.Context, content string, position *int64) (*Note, error) {
	pos := int64(0)
	if position != nil {
		pos = *position
	} else {
		next, err := nextPosition(ctx, s.db, "notes")
		if err != nil {
			return nil, err
		}
		pos = next
	}

	if err := shiftPositions(ctx, s.db, "notes", pos, 1); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	note := &Note{
		ID:        uuid.New().String(),
		Content:   content,
		Position:  pos,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, content, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, note.Content, note.Position, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}

	s.logger.Debug("added note", "id", note.ID, "position", note.Position)
	return note, nil
}

// Update replaces a note's content in place.
func (s *NoteStore) Update(ctx context.Context, id, content string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notes SET content = ?, updated_at = ? WHERE id = ?
	`, content, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
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

// Remove deletes a note and closes the position gap it leaves.
func (s *NoteStore) Remove(ctx context.Context, id string) error {
	pos, err := findPosition(ctx, s.db, "notes", id)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}

	return shiftPositions(ctx, s.db, "notes", pos+1, -1)
}

// MoveTo reassigns a note to a new position.
func (s *NoteStore) MoveTo(ctx context.Context, id string, newPosition int64) error {
	return moveTo(ctx, s.db, "notes", id, newPosition, time.Now().UTC().Format(time.RFC3339))
}

// List returns every note ordered by ascending position.
func (s *NoteStore) List(ctx context.Context) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, position, created_at, updated_at
		FROM notes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var note Note
		var createdAt, updatedAt string
		if err := rows.Scan(&note.ID, &note.Content, &note.Position, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		note.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		note.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating note rows: %w", err)
	}
	return notes, nil
}

// ABOUTME: Shared position arithmetic for ordered entity stores
// ABOUTME: Maintains a dense zero-based position column across add/remove/move

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// shiftPositions adds delta to the position of every row in table at or above
// start. Used to open a gap before an insert (delta=1) or close one after a
// delete (delta=-1).
func shiftPositions(ctx context.Context, db *sql.DB, table string, start, delta int64) error {
	query := fmt.Sprintf("UPDATE %s SET position = position + ? WHERE position >= ?", table)
	if _, err := db.ExecContext(ctx, query, delta, start); err != nil {
		return fmt.Errorf("shifting positions: %w", err)
	}
	return nil
}

// findPosition returns the position of the row with the given id, or
// ErrNotFound if no such row exists.
func findPosition(ctx context.Context, db *sql.DB, table, id string) (int64, error) {
	query := fmt.Sprintf("SELECT position FROM %s WHERE id = ?", table)
	var pos int64
	err := db.QueryRowContext(ctx, query, id).Scan(&pos)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying position: %w", err)
	}
	return pos, nil
}

// nextPosition returns the position one past the current maximum, or 0 for an
// empty table.
func nextPosition(ctx context.Context, db *sql.DB, table string) (int64, error) {
	query := fmt.Sprintf("SELECT MAX(position) FROM %s", table)
	var max sql.NullInt64
	if err := db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, fmt.Errorf("querying max position: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64 + 1, nil
}

// moveTo reassigns the row with the given id to newPosition, shifting the rows
// between the old and new positions to keep the sequence dense. The three
// statements are not wrapped in a transaction; SQLite's own file locking is
// the only isolation here.
func moveTo(ctx context.Context, db *sql.DB, table, id string, newPosition int64, touch string) error {
	current, err := findPosition(ctx, db, table, id)
	if err != nil {
		return err
	}

	if current == newPosition {
		return nil
	}

	if newPosition > current {
		query := fmt.Sprintf("UPDATE %s SET position = position - 1 WHERE position > ? AND position <= ?", table)
		if _, err := db.ExecContext(ctx, query, current, newPosition); err != nil {
			return fmt.Errorf("closing position gap: %w", err)
		}
	} else {
		query := fmt.Sprintf("UPDATE %s SET position = position + 1 WHERE position >= ? AND position < ?", table)
		if _, err := db.ExecContext(ctx, query, newPosition, current); err != nil {
			return fmt.Errorf("opening position gap: %w", err)
		}
	}

	query := fmt.Sprintf("UPDATE %s SET position = ?, updated_at = ? WHERE id = ?", table)
	if _, err := db.ExecContext(ctx, query, newPosition, touch, id); err != nil {
		return fmt.Errorf("assigning position: %w", err)
	}
	return nil
}

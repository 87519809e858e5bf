// ABOUTME: Project-scoped context note tool family
// ABOUTME: Notes share the ordered-list semantics of the todo store

package tools

import (
	"context"
	"log/slog"

	"github.com/aiharness/aiharness/internal/project"
)

// NoteTools routes the note_* tool family onto per-project note stores.
type NoteTools struct {
	cache  *project.Cache
	logger *slog.Logger
}

// NewNoteTools creates the note family router over cache.
func NewNoteTools(cache *project.Cache) *NoteTools {
	return &NoteTools{
		cache:  cache,
		logger: slog.Default().With("component", "note-tools"),
	}
}

// Handles reports whether name belongs to the note family.
func (t *NoteTools) Handles(name string) bool {
	switch name {
	case "note_add", "note_remove", "note_update", "note_move", "note_list":
		return true
	}
	return false
}

// Definitions returns the family's tool definitions in declaration order.
func (t *NoteTools) Definitions() []Definition {
	return []Definition{
		{
			Name:        "note_add",
			Description: "Add a context note to the ordered list",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content":    map[string]any{"type": "string"},
					"position":   map[string]any{"type": "integer"},
					"project_id": map[string]any{"type": "string"},
				},
				"required": []string{"content"},
			},
		},
		{
			Name:        "note_remove",
			Description: "Remove a context note",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "note_update",
			Description: "Replace a context note's content",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":      map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"id", "content"},
			},
		},
		{
			Name:        "note_move",
			Description: "Move a context note to a new position",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":       map[string]any{"type": "string"},
					"position": map[string]any{"type": "integer"},
				},
				"required": []string{"id", "position"},
			},
		},
		{
			Name:        "note_list",
			Description: "List all context notes in order",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
				},
			},
		},
	}
}

// Execute runs the named note tool against projectID's store.
func (t *NoteTools) Execute(ctx context.Context, name, projectID string, args map[string]any) (*Result, error) {
	stores, err := t.cache.Get(ctx, projectID)
	if err != nil {
		return nil, errInvalidArguments("resolving project %s: %v", projectID, err)
	}

	switch name {
	case "note_add":
		content, argErr := stringArg(args, "content")
		if argErr != nil {
			return nil, argErr
		}
		var position *int64
		p, ok, argErr := optionalInt64Arg(args, "position")
		if argErr != nil {
			return nil, argErr
		}
		if ok {
			position = &p
		}
		note, err := stores.Notes.Add(ctx, content, position)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(note)), nil

	case "note_remove":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Notes.Remove(ctx, id); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("removed"), nil

	case "note_update":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		content, argErr := stringArg(args, "content")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Notes.Update(ctx, id, content); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("updated"), nil

	case "note_move":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		position, argErr := int64Arg(args, "position")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Notes.MoveTo(ctx, id, position); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("moved"), nil

	case "note_list":
		notes, err := stores.Notes.List(ctx)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(notes)), nil
	}

	return nil, errToolNotFound(name)
}

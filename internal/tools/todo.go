// ABOUTME: Project-scoped todo tool family, intercepted ahead of registry dispatch
// ABOUTME: Routes by tool name to the ordered todo store of the named project

package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aiharness/aiharness/internal/project"
)

// TodoTools routes the todo_* tool family onto per-project todo stores.
type TodoTools struct {
	cache  *project.Cache
	logger *slog.Logger
}

// NewTodoTools creates the todo family router over cache.
func NewTodoTools(cache *project.Cache) *TodoTools {
	return &TodoTools{
		cache:  cache,
		logger: slog.Default().With("component", "todo-tools"),
	}
}

// Handles reports whether name belongs to the todo family.
func (t *TodoTools) Handles(name string) bool {
	switch name {
	case "todo_add", "todo_remove", "todo_check", "todo_list",
		"todo_get_next", "todo_insert", "todo_move":
		return true
	}
	return false
}

// Definitions returns the family's tool definitions in declaration order.
func (t *TodoTools) Definitions() []Definition {
	return []Definition{
		{
			Name:        "todo_add",
			Description: "Add a todo item to the ordered list",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"position":    map[string]any{"type": "integer"},
					"project_id":  map[string]any{"type": "string"},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        "todo_remove",
			Description: "Remove a todo item",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{"type": "string"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "todo_check",
			Description: "Mark a todo item completed or not",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":        map[string]any{"type": "string"},
					"completed": map[string]any{"type": "boolean"},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "todo_list",
			Description: "List all todos in order",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "todo_get_next",
			Description: "Get the next incomplete todo",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "todo_insert",
			Description: "Insert a todo at a specific position",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"position":    map[string]any{"type": "integer"},
				},
				"required": []string{"title", "position"},
			},
		},
		{
			Name:        "todo_move",
			Description: "Move a todo to a new position",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":       map[string]any{"type": "string"},
					"position": map[string]any{"type": "integer"},
				},
				"required": []string{"id", "position"},
			},
		},
	}
}

// Execute runs the named todo tool against projectID's store.
func (t *TodoTools) Execute(ctx context.Context, name, projectID string, args map[string]any) (*Result, error) {
	stores, err := t.cache.Get(ctx, projectID)
	if err != nil {
		return nil, errInvalidArguments("resolving project %s: %v", projectID, err)
	}

	switch name {
	case "todo_add":
		title, argErr := stringArg(args, "title")
		if argErr != nil {
			return nil, argErr
		}
		description := optionalStringArg(args, "description")
		var position *int64
		p, ok, argErr := optionalInt64Arg(args, "position")
		if argErr != nil {
			return nil, argErr
		}
		if ok {
			position = &p
		}
		todo, err := stores.Todos.Add(ctx, title, description, position)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(todo)), nil

	case "todo_insert":
		title, argErr := stringArg(args, "title")
		if argErr != nil {
			return nil, argErr
		}
		position, argErr := int64Arg(args, "position")
		if argErr != nil {
			return nil, argErr
		}
		todo, err := stores.Todos.Add(ctx, title, optionalStringArg(args, "description"), &position)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(todo)), nil

	case "todo_remove":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Todos.Remove(ctx, id); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("removed"), nil

	case "todo_check":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		completed := optionalBoolArg(args, "completed", true)
		if err := stores.Todos.SetCompleted(ctx, id, completed); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("updated"), nil

	case "todo_list":
		todos, err := stores.Todos.List(ctx)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(todos)), nil

	case "todo_get_next":
		todo, err := stores.Todos.Next(ctx)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(prettyJSON(todo)), nil

	case "todo_move":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		position, argErr := int64Arg(args, "position")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Todos.MoveTo(ctx, id, position); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("moved"), nil
	}

	return nil, errToolNotFound(name)
}

// prettyJSON renders v as indented JSON for tool content.
func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

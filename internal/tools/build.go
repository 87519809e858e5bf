// ABOUTME: Project-scoped build command tool family with shell execution
// ABOUTME: build_run_command spawns the stored command via sh -c in its working dir

package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aiharness/aiharness/internal/project"
)

// BuildTools routes the build_* tool family onto per-project command stores.
type BuildTools struct {
	cache  *project.Cache
	logger *slog.Logger
}

// NewBuildTools creates the build family router over cache.
func NewBuildTools(cache *project.Cache) *BuildTools {
	return &BuildTools{
		cache:  cache,
		logger: slog.Default().With("component", "build-tools"),
	}
}

// Handles reports whether name belongs to the build family.
func (t *BuildTools) Handles(name string) bool {
	switch name {
	case "build_add_command", "build_remove_command", "build_list_commands",
		"build_run_command", "build_set_default", "build_get_default":
		return true
	}
	return false
}

// Definitions returns the family's tool definitions in declaration order.
func (t *BuildTools) Definitions() []Definition {
	idSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
		"required": []string{"id"},
	}
	emptySchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	return []Definition{
		{
			Name:        "build_add_command",
			Description: "Add a build command to the project.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"command":     map[string]any{"type": "string"},
					"working_dir": map[string]any{"type": "string"},
				},
				"required": []string{"name", "command"},
			},
		},
		{
			Name:        "build_remove_command",
			Description: "Remove a build command by id.",
			InputSchema: idSchema,
		},
		{
			Name:        "build_list_commands",
			Description: "List build commands for the project.",
			InputSchema: emptySchema,
		},
		{
			Name:        "build_run_command",
			Description: "Run a build command by id.",
			InputSchema: idSchema,
		},
		{
			Name:        "build_set_default",
			Description: "Set the default build command by id.",
			InputSchema: idSchema,
		},
		{
			Name:        "build_get_default",
			Description: "Get the default build command.",
			InputSchema: emptySchema,
		},
	}
}

// Execute runs the named build tool against projectID's store.
func (t *BuildTools) Execute(ctx context.Context, name, projectID string, args map[string]any) (*Result, error) {
	stores, err := t.cache.Get(ctx, projectID)
	if err != nil {
		return nil, errInvalidArguments("resolving project %s: %v", projectID, err)
	}

	switch name {
	case "build_add_command":
		cmdName, argErr := stringArg(args, "name")
		if argErr != nil {
			return nil, argErr
		}
		command, argErr := stringArg(args, "command")
		if argErr != nil {
			return nil, argErr
		}
		added, err := stores.Builds.Add(ctx, cmdName, command, optionalStringArg(args, "working_dir"))
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(compactJSON(added)), nil

	case "build_remove_command":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Builds.Remove(ctx, id); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("ok"), nil

	case "build_list_commands":
		list, err := stores.Builds.List(ctx)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(compactJSON(list)), nil

	case "build_run_command":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		return t.runCommand(ctx, stores, id)

	case "build_set_default":
		id, argErr := stringArg(args, "id")
		if argErr != nil {
			return nil, argErr
		}
		if err := stores.Builds.SetDefault(ctx, id); err != nil {
			return nil, fromStoreError(err)
		}
		return Success("ok"), nil

	case "build_get_default":
		cmd, err := stores.Builds.GetDefault(ctx)
		if err != nil {
			return nil, fromStoreError(err)
		}
		return Success(compactJSON(cmd)), nil
	}

	return nil, errToolNotFound(name)
}

// runCommand executes the stored command string through the shell, in its
// working directory or the project root when unset. Combined output is the
// result content; a non-zero exit fails with the process's error text.
func (t *BuildTools) runCommand(ctx context.Context, stores *project.Stores, id string) (*Result, error) {
	stored, err := stores.Builds.Get(ctx, id)
	if err != nil {
		return nil, fromStoreError(err)
	}

	workingDir := stored.WorkingDir
	if workingDir == "" {
		workingDir = stores.Project.RootPath
	}

	t.logger.Info("running build command",
		"id", stored.ID,
		"name", stored.Name,
		"dir", workingDir)

	cmd := exec.CommandContext(ctx, "sh", "-c", stored.Command)
	cmd.Dir = workingDir
	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg == "" {
			msg = err.Error()
		} else {
			msg += "\n" + err.Error()
		}
		return nil, errIO(&exitError{msg})
	}

	return Success(string(output)), nil
}

type exitError struct {
	msg string
}

func (e *exitError) Error() string {
	return e.msg
}

// compactJSON renders v as single-line JSON for tool content.
func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

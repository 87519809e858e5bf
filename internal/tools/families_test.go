package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiharness/aiharness/internal/project"
	"github.com/aiharness/aiharness/internal/store"
)

func setupProjectCache(t *testing.T) *project.Cache {
	t.Helper()
	dataDir := t.TempDir()
	registry, err := project.NewRegistry(dataDir)
	require.NoError(t, err)
	t.Cleanup(func() {
		registry.Close()
	})

	_, err = project.EnsureDefaultProject(context.Background(), registry, dataDir)
	require.NoError(t, err)

	cache := project.NewCache(registry)
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}

func TestTodoTools_Handles(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))

	for _, name := range []string{"todo_add", "todo_insert", "todo_remove",
		"todo_check", "todo_list", "todo_get_next", "todo_move"} {
		assert.True(t, todos.Handles(name), name)
	}
	assert.False(t, todos.Handles("read_file"))
	assert.False(t, todos.Handles("todo_unknown"))
}

func TestTodoTools_AddListAndMove(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := todos.Execute(ctx, "todo_add", "default", map[string]any{"title": "A"})
	require.NoError(t, err)
	var added store.Todo
	require.NoError(t, json.Unmarshal([]byte(result.Content), &added))
	assert.Equal(t, "A", added.Title)

	_, err = todos.Execute(ctx, "todo_add", "default", map[string]any{"title": "B"})
	require.NoError(t, err)

	result, err = todos.Execute(ctx, "todo_move", "default", map[string]any{
		"id":       added.ID,
		"position": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "moved", result.Content)

	result, err = todos.Execute(ctx, "todo_list", "default", map[string]any{})
	require.NoError(t, err)
	var list []store.Todo
	require.NoError(t, json.Unmarshal([]byte(result.Content), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Title)
	assert.Equal(t, "A", list[1].Title)
}

func TestTodoTools_CheckAndGetNext(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := todos.Execute(ctx, "todo_add", "default", map[string]any{"title": "first"})
	require.NoError(t, err)
	var first store.Todo
	require.NoError(t, json.Unmarshal([]byte(result.Content), &first))

	_, err = todos.Execute(ctx, "todo_add", "default", map[string]any{"title": "second"})
	require.NoError(t, err)

	result, err = todos.Execute(ctx, "todo_check", "default", map[string]any{"id": first.ID})
	require.NoError(t, err)
	assert.Equal(t, "updated", result.Content)

	result, err = todos.Execute(ctx, "todo_get_next", "default", map[string]any{})
	require.NoError(t, err)
	var next store.Todo
	require.NoError(t, json.Unmarshal([]byte(result.Content), &next))
	assert.Equal(t, "second", next.Title)
}

func TestTodoTools_MissingTitle(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))

	_, err := todos.Execute(context.Background(), "todo_add", "default", map[string]any{})
	requireToolError(t, err, KindInvalidArguments)
}

func TestTodoTools_UnknownProject(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))

	_, err := todos.Execute(context.Background(), "todo_list", "ghost", map[string]any{})
	requireToolError(t, err, KindInvalidArguments)
}

func TestTodoTools_FractionalPositionRejected(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))

	_, err := todos.Execute(context.Background(), "todo_add", "default",
		map[string]any{"title": "A", "position": 1.7})
	requireToolError(t, err, KindInvalidArguments)
}

func TestTodoTools_RemoveMissingIDIsNotFound(t *testing.T) {
	todos := NewTodoTools(setupProjectCache(t))

	_, err := todos.Execute(context.Background(), "todo_remove", "default",
		map[string]any{"id": "no-such-id"})
	requireToolError(t, err, KindNotFound)
	assert.NotContains(t, err.Error(), "IO error")
}

func TestBuildTools_RunMissingIDIsNotFound(t *testing.T) {
	builds := NewBuildTools(setupProjectCache(t))

	_, err := builds.Execute(context.Background(), "build_run_command", "default",
		map[string]any{"id": "no-such-id"})
	requireToolError(t, err, KindNotFound)
}

func TestBuildTools_AddListSetDefault(t *testing.T) {
	builds := NewBuildTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := builds.Execute(ctx, "build_add_command", "default", map[string]any{
		"name":    "build",
		"command": "true",
	})
	require.NoError(t, err)
	var added store.BuildCommand
	require.NoError(t, json.Unmarshal([]byte(result.Content), &added))
	assert.True(t, added.IsDefault)

	result, err = builds.Execute(ctx, "build_add_command", "default", map[string]any{
		"name":    "test",
		"command": "true",
	})
	require.NoError(t, err)
	var second store.BuildCommand
	require.NoError(t, json.Unmarshal([]byte(result.Content), &second))

	result, err = builds.Execute(ctx, "build_set_default", "default", map[string]any{"id": second.ID})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)

	result, err = builds.Execute(ctx, "build_get_default", "default", map[string]any{})
	require.NoError(t, err)
	var def store.BuildCommand
	require.NoError(t, json.Unmarshal([]byte(result.Content), &def))
	assert.Equal(t, second.ID, def.ID)
}

func TestBuildTools_RunCommand(t *testing.T) {
	builds := NewBuildTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := builds.Execute(ctx, "build_add_command", "default", map[string]any{
		"name":    "echo",
		"command": "echo hello",
	})
	require.NoError(t, err)
	var added store.BuildCommand
	require.NoError(t, json.Unmarshal([]byte(result.Content), &added))

	result, err = builds.Execute(ctx, "build_run_command", "default", map[string]any{"id": added.ID})
	require.NoError(t, err)
	assert.Contains(t, result.Content, "hello")
}

func TestBuildTools_RunCommandNonZeroExit(t *testing.T) {
	builds := NewBuildTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := builds.Execute(ctx, "build_add_command", "default", map[string]any{
		"name":    "fail",
		"command": "echo boom >&2; exit 3",
	})
	require.NoError(t, err)
	var added store.BuildCommand
	require.NoError(t, json.Unmarshal([]byte(result.Content), &added))

	_, err = builds.Execute(ctx, "build_run_command", "default", map[string]any{"id": added.ID})
	requireToolError(t, err, KindIOError)
	assert.Contains(t, err.Error(), "boom")
}

func TestNoteTools_Lifecycle(t *testing.T) {
	notes := NewNoteTools(setupProjectCache(t))
	ctx := context.Background()

	result, err := notes.Execute(ctx, "note_add", "default", map[string]any{"content": "remember"})
	require.NoError(t, err)
	var added store.Note
	require.NoError(t, json.Unmarshal([]byte(result.Content), &added))

	result, err = notes.Execute(ctx, "note_update", "default", map[string]any{
		"id":      added.ID,
		"content": "remember harder",
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", result.Content)

	result, err = notes.Execute(ctx, "note_list", "default", map[string]any{})
	require.NoError(t, err)
	var list []store.Note
	require.NoError(t, json.Unmarshal([]byte(result.Content), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "remember harder", list[0].Content)

	result, err = notes.Execute(ctx, "note_remove", "default", map[string]any{"id": added.ID})
	require.NoError(t, err)
	assert.Equal(t, "removed", result.Content)
}

func TestFamilyDefinitionsCarryNames(t *testing.T) {
	cache := setupProjectCache(t)

	todoDefs := NewTodoTools(cache).Definitions()
	require.Len(t, todoDefs, 7)
	assert.Equal(t, "todo_add", todoDefs[0].Name)

	buildDefs := NewBuildTools(cache).Definitions()
	require.Len(t, buildDefs, 6)
	assert.Equal(t, "build_add_command", buildDefs[0].Name)

	noteDefs := NewNoteTools(cache).Definitions()
	require.Len(t, noteDefs, 5)
	assert.Equal(t, "note_add", noteDefs[0].Name)
}

package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&ReadFileTool{})

	assert.Equal(t, 1, registry.Len())
	assert.True(t, registry.Has("read_file"))
	assert.False(t, registry.Has("missing"))

	tool, ok := registry.Get("read_file")
	require.True(t, ok)
	assert.Equal(t, "read_file", tool.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_ListSortedByName(t *testing.T) {
	registry := NewStandardRegistry()

	defs := registry.List()
	require.Len(t, defs, 4)
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	assert.Equal(t, []string{"list_directory", "read_file", "search_files", "write_file"}, names)
}

func TestDefine_PopulatesAllFields(t *testing.T) {
	def := Define(&ReadFileTool{})
	assert.Equal(t, "read_file", def.Name)
	assert.NotEmpty(t, def.Description)
	assert.Equal(t, "object", def.InputSchema["type"])
}

func TestInt64Arg_Conversions(t *testing.T) {
	// JSON numbers decode as float64; integral values convert cleanly.
	v, argErr := int64Arg(map[string]any{"position": float64(2)}, "position")
	require.Nil(t, argErr)
	assert.Equal(t, int64(2), v)

	_, argErr = int64Arg(map[string]any{}, "position")
	require.NotNil(t, argErr)
	assert.Equal(t, KindInvalidArguments, argErr.Kind)
}

func TestOptionalInt64Arg_RejectsNonIntegral(t *testing.T) {
	_, _, argErr := optionalInt64Arg(map[string]any{"position": 1.7}, "position")
	require.NotNil(t, argErr)
	assert.Equal(t, KindInvalidArguments, argErr.Kind)

	_, ok, argErr := optionalInt64Arg(map[string]any{}, "position")
	require.Nil(t, argErr)
	assert.False(t, ok)
}

func TestResult_Helpers(t *testing.T) {
	success := Success("done")
	assert.True(t, success.Success)
	assert.Equal(t, "done", success.Content)
	assert.Nil(t, success.Data)

	withData := SuccessWithData("done", map[string]any{"n": 1})
	assert.True(t, withData.Success)
	assert.NotNil(t, withData.Data)
}

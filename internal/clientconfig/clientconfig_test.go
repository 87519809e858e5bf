package clientconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAITool_DisplayNames(t *testing.T) {
	assert.Equal(t, "Claude Code", Claude.DisplayName())
	assert.Equal(t, "Kimi CLI", Kimi.DisplayName())
	assert.Equal(t, "Gemini CLI", Gemini.DisplayName())
	assert.Equal(t, "Codex CLI", Codex.DisplayName())
}

func TestAITool_ConfigPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := Kimi.ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".kimi", "mcp.json"), path)

	_, err = AITool("vim").ConfigPath()
	require.Error(t, err)
}

func TestGenerate_ProjectPinnedURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	raw, err := Generate(Claude, "My Project", "proj-1", 8787)
	require.NoError(t, err)

	var doc map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	entry := doc["mcpServers"]["aiharness"]
	assert.Equal(t, "http://127.0.0.1:8787/mcp/proj-1", entry["url"])
	assert.Equal(t, "http", entry["transport"])
}

func TestWrite_CreatesFileAndDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path, err := Write(Kimi, "My Project", "default", 8787)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".kimi", "mcp.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "/mcp/default")
}

func TestWrite_MergePreservesExistingServers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".kimi", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	existing := `{"mcpServers":{"other":{"url":"http://other"}},"theme":"dark"}`
	require.NoError(t, os.WriteFile(configPath, []byte(existing), 0o644))

	_, err := Write(Kimi, "My Project", "proj-2", 9000)
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers := doc["mcpServers"].(map[string]any)
	assert.Contains(t, servers, "other")
	assert.Contains(t, servers, "aiharness")
	assert.Equal(t, "dark", doc["theme"])
}

func TestWrite_RejectsCorruptExistingConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(home, ".kimi", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("{broken"), 0o644))

	_, err := Write(Kimi, "My Project", "default", 8787)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing existing config")
}

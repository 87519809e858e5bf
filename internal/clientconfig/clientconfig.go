// ABOUTME: Generates and writes MCP server configuration for AI CLI tools
// ABOUTME: Merges the aiharness entry into each tool's existing mcpServers file

package clientconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AITool identifies a supported AI CLI whose MCP config we can write.
type AITool string

const (
	Claude AITool = "claude"
	Kimi   AITool = "kimi"
	Gemini AITool = "gemini"
	Codex  AITool = "codex"
)

// All returns every supported AI tool.
func All() []AITool {
	return []AITool{Claude, Kimi, Gemini, Codex}
}

// DisplayName returns the human-readable name of the tool.
func (t AITool) DisplayName() string {
	switch t {
	case Claude:
		return "Claude Code"
	case Kimi:
		return "Kimi CLI"
	case Gemini:
		return "Gemini CLI"
	case Codex:
		return "Codex CLI"
	default:
		return string(t)
	}
}

// ConfigPath returns the MCP configuration file path for the tool.
func (t AITool) ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	switch t {
	case Claude:
		return filepath.Join(home, ".claude", "settings.json"), nil
	case Kimi:
		return filepath.Join(home, ".kimi", "mcp.json"), nil
	case Gemini:
		return filepath.Join(home, ".gemini", "config.json"), nil
	case Codex:
		return filepath.Join(home, ".codex", "config.json"), nil
	default:
		return "", fmt.Errorf("unsupported tool: %s", t)
	}
}

// ServerURL returns the project-pinned MCP endpoint of a running server.
func ServerURL(projectID string, port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/mcp/%s", port, projectID)
}

// Generate produces the JSON configuration snippet registering the server
// for the given project. Every supported tool currently consumes the same
// mcpServers shape.
func Generate(tool AITool, projectName, projectID string, port int) (string, error) {
	if _, err := tool.ConfigPath(); err != nil {
		return "", err
	}

	config := map[string]any{
		"mcpServers": map[string]any{
			"aiharness": map[string]any{
				"url":       ServerURL(projectID, port),
				"transport": "http",
			},
		},
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing config: %w", err)
	}
	return string(data), nil
}

// Write merges the server entry into the tool's config file, creating it
// (and its directory) when missing. It returns the path written.
func Write(tool AITool, projectName, projectID string, port int) (string, error) {
	configPath, err := tool.ConfigPath()
	if err != nil {
		return "", err
	}

	generated, err := Generate(tool, projectName, projectID, port)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	var existing []byte
	if data, err := os.ReadFile(configPath); err == nil {
		existing = data
	}

	merged, err := mergeServers(existing, []byte(generated))
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(configPath, merged, 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}

// mergeServers folds the generated mcpServers entries into an existing
// config document, preserving unrelated keys and other registered servers.
func mergeServers(existing, generated []byte) ([]byte, error) {
	doc := map[string]any{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("parsing existing config: %w", err)
		}
	}

	var incoming map[string]any
	if err := json.Unmarshal(generated, &incoming); err != nil {
		return nil, fmt.Errorf("parsing generated config: %w", err)
	}

	servers, ok := doc["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	if newServers, ok := incoming["mcpServers"].(map[string]any); ok {
		for name, entry := range newServers {
			servers[name] = entry
		}
	}
	doc["mcpServers"] = servers

	merged, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing merged config: %w", err)
	}
	return merged, nil
}

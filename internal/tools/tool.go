// ABOUTME: Tool capability interface, result types, and the name-keyed registry
// ABOUTME: Registry listings are sorted by name so protocol output is stable

package tools

import (
	"context"
	"sort"
)

// Result is the outcome of one tool execution.
type Result struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// Success builds a successful result carrying text content.
func Success(content string) *Result {
	return &Result{Success: true, Content: content}
}

// SuccessWithData builds a successful result with structured data attached.
func SuccessWithData(content string, data any) *Result {
	return &Result{Success: true, Content: content, Data: data}
}

// Definition describes a tool to protocol clients.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Tool is a named, schema-described capability invocable by clients.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args map[string]any) (*Result, error)
}

// Define builds the protocol definition for a tool.
func Define(t Tool) Definition {
	return Definition{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.InputSchema(),
	}
}

// Registry is a name-keyed table of tools.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any existing tool with the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// List returns every registered definition sorted by tool name.
func (r *Registry) List() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, Define(t))
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// NewStandardRegistry returns a registry holding the built-in file tools.
func NewStandardRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ReadFileTool{})
	r.Register(&WriteFileTool{})
	r.Register(&ListDirectoryTool{})
	r.Register(&SearchFilesTool{})
	return r
}

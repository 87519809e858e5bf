// ABOUTME: Consolidated MCP method dispatcher shared by the stdio and HTTP transports
// ABOUTME: Enforces the initialize lifecycle and the content/isError tool convention

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aiharness/aiharness/internal/store"
	"github.com/aiharness/aiharness/internal/tools"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Server identity reported by initialize.
const (
	ServerName    = "aiharness"
	ServerVersion = "0.1.0"
)

// ServerState tracks the protocol lifecycle.
type ServerState int

const (
	StateUninitialized ServerState = iota
	StateInitialized
	StateShuttingDown
)

func (s ServerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Backend is the tool and resource surface the dispatcher runs against.
type Backend interface {
	// ListToolDefinitions returns every exposed tool definition, including
	// the intercepted project-scoped families.
	ListToolDefinitions() []tools.Definition

	// CallTool executes a tool by name against the given project. Execution
	// failures come back as *tools.Error; anything else is infrastructure.
	CallTool(ctx context.Context, name, projectID string, args map[string]any) (*tools.Result, error)

	// ListTrackedFiles returns the project's tracked files.
	ListTrackedFiles(ctx context.Context, projectID string) ([]*store.TrackedFile, error)
}

// Options configure a dispatcher instance per transport.
type Options struct {
	// FixedProjectID pins every call to one project, ignoring per-call
	// project parameters. Empty means per-call resolution.
	FixedProjectID string

	// AllowBatch accepts JSON array payloads and answers with an array.
	AllowBatch bool
}

// Dispatcher routes JSON-RPC requests to MCP method handlers.
type Dispatcher struct {
	mu      sync.Mutex
	state   ServerState
	backend Backend
	opts    Options
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher in the uninitialized state.
func NewDispatcher(backend Backend, opts Options) *Dispatcher {
	return &Dispatcher{
		state:   StateUninitialized,
		backend: backend,
		opts:    opts,
		logger:  slog.Default().With("component", "mcp"),
	}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() ServerState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Shutdown moves the dispatcher into the shutting-down state. Subsequent
// method calls other than initialize are rejected.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.state = StateShuttingDown
	d.mu.Unlock()
}

// HandleRaw parses one wire payload and returns the serialized response.
// Malformed JSON yields a -32700 response with a null id. Batch payloads are
// answered element-wise when the transport allows them.
func (d *Dispatcher) HandleRaw(ctx context.Context, payload []byte) []byte {
	trimmed := firstNonSpace(payload)
	if d.opts.AllowBatch && trimmed == '[' {
		var batch []Request
		if err := json.Unmarshal(payload, &batch); err != nil {
			return mustMarshal(NewError(nil, CodeParseError, "Invalid JSON: %v", err))
		}
		responses := make([]*Response, 0, len(batch))
		for i := range batch {
			responses = append(responses, d.Handle(ctx, &batch[i]))
		}
		return mustMarshal(responses)
	}

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return mustMarshal(NewError(nil, CodeParseError, "Invalid JSON: %v", err))
	}
	return mustMarshal(d.Handle(ctx, &req))
}

// Handle dispatches a single parsed request.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version {
		return NewError(req.ID, CodeInvalidRequest, "Invalid JSON-RPC version")
	}

	d.logger.Debug("dispatching", "method", req.Method)

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "notifications/initialized":
		// Acknowledged; no state change.
		return NewResult(req.ID, map[string]any{})
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	case "resources/list":
		return d.handleResourcesList(ctx, req)
	case "resources/read":
		return d.handleResourcesRead(ctx, req)
	default:
		return NewError(req.ID, CodeMethodNotFound, "Method not found: %s", req.Method)
	}
}

func (d *Dispatcher) handleInitialize(req *Request) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateInitialized {
		return NewError(req.ID, CodeInvalidRequest, "Server already initialized")
	}
	d.state = StateInitialized

	return NewResult(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    ServerName,
			"version": ServerVersion,
		},
	})
}

// requireInitialized returns an error response when the lifecycle forbids
// serving the request, or nil when the method may proceed.
func (d *Dispatcher) requireInitialized(req *Request) *Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateInitialized {
		return NewError(req.ID, CodeInvalidRequest, "Server not initialized")
	}
	return nil
}

func (d *Dispatcher) handleToolsList(req *Request) *Response {
	if resp := d.requireInitialized(req); resp != nil {
		return resp
	}

	defs := d.backend.ListToolDefinitions()
	mapped := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		mapped = append(mapped, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": def.InputSchema,
		})
	}
	return NewResult(req.ID, map[string]any{"tools": mapped})
}

// callParams are the decoded tools/call parameters.
type callParams struct {
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments"`
	ProjectID    string         `json:"project_id"`
	ProjectIDAlt string         `json:"projectId"`
}

func (p *callParams) project() string {
	if p.ProjectID != "" {
		return p.ProjectID
	}
	if p.ProjectIDAlt != "" {
		return p.ProjectIDAlt
	}
	return "default"
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req *Request) *Response {
	if resp := d.requireInitialized(req); resp != nil {
		return resp
	}
	if len(req.Params) == 0 {
		return NewError(req.ID, CodeInvalidParams, "Missing params")
	}

	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, CodeInvalidParams, "Invalid params: %v", err)
	}
	if params.Name == "" {
		return NewError(req.ID, CodeInvalidParams, "Missing name")
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	projectID := params.project()
	if d.opts.FixedProjectID != "" {
		projectID = d.opts.FixedProjectID
	}

	result, err := d.backend.CallTool(ctx, params.Name, projectID, params.Arguments)
	if err != nil {
		var toolErr *tools.Error
		if errors.As(err, &toolErr) {
			return contentResponse(req.ID, toolErr.Message, true)
		}
		return NewError(req.ID, CodeInternalError, "%v", err)
	}
	return contentResponse(req.ID, result.Content, !result.Success)
}

// resourceParams are the decoded resources/* parameters.
type resourceParams struct {
	URI          string `json:"uri"`
	ProjectID    string `json:"project_id"`
	ProjectIDAlt string `json:"projectId"`
}

func (p *resourceParams) project() string {
	if p.ProjectID != "" {
		return p.ProjectID
	}
	if p.ProjectIDAlt != "" {
		return p.ProjectIDAlt
	}
	return "default"
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, req *Request) *Response {
	if resp := d.requireInitialized(req); resp != nil {
		return resp
	}

	var params resourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return NewError(req.ID, CodeInvalidParams, "Invalid params: %v", err)
		}
	}
	projectID := params.project()
	if d.opts.FixedProjectID != "" {
		projectID = d.opts.FixedProjectID
	}

	files, err := d.backend.ListTrackedFiles(ctx, projectID)
	if err != nil {
		return NewError(req.ID, CodeInternalError, "%v", err)
	}

	resources := make([]map[string]any, 0, len(files))
	for _, f := range files {
		resources = append(resources, map[string]any{
			"uri":      fmt.Sprintf("file://%s", f.Path),
			"name":     filepath.Base(f.Path),
			"mimeType": "text/plain",
		})
	}
	return NewResult(req.ID, map[string]any{"resources": resources})
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, req *Request) *Response {
	if resp := d.requireInitialized(req); resp != nil {
		return resp
	}
	if len(req.Params) == 0 {
		return NewError(req.ID, CodeInvalidParams, "Missing params")
	}

	var params resourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return NewError(req.ID, CodeInvalidParams, "Invalid params: %v", err)
	}
	if params.URI == "" {
		return NewError(req.ID, CodeInvalidParams, "Missing uri")
	}

	const prefix = "file://"
	if len(params.URI) <= len(prefix) || params.URI[:len(prefix)] != prefix {
		return NewError(req.ID, CodeInvalidParams, "Invalid uri")
	}
	path := params.URI[len(prefix):]

	projectID := params.project()
	if d.opts.FixedProjectID != "" {
		projectID = d.opts.FixedProjectID
	}

	result, err := d.backend.CallTool(ctx, "read_file", projectID, map[string]any{"path": path})
	if err != nil {
		return NewError(req.ID, CodeInternalError, "%v", err)
	}

	return NewResult(req.ID, map[string]any{
		"contents": []map[string]any{
			{
				"uri":      params.URI,
				"mimeType": "text/plain",
				"text":     result.Content,
			},
		},
	})
}

// contentResponse wraps tool output in the MCP content envelope.
func contentResponse(id json.RawMessage, content string, isError bool) *Response {
	return NewResult(id, map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": content},
		},
		"isError": isError,
	})
}

func firstNonSpace(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return c
		}
	}
	return 0
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Responses are built from marshalable values only.
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"encoding failure"},"id":null}`)
	}
	return b
}

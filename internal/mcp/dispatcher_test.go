package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiharness/aiharness/internal/store"
	"github.com/aiharness/aiharness/internal/tools"
)

type fakeBackend struct {
	defs  []tools.Definition
	files []*store.TrackedFile

	callName    string
	callProject string
	callArgs    map[string]any
	callResult  *tools.Result
	callErr     error
}

func (f *fakeBackend) ListToolDefinitions() []tools.Definition {
	return f.defs
}

func (f *fakeBackend) CallTool(ctx context.Context, name, projectID string, args map[string]any) (*tools.Result, error) {
	f.callName = name
	f.callProject = projectID
	f.callArgs = args
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.callResult != nil {
		return f.callResult, nil
	}
	return tools.Success("ok"), nil
}

func (f *fakeBackend) ListTrackedFiles(ctx context.Context, projectID string) ([]*store.TrackedFile, error) {
	return f.files, nil
}

func newTestDispatcher(backend *fakeBackend) *Dispatcher {
	return NewDispatcher(backend, Options{AllowBatch: true})
}

func makeRequest(method string, id any, params any) *Request {
	req := &Request{JSONRPC: Version, Method: method}
	if id != nil {
		raw, _ := json.Marshal(id)
		req.ID = raw
	}
	if params != nil {
		raw, _ := json.Marshal(params)
		req.Params = raw
	}
	return req
}

func initialize(t *testing.T, d *Dispatcher) {
	t.Helper()
	resp := d.Handle(context.Background(), makeRequest("initialize", 1, nil))
	require.Nil(t, resp.Error)
	require.Equal(t, StateInitialized, d.State())
}

func resultMap(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	m, ok := resp.Result.(map[string]any)
	require.True(t, ok, "result is %T", resp.Result)
	return m
}

func TestDispatcher_StartsUninitialized(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	assert.Equal(t, StateUninitialized, d.State())
}

func TestDispatcher_InitializeReturnsIdentity(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	resp := d.Handle(context.Background(), makeRequest("initialize", 1, nil))
	result := resultMap(t, resp)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])

	info, ok := result["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ServerName, info["name"])
	assert.Equal(t, ServerVersion, info["version"])
}

func TestDispatcher_SecondInitializeFails(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("initialize", 2, nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "already initialized")
}

func TestDispatcher_ToolsListRequiresInitialize(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	resp := d.Handle(context.Background(), makeRequest("tools/list", 1, nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not initialized")
}

func TestDispatcher_LifecycleRoundTrip(t *testing.T) {
	backend := &fakeBackend{defs: []tools.Definition{
		{Name: "read_file", Description: "reads", InputSchema: map[string]any{"type": "object"}},
	}}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("tools/list", 2, nil))
	result := resultMap(t, resp)
	list, ok := result["tools"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, list)
	assert.Equal(t, "read_file", list[0]["name"])
	// tools/list uses the camelCase schema key.
	assert.Contains(t, list[0], "inputSchema")
}

func TestDispatcher_NotificationsInitializedKeepsState(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	resp := d.Handle(context.Background(), makeRequest("notifications/initialized", nil, nil))
	require.Nil(t, resp.Error)
	assert.Equal(t, StateUninitialized, d.State())
}

func TestDispatcher_WrongVersionRejected(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	req := makeRequest("initialize", 1, nil)
	req.JSONRPC = "1.0"
	resp := d.Handle(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestDispatcher_UnknownMethod(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("bogus/method", 2, nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatcher_ToolsCallSuccess(t *testing.T) {
	backend := &fakeBackend{callResult: tools.Success("did it")}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("tools/call", 2, map[string]any{
		"name":      "todo_add",
		"arguments": map[string]any{"title": "A"},
	}))
	result := resultMap(t, resp)
	assert.Equal(t, false, result["isError"])
	assert.Equal(t, "todo_add", backend.callName)
	assert.Equal(t, "default", backend.callProject)
}

func TestDispatcher_ToolsCallProjectParam(t *testing.T) {
	backend := &fakeBackend{}
	d := newTestDispatcher(backend)
	initialize(t, d)

	d.Handle(context.Background(), makeRequest("tools/call", 2, map[string]any{
		"name":      "todo_list",
		"projectId": "alpha",
	}))
	assert.Equal(t, "alpha", backend.callProject)

	d.Handle(context.Background(), makeRequest("tools/call", 3, map[string]any{
		"name":       "todo_list",
		"project_id": "beta",
	}))
	assert.Equal(t, "beta", backend.callProject)
}

func TestDispatcher_FixedProjectOverridesParams(t *testing.T) {
	backend := &fakeBackend{}
	d := NewDispatcher(backend, Options{FixedProjectID: "pinned"})
	initialize(t, d)

	d.Handle(context.Background(), makeRequest("tools/call", 2, map[string]any{
		"name":       "todo_list",
		"project_id": "other",
	}))
	assert.Equal(t, "pinned", backend.callProject)
}

func TestDispatcher_ToolsCallExecutionFailureIsContent(t *testing.T) {
	backend := &fakeBackend{callErr: &tools.Error{Kind: tools.KindFileNotFound, Message: "File not found: /x"}}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("tools/call", 2, map[string]any{
		"name": "read_file",
	}))
	result := resultMap(t, resp)
	assert.Equal(t, true, result["isError"])
	content, ok := result["content"].([]map[string]any)
	require.True(t, ok)
	assert.Equal(t, "File not found: /x", content[0]["text"])
}

func TestDispatcher_ToolsCallInfrastructureFailureIsProtocolError(t *testing.T) {
	backend := &fakeBackend{callErr: errors.New("database locked")}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("tools/call", 2, map[string]any{
		"name": "todo_list",
	}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
}

func TestDispatcher_ToolsCallMissingParams(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("tools/call", 2, nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)

	resp = d.Handle(context.Background(), makeRequest("tools/call", 3, map[string]any{}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatcher_ResourcesList(t *testing.T) {
	backend := &fakeBackend{files: []*store.TrackedFile{
		{ID: "1", Path: "/srv/project/readme.md"},
	}}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("resources/list", 2, nil))
	result := resultMap(t, resp)
	resources, ok := result["resources"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, resources, 1)
	assert.Equal(t, "file:///srv/project/readme.md", resources[0]["uri"])
	assert.Equal(t, "readme.md", resources[0]["name"])
}

func TestDispatcher_ResourcesReadDelegatesToReadFile(t *testing.T) {
	backend := &fakeBackend{callResult: tools.Success("file body")}
	d := newTestDispatcher(backend)
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("resources/read", 2, map[string]any{
		"uri": "file:///srv/project/readme.md",
	}))
	result := resultMap(t, resp)
	contents, ok := result["contents"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	assert.Equal(t, "file body", contents[0]["text"])
	assert.Equal(t, "read_file", backend.callName)
	assert.Equal(t, "/srv/project/readme.md", backend.callArgs["path"])
}

func TestDispatcher_ResourcesReadRejectsBadURI(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	initialize(t, d)

	resp := d.Handle(context.Background(), makeRequest("resources/read", 2, map[string]any{
		"uri": "http://example.com/x",
	}))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatcher_HandleRawParseError(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	out := d.HandleRaw(context.Background(), []byte("{not json"))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}

func TestDispatcher_HandleRawBatch(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})

	payload := `[
		{"jsonrpc":"2.0","method":"initialize","id":1},
		{"jsonrpc":"2.0","method":"tools/list","id":2}
	]`
	out := d.HandleRaw(context.Background(), []byte(payload))

	var responses []Response
	require.NoError(t, json.Unmarshal(out, &responses))
	require.Len(t, responses, 2)
	assert.Nil(t, responses[0].Error)
	assert.Nil(t, responses[1].Error)
}

func TestDispatcher_BatchDisabledTreatsArrayAsParseError(t *testing.T) {
	d := NewDispatcher(&fakeBackend{}, Options{})

	out := d.HandleRaw(context.Background(), []byte(`[{"jsonrpc":"2.0","method":"initialize","id":1}]`))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestDispatcher_ShutdownRejectsMethods(t *testing.T) {
	d := newTestDispatcher(&fakeBackend{})
	initialize(t, d)
	d.Shutdown()

	resp := d.Handle(context.Background(), makeRequest("tools/list", 2, nil))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestRequest_IsNotification(t *testing.T) {
	assert.True(t, (&Request{}).IsNotification())
	assert.True(t, (&Request{ID: json.RawMessage("null")}).IsNotification())
	assert.False(t, (&Request{ID: json.RawMessage("1")}).IsNotification())
}

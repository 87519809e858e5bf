// ABOUTME: HTTP transport exposing tool, event, and MCP JSON-RPC endpoints
// ABOUTME: Shares one dispatcher instance across all /mcp requests

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tmaxmax/go-sse"

	"github.com/aiharness/aiharness/internal/app"
	"github.com/aiharness/aiharness/internal/mcp"
)

// Server is the HTTP surface over the application state.
type Server struct {
	state      *app.State
	dispatcher *mcp.Dispatcher
	logger     *slog.Logger

	mu     sync.Mutex
	pinned map[string]*mcp.Dispatcher
}

// New creates the HTTP server surface. The dispatcher resolves the project
// per call and answers single requests only, matching the stdio proxy's
// one-line-in, one-response-out contract.
func New(state *app.State) *Server {
	return &Server{
		state:      state,
		dispatcher: mcp.NewDispatcher(state, mcp.Options{}),
		logger:     slog.Default().With("component", "http"),
		pinned:     make(map[string]*mcp.Dispatcher),
	}
}

// Handler returns the route table wrapped in permissive CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleListTools)
	mux.HandleFunc("POST /call", s.handleCall)
	mux.HandleFunc("POST /mcp", s.handleMCP)
	mux.HandleFunc("POST /mcp/{project}", s.handleMCPPinned)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /events/stream", s.handleEventStream)
	return corsMiddleware(mux)
}

// Start binds the listener on 127.0.0.1:port and serves in the background.
// The returned handle is stored on the application state so shutdown can
// abort it.
func (s *Server) Start(port int) (*http.Server, error) {
	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.state.SetHTTPServer(server, port)

	go func() {
		s.logger.Info("http server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return server, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, "AIHarness Server Running")
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	defs := s.state.ListToolDefinitions()
	tools := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, map[string]any{
			"name":         def.Name,
			"description":  def.Description,
			"input_schema": def.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": tools})
}

// callRequest is the direct (non-MCP) tool execution body.
type callRequest struct {
	Name         string         `json:"name"`
	Arguments    map[string]any `json:"arguments"`
	ProjectID    string         `json:"project_id"`
	ProjectIDAlt string         `json:"projectId"`
}

func (r *callRequest) project() string {
	if r.ProjectID != "" {
		return r.ProjectID
	}
	if r.ProjectIDAlt != "" {
		return r.ProjectIDAlt
	}
	return "default"
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}

	start := time.Now()
	result, err := s.state.CallTool(r.Context(), req.Name, req.project(), req.Arguments)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   result.Content,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"content":     result.Content,
		"duration_ms": duration,
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	response := s.dispatcher.HandleRaw(r.Context(), payload)
	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

// handleMCPPinned serves a project-pinned MCP endpoint. Client config files
// written for AI CLIs point at /mcp/<project_id> so their requests need no
// project argument; each project gets its own dispatcher lifecycle.
func (s *Server) handleMCPPinned(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	dispatcher := s.pinnedDispatcher(r.PathValue("project"))
	response := dispatcher.HandleRaw(r.Context(), payload)
	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

func (s *Server) pinnedDispatcher(projectID string) *mcp.Dispatcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.pinned[projectID]; ok {
		return d
	}
	d := mcp.NewDispatcher(s.state, mcp.Options{FixedProjectID: projectID})
	s.pinned[projectID] = d
	return d
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Events.History())
}

// handleEventStream streams live tool call events as SSE messages.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	sess, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, fmt.Sprintf("upgrading to sse: %v", err), http.StatusInternalServerError)
		return
	}

	// Write the SSE headers immediately so clients see the stream as
	// established before the first event arrives.
	if err := sess.Flush(); err != nil {
		return
	}

	ctx := r.Context()
	ch := s.state.Events.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("encoding event", "error", err)
				continue
			}
			msg := &sse.Message{Type: sse.Type("message")}
			msg.AppendData(string(data))
			if err := sess.Send(msg); err != nil {
				return
			}
			if err := sess.Flush(); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// corsMiddleware allows any origin, mirroring the permissive layer the
// desktop clients expect.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ABOUTME: Composition root wiring registry, project cache, tools, and events
// ABOUTME: Implements the dispatcher backend and records every tool call

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiharness/aiharness/internal/config"
	"github.com/aiharness/aiharness/internal/events"
	"github.com/aiharness/aiharness/internal/project"
	"github.com/aiharness/aiharness/internal/store"
	"github.com/aiharness/aiharness/internal/tools"
)

// State owns every long-lived subsystem handle.
type State struct {
	Config   *config.Config
	Registry *project.Registry
	Cache    *project.Cache
	Tools    *tools.Registry
	Events   *events.Bus

	todoTools  *tools.TodoTools
	buildTools *tools.BuildTools
	noteTools  *tools.NoteTools

	logger *slog.Logger

	mu         sync.RWMutex
	httpServer *http.Server
	httpPort   int
}

// New builds the application state: opens the registry, guarantees the
// default project, and wires the tool surface and event bus.
func New(ctx context.Context, cfg *config.Config) (*State, error) {
	registry, err := project.NewRegistry(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening project registry: %w", err)
	}

	if _, err := project.EnsureDefaultProject(ctx, registry, cfg.Storage.DataDir); err != nil {
		registry.Close()
		return nil, fmt.Errorf("ensuring default project: %w", err)
	}

	cache := project.NewCache(registry)
	logger := slog.Default().With("component", "app")

	return &State{
		Config:     cfg,
		Registry:   registry,
		Cache:      cache,
		Tools:      tools.NewStandardRegistry(),
		Events:     events.NewBus(nil),
		todoTools:  tools.NewTodoTools(cache),
		buildTools: tools.NewBuildTools(cache),
		noteTools:  tools.NewNoteTools(cache),
		logger:     logger,
	}, nil
}

// Close releases every subsystem, aborting the HTTP server without draining.
func (s *State) Close() error {
	s.StopHTTPServer()
	s.Events.Close()

	var firstErr error
	if err := s.Cache.Close(); err != nil {
		firstErr = err
	}
	if err := s.Registry.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ListToolDefinitions returns registry tools sorted by name, followed by the
// intercepted todo, build, and note families in declaration order.
func (s *State) ListToolDefinitions() []tools.Definition {
	defs := s.Tools.List()
	defs = append(defs, s.todoTools.Definitions()...)
	defs = append(defs, s.buildTools.Definitions()...)
	defs = append(defs, s.noteTools.Definitions()...)
	return defs
}

// CallTool dispatches a tool call, intercepting the project-scoped families
// ahead of registry lookup, and records the outcome on the event bus.
func (s *State) CallTool(ctx context.Context, name, projectID string, args map[string]any) (*tools.Result, error) {
	start := time.Now()
	result, err := s.dispatch(ctx, name, projectID, args)
	duration := time.Since(start)

	event := &events.ToolCallEvent{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		ToolName:   name,
		ProjectID:  projectID,
		Arguments:  args,
		DurationMS: duration.Milliseconds(),
	}
	if err != nil {
		event.Success = false
		event.Content = err.Error()
	} else {
		event.Success = result.Success
		event.Content = result.Content
	}
	s.Events.Record(event)

	s.logger.Debug("tool call",
		"tool", name,
		"project", projectID,
		"success", event.Success,
		"duration_ms", event.DurationMS)

	return result, err
}

func (s *State) dispatch(ctx context.Context, name, projectID string, args map[string]any) (*tools.Result, error) {
	switch {
	case s.todoTools.Handles(name):
		return s.todoTools.Execute(ctx, name, projectID, args)
	case s.buildTools.Handles(name):
		return s.buildTools.Execute(ctx, name, projectID, args)
	case s.noteTools.Handles(name):
		return s.noteTools.Execute(ctx, name, projectID, args)
	}

	tool, ok := s.Tools.Get(name)
	if !ok {
		return nil, &tools.Error{Kind: tools.KindNotFound, Message: fmt.Sprintf("Tool not found: %s", name)}
	}
	return tool.Execute(ctx, args)
}

// ListTrackedFiles returns the tracked files of the given project.
func (s *State) ListTrackedFiles(ctx context.Context, projectID string) ([]*store.TrackedFile, error) {
	stores, err := s.Cache.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return stores.Files.List(ctx)
}

// SetHTTPServer stores the running HTTP server handle and its port.
func (s *State) SetHTTPServer(server *http.Server, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpServer = server
	s.httpPort = port
}

// HTTPPort returns the port of the running HTTP server, or 0 when stopped.
func (s *State) HTTPPort() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpPort
}

// StopHTTPServer closes the HTTP server immediately without draining
// in-flight requests.
func (s *State) StopHTTPServer() {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.httpPort = 0
	s.mu.Unlock()

	if server != nil {
		if err := server.Close(); err != nil {
			s.logger.Warn("closing http server", "error", err)
		}
	}
}

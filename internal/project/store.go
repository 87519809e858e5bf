// ABOUTME: Per-project store bundle and a cache keyed by project id
// ABOUTME: The cache constructs bundles under its write lock so each opens once

package project

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aiharness/aiharness/internal/store"
)

// Stores bundles every per-project store over a single database handle.
type Stores struct {
	Project *Project
	Todos   *store.TodoStore
	Notes   *store.NoteStore
	Builds  *store.BuildCommandStore
	Files   *store.FileStore

	db *sql.DB
}

// OpenStores opens the project's database and initializes every store on it.
func OpenStores(project *Project) (*Stores, error) {
	db, err := store.Open(project.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("opening project database: %w", err)
	}

	todos, err := store.NewTodoStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	notes, err := store.NewNoteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	builds, err := store.NewBuildCommandStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	files, err := store.NewFileStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Stores{
		Project: project,
		Todos:   todos,
		Notes:   notes,
		Builds:  builds,
		Files:   files,
		db:      db,
	}, nil
}

// Close releases the project's database handle.
func (s *Stores) Close() error {
	return s.db.Close()
}

// Cache lazily opens store bundles and reuses them across tool calls.
type Cache struct {
	registry *Registry
	logger   *slog.Logger

	mu     sync.RWMutex
	stores map[string]*Stores
}

// NewCache returns an empty cache resolving projects through registry.
func NewCache(registry *Registry) *Cache {
	return &Cache{
		registry: registry,
		logger:   slog.Default().With("component", "project-cache"),
		stores:   make(map[string]*Stores),
	}
}

// Get returns the store bundle for a project, opening it on first use.
// Construction happens under the write lock, so concurrent callers for the
// same project share one bundle rather than racing to open two.
func (c *Cache) Get(ctx context.Context, projectID string) (*Stores, error) {
	c.mu.RLock()
	stores, ok := c.stores[projectID]
	c.mu.RUnlock()
	if ok {
		return stores, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stores, ok := c.stores[projectID]; ok {
		return stores, nil
	}

	project, err := c.registry.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	stores, err = OpenStores(project)
	if err != nil {
		return nil, err
	}

	c.stores[projectID] = stores
	c.logger.Debug("opened project stores", "project", projectID)
	return stores, nil
}

// Close releases every cached bundle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for id, stores := range c.stores {
		if err := stores.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.stores, id)
	}
	return firstErr
}

// EnsureDefaultProject makes sure the fixed default project exists, creating
// its root directory under <dataDir>/projects/default if needed.
func EnsureDefaultProject(ctx context.Context, registry *Registry, dataDir string) (*Project, error) {
	if project, err := registry.GetProject(ctx, DefaultProjectID); err == nil {
		return project, nil
	}

	root := defaultProjectRoot(dataDir)
	if err := ensureDir(root); err != nil {
		return nil, fmt.Errorf("creating default project root: %w", err)
	}
	return registry.CreateProjectWithID(ctx, DefaultProjectID, "Default", root)
}

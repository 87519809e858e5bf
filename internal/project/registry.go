// ABOUTME: Project registry backed by a central SQLite database
// ABOUTME: Each project owns a per-root storage database under <root>/.aiharness

package project

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aiharness/aiharness/internal/store"
)

// DefaultProjectID is the identifier tool calls resolve to when no project is given.
const DefaultProjectID = "default"

// storageDirName is the per-root directory holding a project's database.
const storageDirName = ".aiharness"

// Project is a registered workspace root with its own tool stores.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RootPath    string    `json:"root_path"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Registry persists project records in a central database.
type Registry struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRegistry opens (or creates) the registry database at <dataDir>/registry.db.
func NewRegistry(dataDir string) (*Registry, error) {
	db, err := store.Open(filepath.Join(dataDir, "registry.db"))
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			root_path TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating projects schema: %w", err)
	}

	return &Registry{db: db, logger: slog.Default().With("component", "registry")}, nil
}

// Close releases the registry database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// CreateProject registers a new project rooted at rootPath. The root must
// already exist; its storage directory is created on registration.
func (r *Registry) CreateProject(ctx context.Context, name, rootPath string) (*Project, error) {
	return r.createProject(ctx, uuid.NewString(), name, rootPath)
}

// CreateProjectWithID registers a project under a caller-chosen identifier.
// Used for the default project, whose id is fixed.
func (r *Registry) CreateProjectWithID(ctx context.Context, id, name, rootPath string) (*Project, error) {
	return r.createProject(ctx, id, name, rootPath)
}

func (r *Registry) createProject(ctx context.Context, id, name, rootPath string) (*Project, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidPath, rootPath)
	}
	// Resolve symlinks so two spellings of one directory register as one
	// project root.
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidPath, rootPath)
	}
	info, err := os.Stat(canonical)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidPath, rootPath)
	}

	storageDir := filepath.Join(canonical, storageDirName)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	now := time.Now().UTC()
	project := &Project{
		ID:          id,
		Name:        name,
		RootPath:    canonical,
		StoragePath: filepath.Join(storageDir, "project.db"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, root_path, storage_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, project.ID, project.Name, project.RootPath, project.StoragePath,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	r.logger.Info("registered project", "id", project.ID, "name", name, "root", canonical)
	return project, nil
}

// GetProject looks up a project by id. Returns store.ErrNotFound when absent.
func (r *Registry) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, storage_path, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: project %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}
	return project, nil
}

// ListProjects returns every registered project ordered by creation time.
func (r *Registry) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, root_path, storage_path, created_at, updated_at
		FROM projects ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func defaultProjectRoot(dataDir string) string {
	return filepath.Join(dataDir, "projects", DefaultProjectID)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.StoragePath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}

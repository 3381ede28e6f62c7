package database

import (
	"errors"
	"fmt"
	"sync"

	"im-go/internal/im"
)

// Registry owns the catalog handle and the single open workspace handle.
type Registry struct {
	mu sync.Mutex

	catalogPath string
	layout      im.WorkspaceLayout
	clock       im.Clock
	idgen       im.IDGenerator
	logger      im.Logger

	catalog   *SQLiteCatalog
	workspace *SQLiteWorkspace

	// Overridable in tests.
	openCatalog   func() (*SQLiteCatalog, error)
	openWorkspace func(storePath string) (*SQLiteWorkspace, error)
}

var _ im.StoreRegistry = (*Registry)(nil)

// NewRegistry creates a Registry. The catalog store at catalogPath is opened on first use.
func NewRegistry(catalogPath string, layout im.WorkspaceLayout, clock im.Clock, idgen im.IDGenerator, logger im.Logger) *Registry {
	r := &Registry{
		catalogPath: catalogPath,
		layout:      layout,
		clock:       clock,
		idgen:       idgen,
		logger:      logger,
	}
	r.openCatalog = func() (*SQLiteCatalog, error) {
		return NewSQLiteCatalog(r.catalogPath, r.clock)
	}
	r.openWorkspace = func(storePath string) (*SQLiteWorkspace, error) {
		return NewSQLiteWorkspace(storePath, r.clock)
	}
	return r
}

// Catalog returns a live catalog handle. The handle is probed on every call; a
// failed probe discards it and reinitializes exactly once before giving up.
func (r *Registry) Catalog() (im.CatalogDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.catalog == nil {
		if err := r.initCatalog(); err != nil {
			return nil, err
		}
	}

	err := r.catalog.Ping()
	if err == nil {
		return r.catalog, nil
	}

	r.logger.Warn("catalog connection lost, reinitializing", "path", r.catalogPath, "error", err)
	r.discardCatalog()

	if err := r.initCatalog(); err != nil {
		return nil, err
	}
	if err := r.catalog.Ping(); err != nil {
		r.logger.Error("catalog still unavailable after reinitializing", "path", r.catalogPath, "error", err)
		r.discardCatalog()
		return nil, fmt.Errorf("%w: %v", im.ErrCatalogUnavailable, err)
	}
	return r.catalog, nil
}

func (r *Registry) initCatalog() error {
	catalog, err := r.openCatalog()
	if err != nil {
		r.logger.Error("failed to open catalog database", "path", r.catalogPath, "error", err)
		return fmt.Errorf("%w: %v", im.ErrCatalogUnavailable, err)
	}
	r.catalog = catalog
	r.logger.Debug("catalog database opened", "path", r.catalogPath)
	return nil
}

func (r *Registry) discardCatalog() {
	if err := r.catalog.Close(); err != nil {
		r.logger.Warn("failed to close catalog connection", "error", err)
	}
	r.catalog = nil
}

// OpenWorkspace prepares the workspace layout, opens and migrates its store, and
// records the store's identity in workspace_info. Any previously open workspace
// handle is closed.
func (r *Registry) OpenWorkspace(workspacePath string) (im.WorkspaceDatabase, string, error) {
	storePath, err := r.layout.EnsureWorkspaceStructure(workspacePath)
	if err != nil {
		return nil, "", fmt.Errorf("preparing workspace layout: %w", err)
	}

	ws, err := r.openWorkspace(storePath)
	if err != nil {
		return nil, "", err
	}

	if err := r.initWorkspaceInfo(ws); err != nil {
		ws.Close()
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspace != nil {
		r.logger.Warn("replacing open workspace database", "previous", r.workspace.Path(), "next", storePath)
		if err := r.workspace.Close(); err != nil {
			r.logger.Warn("failed to close previous workspace database", "error", err)
		}
	}
	r.workspace = ws

	return ws, storePath, nil
}

func (r *Registry) initWorkspaceInfo(ws *SQLiteWorkspace) error {
	if err := ws.SetInfo(im.InfoInitialized, "true"); err != nil {
		return err
	}
	_, ok, err := ws.GetInfo(im.InfoWorkspaceUUID)
	if err != nil {
		return err
	}
	if !ok {
		if err := ws.SetInfo(im.InfoWorkspaceUUID, r.idgen.New()); err != nil {
			return err
		}
	}
	return nil
}

// Workspace returns the open workspace handle, or nil.
func (r *Registry) Workspace() im.WorkspaceDatabase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspace == nil {
		return nil
	}
	return r.workspace
}

// CloseWorkspace releases the workspace handle.
func (r *Registry) CloseWorkspace() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspace == nil {
		return nil
	}
	err := r.workspace.Close()
	r.workspace = nil
	if err != nil {
		return fmt.Errorf("closing workspace database: %w", err)
	}
	return nil
}

// BackupWorkspaceTo snapshots the open workspace store to dest.
func (r *Registry) BackupWorkspaceTo(dest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workspace == nil {
		return im.ErrWorkspaceNotInitialized
	}
	return r.workspace.BackupTo(dest)
}

// Close releases every handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.workspace != nil {
		errs = append(errs, r.workspace.Close())
		r.workspace = nil
	}
	if r.catalog != nil {
		errs = append(errs, r.catalog.Close())
		r.catalog = nil
	}
	return errors.Join(errs...)
}

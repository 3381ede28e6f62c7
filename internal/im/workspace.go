package im

import "fmt"

// WorkspaceDirectory manages the catalog of known workspace folders.
type WorkspaceDirectory struct {
	registry StoreRegistry
	fsmgr    FilesystemManager
	logger   Logger
}

// NewWorkspaceDirectory creates a WorkspaceDirectory backed by the registry's catalog store.
func NewWorkspaceDirectory(registry StoreRegistry, fsmgr FilesystemManager, logger Logger) *WorkspaceDirectory {
	return &WorkspaceDirectory{
		registry: registry,
		fsmgr:    fsmgr,
		logger:   logger,
	}
}

// Open registers the folder on first use (or bumps updated_at on later opens)
// and initializes its workspace store. Host validation errors are returned untouched.
func (d *WorkspaceDirectory) Open(path string) (*Workspace, error) {
	absPath, err := d.fsmgr.ValidateWorkspacePath(path)
	if err != nil {
		d.logger.Error("workspace path rejected", "path", path, "error", err)
		return nil, err
	}

	catalog, err := d.registry.Catalog()
	if err != nil {
		return nil, err
	}

	ws, err := catalog.FindWorkspaceByPath(absPath)
	if err != nil {
		d.logger.Error("failed to look up workspace", "path", absPath, "error", err)
		return nil, fmt.Errorf("looking up workspace: %w", err)
	}

	if ws == nil {
		name, err := d.fsmgr.WorkspaceName(absPath)
		if err != nil {
			d.logger.Error("failed to derive workspace name", "path", absPath, "error", err)
			return nil, err
		}
		ws, err = catalog.CreateWorkspace(name, absPath)
		if err != nil {
			d.logger.Error("failed to register workspace", "path", absPath, "error", err)
			return nil, fmt.Errorf("registering workspace: %w", err)
		}
		d.logger.Info("workspace registered", "id", ws.ID, "path", absPath)
	} else {
		if err := catalog.TouchWorkspace(ws.ID); err != nil {
			d.logger.Error("failed to bump workspace timestamp", "id", ws.ID, "error", err)
			return nil, fmt.Errorf("updating workspace timestamp: %w", err)
		}
		// Re-read so the caller sees the bumped timestamp.
		if ws, err = catalog.FindWorkspaceByID(ws.ID); err != nil {
			return nil, fmt.Errorf("reloading workspace: %w", err)
		}
	}

	storePath, err := d.initStore(absPath)
	if err != nil {
		return nil, err
	}

	d.logger.Info("workspace opened", "id", ws.ID, "path", absPath, "store", storePath)
	return ws, nil
}

func (d *WorkspaceDirectory) initStore(absPath string) (string, error) {
	_, storePath, err := d.registry.OpenWorkspace(absPath)
	if err != nil {
		d.logger.Error("failed to initialize workspace database", "path", absPath, "error", err)
		return "", fmt.Errorf("initializing workspace database: %w", err)
	}
	return storePath, nil
}

// Add registers a workspace without opening it.
// A path that is already registered is rejected with ErrDuplicateWorkspace.
func (d *WorkspaceDirectory) Add(name, path string) (*Workspace, error) {
	absPath, err := d.fsmgr.ValidateWorkspacePath(path)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validationError("workspace name is required")
	}

	catalog, err := d.registry.Catalog()
	if err != nil {
		return nil, err
	}

	existing, err := catalog.FindWorkspaceByPath(absPath)
	if err != nil {
		return nil, fmt.Errorf("looking up workspace: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateWorkspace
	}

	ws, err := catalog.CreateWorkspace(name, absPath)
	if err != nil {
		d.logger.Error("failed to add workspace", "path", absPath, "error", err)
		return nil, fmt.Errorf("adding workspace: %w", err)
	}
	return ws, nil
}

// List returns all workspaces, most recently opened first.
func (d *WorkspaceDirectory) List() ([]*Workspace, error) {
	catalog, err := d.registry.Catalog()
	if err != nil {
		return nil, err
	}
	workspaces, err := catalog.ListWorkspaces()
	if err != nil {
		d.logger.Error("failed to list workspaces", "error", err)
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return workspaces, nil
}

// Get returns the workspace with the given id, or nil.
func (d *WorkspaceDirectory) Get(id int64) (*Workspace, error) {
	catalog, err := d.registry.Catalog()
	if err != nil {
		return nil, err
	}
	ws, err := catalog.FindWorkspaceByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding workspace: %w", err)
	}
	return ws, nil
}

// Remove deletes the workspace row. If it is the open workspace, close it first.
func (d *WorkspaceDirectory) Remove(id int64) error {
	catalog, err := d.registry.Catalog()
	if err != nil {
		return err
	}
	if err := catalog.DeleteWorkspace(id); err != nil {
		d.logger.Error("failed to remove workspace", "id", id, "error", err)
		return fmt.Errorf("removing workspace: %w", err)
	}
	d.logger.Info("workspace removed", "id", id)
	return nil
}

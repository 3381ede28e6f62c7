package im

import "fmt"

// Manager is the coordinator that wires the domain services to the store registry.
// It binds every workspace-scoped service to the registry's workspace handle after
// an open and unbinds them before the handle is released.
type Manager struct {
	registry StoreRegistry
	logger   Logger

	Workspaces  *WorkspaceDirectory
	Images      *ImageCatalog
	Tags        *TagService
	Connections *ConnectionService

	current *Workspace
}

// NewManager creates a Manager with unbound domain services.
func NewManager(registry StoreRegistry, fsmgr FilesystemManager, logger Logger) *Manager {
	return &Manager{
		registry:    registry,
		logger:      logger,
		Workspaces:  NewWorkspaceDirectory(registry, fsmgr, logger),
		Images:      NewImageCatalog(fsmgr, logger),
		Tags:        NewTagService(logger),
		Connections: NewConnectionService(logger),
	}
}

// OpenWorkspace opens the folder as the single active workspace, closing any
// previously open one first.
func (m *Manager) OpenWorkspace(path string) (*Workspace, error) {
	if m.current != nil {
		if err := m.CloseWorkspace(); err != nil {
			return nil, fmt.Errorf("closing previous workspace: %w", err)
		}
	}

	ws, err := m.Workspaces.Open(path)
	if err != nil {
		return nil, err
	}

	db := m.registry.Workspace()
	if db == nil {
		return nil, ErrWorkspaceNotInitialized
	}
	m.bind(db)
	m.current = ws
	return ws, nil
}

// CloseWorkspace unbinds the services and releases the workspace store.
// Closing when nothing is open is a no-op.
func (m *Manager) CloseWorkspace() error {
	m.unbind()
	if m.current != nil {
		m.logger.Info("workspace closed", "id", m.current.ID, "path", m.current.AbsolutePath)
	}
	m.current = nil
	if err := m.registry.CloseWorkspace(); err != nil {
		return fmt.Errorf("closing workspace database: %w", err)
	}
	return nil
}

// Current returns the open workspace, or nil.
func (m *Manager) Current() *Workspace {
	return m.current
}

// RemoveWorkspace deletes the workspace's catalog row. The open workspace is closed first.
func (m *Manager) RemoveWorkspace(id int64) error {
	if m.current != nil && m.current.ID == id {
		if err := m.CloseWorkspace(); err != nil {
			return err
		}
	}
	return m.Workspaces.Remove(id)
}

// WorkspaceInfo returns the metadata key/value pairs of the open workspace store.
func (m *Manager) WorkspaceInfo() (map[string]string, error) {
	db := m.registry.Workspace()
	if db == nil || m.current == nil {
		return nil, ErrWorkspaceNotInitialized
	}
	info, err := db.ListInfo()
	if err != nil {
		return nil, fmt.Errorf("reading workspace info: %w", err)
	}
	return info, nil
}

// ExportWorkspace writes a consistent snapshot of the open workspace store to dest.
func (m *Manager) ExportWorkspace(dest string) error {
	if m.current == nil {
		return ErrWorkspaceNotInitialized
	}
	if err := m.registry.BackupWorkspaceTo(dest); err != nil {
		m.logger.Error("failed to export workspace", "dest", dest, "error", err)
		return fmt.Errorf("exporting workspace: %w", err)
	}
	m.logger.Info("workspace exported", "id", m.current.ID, "dest", dest)
	return nil
}

// Close unbinds everything and releases every store handle.
func (m *Manager) Close() error {
	m.unbind()
	m.current = nil
	return m.registry.Close()
}

func (m *Manager) bind(db WorkspaceDatabase) {
	m.Images.Bind(db)
	m.Tags.Bind(db)
	m.Connections.Bind(db)
}

func (m *Manager) unbind() {
	m.Images.Unbind()
	m.Tags.Unbind()
	m.Connections.Unbind()
}

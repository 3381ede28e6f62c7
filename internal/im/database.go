package im

// CatalogDatabase is the process-wide store listing known workspaces.
type CatalogDatabase interface {
	// FindWorkspaceByPath returns the workspace with an exact absolute path match, or nil.
	FindWorkspaceByPath(absolutePath string) (*Workspace, error)

	// FindWorkspaceByID returns the workspace with the given id, or nil.
	FindWorkspaceByID(id int64) (*Workspace, error)

	// CreateWorkspace inserts a new workspace row.
	// Returns ErrDuplicateWorkspace if the path is already registered.
	CreateWorkspace(name, absolutePath string) (*Workspace, error)

	// TouchWorkspace bumps updated_at for the workspace.
	TouchWorkspace(id int64) error

	// ListWorkspaces returns all workspaces, most recently updated first.
	ListWorkspaces() ([]*Workspace, error)

	// DeleteWorkspace removes the workspace row. The folder and its store file are untouched.
	DeleteWorkspace(id int64) error

	// Ping runs a trivial query to check the connection is alive.
	Ping() error
}

// ImageDiff is the minimal set of writes that converges stored images to a scan.
type ImageDiff struct {
	Insert []ScannedImage
	Update []ScannedImage
	Delete []string // relative paths
}

// IsEmpty reports whether applying the diff would touch no rows.
func (d *ImageDiff) IsEmpty() bool {
	return len(d.Insert) == 0 && len(d.Update) == 0 && len(d.Delete) == 0
}

// WorkspaceDatabase is the per-workspace store of images, tags, associations and connections.
// Lookups that miss return nil without an error.
type WorkspaceDatabase interface {
	// Image operations

	ListImages() ([]*Image, error)
	FindImageByPath(relativePath string) (*Image, error)
	FindImageByID(id int64) (*Image, error)

	// ApplyImageDiff applies inserts, updates and deletes atomically.
	ApplyImageDiff(diff *ImageDiff) error

	// UpdateImagePath rewrites the path and name of the image at oldPath.
	UpdateImagePath(oldPath, newPath, newName string) error

	// DeleteImageByPath removes the image row; associations and connections cascade.
	DeleteImageByPath(relativePath string) error

	// Tag operations

	CreateTag(name, color string) (*Tag, error)
	FindTagByID(id int64) (*Tag, error)
	ListTags() ([]*Tag, error)
	ListTagsWithImageCount() ([]*TagWithImageCount, error)
	SearchTags(query string) ([]*Tag, error)

	// TagNameExists compares names case-insensitively. excludeID 0 excludes nothing.
	TagNameExists(name string, excludeID int64) (bool, error)

	UpdateTag(id int64, update TagUpdate) error

	// DeleteTag removes the tag's associations, then the tag.
	DeleteTag(id int64) error

	// AddTagToImage is a no-op when the association already exists.
	AddTagToImage(imageID, tagID int64) error
	RemoveTagFromImage(imageID, tagID int64) error
	ListTagsForImage(imageID int64) ([]*Tag, error)

	// ListImagesByTagsAll returns images carrying every tag in tagIDs (which must be distinct).
	ListImagesByTagsAll(tagIDs []int64) ([]*Image, error)

	// ListImagesByTagsAny returns images carrying at least one tag in tagIDs.
	ListImagesByTagsAny(tagIDs []int64) ([]*Image, error)

	// Connection operations. Callers pass canonical (a < b) pairs.

	FindConnection(imageAID, imageBID int64) (*Connection, error)

	// CreateConnection returns ErrConnectionExists if the pair is already stored.
	CreateConnection(imageAID, imageBID int64) (*Connection, error)
	DeleteConnection(imageAID, imageBID int64) error
	ListConnectionsForImage(imageID int64) ([]*ImageConnection, error)
	ListConnections() ([]*Connection, error)
	ConnectionStats() (*ConnectionStats, error)

	// Workspace metadata

	SetInfo(key, value string) error
	GetInfo(key string) (string, bool, error)
	ListInfo() (map[string]string, error)
}

// StoreRegistry hands out live store handles. It owns every handle; domain
// services only ever use handles it supplies.
type StoreRegistry interface {
	// Catalog returns a live catalog handle, initializing it on first use and
	// reinitializing it once if the liveness probe fails.
	Catalog() (CatalogDatabase, error)

	// OpenWorkspace ensures the on-disk layout, opens the workspace store and
	// migrates its schema. Returns the handle and the resolved store path.
	OpenWorkspace(workspacePath string) (WorkspaceDatabase, string, error)

	// Workspace returns the open workspace handle, or nil.
	Workspace() WorkspaceDatabase

	// CloseWorkspace releases the workspace handle. Safe to call when none is open.
	CloseWorkspace() error

	// BackupWorkspaceTo writes a consistent copy of the open workspace store to dest.
	BackupWorkspaceTo(dest string) error

	// Close releases every handle.
	Close() error
}

// Keys written to workspace_info when a workspace store is initialized.
const (
	InfoInitialized   = "initialized"
	InfoWorkspaceUUID = "workspace_uuid"
)

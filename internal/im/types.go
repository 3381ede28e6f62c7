package im

import "time"

// Workspace is a registered image folder in the catalog store.
type Workspace struct {
	ID           int64
	Name         string
	AbsolutePath string // unique across all workspaces
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Image is a catalogued file inside a workspace store.
// RelativePath is the stable join key: moves and renames rewrite it in place and keep ID.
type Image struct {
	ID           int64
	Name         string
	RelativePath string // slash-separated, relative to the workspace root
	FileSize     int64
	Extension    string // lowercase, no dot
	ModifiedAt   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ScannedImage is the per-file metadata reported by a filesystem scan.
type ScannedImage struct {
	Name         string
	RelativePath string
	Size         int64
	Extension    string
	ModifiedAt   time.Time
}

// Tag is a user-defined label. Color is a hex string, empty when unset.
type Tag struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TagUpdate is a partial tag update. Nil fields are left untouched;
// an empty Color clears the color.
type TagUpdate struct {
	Name  *string
	Color *string
}

// IsEmpty reports whether the update would write nothing.
func (u TagUpdate) IsEmpty() bool {
	return u.Name == nil && u.Color == nil
}

// TagWithImageCount is a tag joined with the number of images carrying it.
type TagWithImageCount struct {
	Tag
	ImageCount int64
}

// ImageWithTags is an image with its full tag list attached.
type ImageWithTags struct {
	Image
	Tags []*Tag
}

// Connection is an undirected edge between two images, stored with ImageAID < ImageBID.
type Connection struct {
	ID        int64
	ImageAID  int64
	ImageBID  int64
	CreatedAt time.Time
}

// ImageConnection is a connection seen from one of its endpoints,
// carrying the full record of the other endpoint.
type ImageConnection struct {
	ConnectionID   int64
	CreatedAt      time.Time
	ConnectedImage *Image
}

// ConnectionStats summarizes the connections of a workspace.
type ConnectionStats struct {
	TotalConnections int64 `json:"totalConnections"`
	ConnectedImages  int64 `json:"connectedImages"`
}

// GraphNode is an image projected for graph visualization.
type GraphNode struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Extension string `json:"extension"`
	Size      int64  `json:"size"`
}

// GraphEdge is a connection projected for graph visualization.
type GraphEdge struct {
	Source    int64     `json:"source"`
	Target    int64     `json:"target"`
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// GraphData is the node/edge projection of a workspace.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

package im

// FilesystemManager is the host filesystem service. The domain delegates every
// physical file operation to it and never touches the disk directly.
// Errors are returned to callers unmodified apart from wrapping.
type FilesystemManager interface {
	// ValidateWorkspacePath checks the path is an existing directory and
	// returns its cleaned absolute form.
	ValidateWorkspacePath(path string) (string, error)

	// WorkspaceName derives a display name from a workspace path.
	WorkspaceName(path string) (string, error)

	WorkspaceLayout

	// ScanImages walks the workspace recursively and reports every supported image.
	ScanImages(workspacePath string) ([]ScannedImage, error)

	// MoveImage moves a file and returns its resulting relative path, which may
	// differ from newPath when the host resolves a collision.
	MoveImage(workspacePath, oldPath, newPath string) (string, error)

	// RenameImage renames a file within its directory and returns the new relative path.
	RenameImage(workspacePath, relativePath, newName string) (string, error)

	DeleteImage(workspacePath, relativePath string) error
	AbsolutePath(workspacePath, relativePath string) (string, error)

	// ReadImageBase64 returns the file as a base64 data URL.
	ReadImageBase64(workspacePath, relativePath string) (string, error)
}

// WorkspaceLayout prepares a workspace's settings folder and reports where its store lives.
type WorkspaceLayout interface {
	EnsureWorkspaceStructure(workspacePath string) (string, error)
}

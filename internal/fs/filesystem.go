package fs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gabriel-vasile/mimetype"

	"im-go/internal/im"
)

// Options configures the workspace layout and what a scan picks up.
type Options struct {
	SettingsFolder   string
	DatabaseName     string
	SupportedFormats []string // lowercase extensions without the dot
	MaxFileSize      int64    // files larger than this are skipped; 0 means no limit
	Ignore           []string
}

// OSFilesystemManager is the real filesystem implementation of im.FilesystemManager.
type OSFilesystemManager struct {
	opts    Options
	formats mapset.Set[string]
}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager(opts Options) *OSFilesystemManager {
	formats := mapset.NewSet[string]()
	for _, f := range opts.SupportedFormats {
		formats.Add(strings.ToLower(strings.TrimPrefix(f, ".")))
	}
	return &OSFilesystemManager{opts: opts, formats: formats}
}

// ValidateWorkspacePath checks that path names an existing directory and returns
// its cleaned absolute form.
func (m *OSFilesystemManager) ValidateWorkspacePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}

	return filepath.Clean(absPath), nil
}

// WorkspaceName derives a display name from the last element of the path.
func (m *OSFilesystemManager) WorkspaceName(path string) (string, error) {
	name := filepath.Base(filepath.Clean(path))
	if name == string(filepath.Separator) || name == "." {
		return "", fmt.Errorf("cannot derive workspace name from %s", path)
	}
	return name, nil
}

// EnsureWorkspaceStructure creates the settings folder and returns the store path inside it.
func (m *OSFilesystemManager) EnsureWorkspaceStructure(workspacePath string) (string, error) {
	info, err := os.Stat(workspacePath)
	if err != nil {
		return "", fmt.Errorf("stat workspace: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace is not a directory: %s", workspacePath)
	}

	settingsDir := filepath.Join(workspacePath, m.opts.SettingsFolder)
	if err := os.MkdirAll(settingsDir, 0755); err != nil {
		return "", fmt.Errorf("creating settings folder: %w", err)
	}
	return filepath.Join(settingsDir, m.opts.DatabaseName), nil
}

// ScanImages walks the workspace and reports every supported image, sorted by relative path.
// The settings folder, hidden entries and ignored paths are skipped.
func (m *OSFilesystemManager) ScanImages(workspacePath string) ([]im.ScannedImage, error) {
	ignore, err := LoadIgnoreMatcher(workspacePath, m.opts.Ignore)
	if err != nil {
		return nil, err
	}

	var images []im.ScannedImage
	err = filepath.WalkDir(workspacePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == workspacePath {
			return nil
		}

		rel, err := filepath.Rel(workspacePath, p)
		if err != nil {
			return fmt.Errorf("calculating relative path: %w", err)
		}
		hidden := strings.HasPrefix(d.Name(), ".")

		if d.IsDir() {
			if hidden || d.Name() == m.opts.SettingsFolder || ignore.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !d.Type().IsRegular() || ignore.Match(rel) {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		if !m.formats.Contains(ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if m.opts.MaxFileSize > 0 && info.Size() > m.opts.MaxFileSize {
			return nil
		}

		images = append(images, im.ScannedImage{
			Name:         d.Name(),
			RelativePath: filepath.ToSlash(rel),
			Size:         info.Size(),
			Extension:    ext,
			ModifiedAt:   info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning workspace: %w", err)
	}

	sort.Slice(images, func(i, j int) bool { return images[i].RelativePath < images[j].RelativePath })
	return images, nil
}

// MoveImage moves a file within the workspace. A destination that is an existing
// directory, or ends with '/', keeps the file's name. Missing parent directories are
// created, and a name collision appends " (n)" before the extension.
func (m *OSFilesystemManager) MoveImage(workspacePath, oldPath, newPath string) (string, error) {
	src, err := m.resolve(workspacePath, oldPath)
	if err != nil {
		return "", err
	}
	if err := requireFile(src); err != nil {
		return "", err
	}

	dst, err := m.resolve(workspacePath, newPath)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(newPath, "/") || isDir(dst) {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	if dst == src {
		return toRelative(workspacePath, src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %w", err)
	}
	dst = uniquePath(dst)

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("moving file: %w", err)
	}
	return toRelative(workspacePath, dst)
}

// RenameImage renames a file within its directory. A new name without an
// extension keeps the old one. An existing file at the target is an error.
func (m *OSFilesystemManager) RenameImage(workspacePath, relativePath, newName string) (string, error) {
	if newName == "" || strings.ContainsAny(newName, `/\`) {
		return "", fmt.Errorf("invalid file name: %q", newName)
	}

	src, err := m.resolve(workspacePath, relativePath)
	if err != nil {
		return "", err
	}
	if err := requireFile(src); err != nil {
		return "", err
	}

	if filepath.Ext(newName) == "" {
		newName += filepath.Ext(src)
	}
	dst := filepath.Join(filepath.Dir(src), newName)
	if dst == src {
		return toRelative(workspacePath, src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("file already exists: %s", newName)
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("renaming file: %w", err)
	}
	return toRelative(workspacePath, dst)
}

// DeleteImage removes a file from the workspace.
func (m *OSFilesystemManager) DeleteImage(workspacePath, relativePath string) error {
	p, err := m.resolve(workspacePath, relativePath)
	if err != nil {
		return err
	}
	if err := requireFile(p); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// AbsolutePath resolves a workspace-relative path.
func (m *OSFilesystemManager) AbsolutePath(workspacePath, relativePath string) (string, error) {
	return m.resolve(workspacePath, relativePath)
}

// ReadImageBase64 returns the file as a data URL with its detected MIME type.
func (m *OSFilesystemManager) ReadImageBase64(workspacePath, relativePath string) (string, error) {
	p, err := m.resolve(workspacePath, relativePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	mime := mimetype.Detect(data).String()
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// resolve joins a relative path to the workspace root, refusing anything that
// would land outside it.
func (m *OSFilesystemManager) resolve(workspacePath, relativePath string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("empty relative path")
	}
	if filepath.IsAbs(relativePath) || strings.HasPrefix(relativePath, "/") {
		return "", fmt.Errorf("path must be relative to the workspace: %s", relativePath)
	}
	clean := filepath.Clean(filepath.FromSlash(relativePath))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", relativePath)
	}
	return filepath.Join(workspacePath, clean), nil
}

func requireFile(p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file not found: %s", p)
		}
		return fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", p)
	}
	return nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func toRelative(workspacePath, p string) (string, error) {
	rel, err := filepath.Rel(workspacePath, p)
	if err != nil {
		return "", fmt.Errorf("calculating relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// uniquePath appends " (n)" before the extension until nothing exists at the path.
func uniquePath(p string) string {
	if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
		return p
	}
	ext := filepath.Ext(p)
	stem := strings.TrimSuffix(p, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}

var _ im.FilesystemManager = (*OSFilesystemManager)(nil)

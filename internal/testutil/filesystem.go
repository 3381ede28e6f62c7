package testutil

import (
	"encoding/base64"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"im-go/internal/database"
	"im-go/internal/im"
)

// MockImage is a file in a mock workspace.
type MockImage struct {
	Content []byte
	ModTime time.Time
}

// MockFilesystemManager is an in-memory host filesystem service for testing.
// Workspaces are keyed by their absolute path; images by slash-separated relative path.
type MockFilesystemManager struct {
	mu         sync.Mutex
	workspaces map[string]map[string]*MockImage

	// StorePath is what EnsureWorkspaceStructure returns. Defaults to an in-memory store.
	StorePath string

	// Failures makes the named method return the given error, e.g. Failures["MoveImage"].
	Failures map[string]error
}

// NewMockFilesystemManager creates an empty mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		workspaces: make(map[string]map[string]*MockImage),
		StorePath:  database.MemoryPath,
		Failures:   make(map[string]error),
	}
}

// AddWorkspace creates an empty workspace directory.
func (m *MockFilesystemManager) AddWorkspace(root string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[root]; !ok {
		m.workspaces[root] = make(map[string]*MockImage)
	}
}

// AddImage puts a file into the workspace, creating the workspace if needed.
func (m *MockFilesystemManager) AddImage(root, relativePath string, content []byte, modTime time.Time) {
	m.AddWorkspace(root)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[root][relativePath] = &MockImage{Content: content, ModTime: modTime}
}

// RemoveImage deletes a file behind the catalog's back.
func (m *MockFilesystemManager) RemoveImage(root, relativePath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces[root], relativePath)
}

// HasImage reports whether the file exists.
func (m *MockFilesystemManager) HasImage(root, relativePath string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.workspaces[root][relativePath]
	return ok
}

// Fail makes method return err until cleared with Fail(method, nil).
func (m *MockFilesystemManager) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Failures, method)
		return
	}
	m.Failures[method] = err
}

func (m *MockFilesystemManager) failure(method string) error {
	return m.Failures[method]
}

func (m *MockFilesystemManager) files(root string) (map[string]*MockImage, error) {
	files, ok := m.workspaces[root]
	if !ok {
		return nil, fmt.Errorf("path does not exist: %s", root)
	}
	return files, nil
}

func (m *MockFilesystemManager) ValidateWorkspacePath(p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ValidateWorkspacePath"); err != nil {
		return "", err
	}
	clean := path.Clean(p)
	if _, err := m.files(clean); err != nil {
		return "", err
	}
	return clean, nil
}

func (m *MockFilesystemManager) WorkspaceName(p string) (string, error) {
	name := path.Base(path.Clean(p))
	if name == "/" || name == "." {
		return "", fmt.Errorf("cannot derive workspace name from %s", p)
	}
	return name, nil
}

func (m *MockFilesystemManager) EnsureWorkspaceStructure(root string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("EnsureWorkspaceStructure"); err != nil {
		return "", err
	}
	if _, err := m.files(root); err != nil {
		return "", err
	}
	return m.StorePath, nil
}

func (m *MockFilesystemManager) ScanImages(root string) ([]im.ScannedImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ScanImages"); err != nil {
		return nil, err
	}
	files, err := m.files(root)
	if err != nil {
		return nil, err
	}

	result := make([]im.ScannedImage, 0, len(files))
	for rel, f := range files {
		result = append(result, im.ScannedImage{
			Name:         path.Base(rel),
			RelativePath: rel,
			Size:         int64(len(f.Content)),
			Extension:    extension(rel),
			ModifiedAt:   f.ModTime,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RelativePath < result[j].RelativePath })
	return result, nil
}

func (m *MockFilesystemManager) MoveImage(root, oldPath, newPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MoveImage"); err != nil {
		return "", err
	}
	files, err := m.files(root)
	if err != nil {
		return "", err
	}
	f, ok := files[oldPath]
	if !ok {
		return "", fmt.Errorf("file not found: %s", oldPath)
	}

	target := newPath
	if strings.HasSuffix(target, "/") {
		target = path.Join(target, path.Base(oldPath))
	}
	target = uniquePath(files, path.Clean(target))

	delete(files, oldPath)
	files[target] = f
	return target, nil
}

func (m *MockFilesystemManager) RenameImage(root, relativePath, newName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RenameImage"); err != nil {
		return "", err
	}
	files, err := m.files(root)
	if err != nil {
		return "", err
	}
	f, ok := files[relativePath]
	if !ok {
		return "", fmt.Errorf("file not found: %s", relativePath)
	}

	if path.Ext(newName) == "" {
		newName += path.Ext(relativePath)
	}
	target := path.Join(path.Dir(relativePath), newName)
	if _, exists := files[target]; exists && target != relativePath {
		return "", fmt.Errorf("file already exists: %s", target)
	}

	delete(files, relativePath)
	files[target] = f
	return target, nil
}

func (m *MockFilesystemManager) DeleteImage(root, relativePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("DeleteImage"); err != nil {
		return err
	}
	files, err := m.files(root)
	if err != nil {
		return err
	}
	if _, ok := files[relativePath]; !ok {
		return fmt.Errorf("file not found: %s", relativePath)
	}
	delete(files, relativePath)
	return nil
}

func (m *MockFilesystemManager) AbsolutePath(root, relativePath string) (string, error) {
	return path.Join(root, relativePath), nil
}

func (m *MockFilesystemManager) ReadImageBase64(root, relativePath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	files, err := m.files(root)
	if err != nil {
		return "", err
	}
	f, ok := files[relativePath]
	if !ok {
		return "", fmt.Errorf("file not found: %s", relativePath)
	}
	return "data:image/" + extension(relativePath) + ";base64," + base64.StdEncoding.EncodeToString(f.Content), nil
}

func extension(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// uniquePath appends " (n)" before the extension until the path is free.
func uniquePath(files map[string]*MockImage, target string) string {
	if _, exists := files[target]; !exists {
		return target
	}
	ext := path.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if _, exists := files[candidate]; !exists {
			return candidate
		}
	}
}

var _ im.FilesystemManager = (*MockFilesystemManager)(nil)

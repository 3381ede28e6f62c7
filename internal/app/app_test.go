package app

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-go/internal/config"
	"im-go/internal/im"
)

func newTestApp(t *testing.T) *IMApp {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Catalog.Type = "memory"
	cfg.LogLevel = "error"
	cfg.Watch.DebounceMS = 50

	a, err := NewIMApp(cfg, "Test")
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func newWorkspaceDir(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
	return root
}

func TestIMApp_OpenWorkspaceScans(t *testing.T) {
	a := newTestApp(t)
	root := newWorkspaceDir(t, "a.jpg", "sub/b.png", "notes.txt")

	ws, err := a.OpenWorkspace(root, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), ws.Name)
	assert.Equal(t, im.PhaseReady, a.State().Phase())

	images := a.State().Images()
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].RelativePath)
	assert.Equal(t, "sub/b.png", images[1].RelativePath)

	assert.DirExists(t, filepath.Join(root, config.DefaultSettingsFolder))
	assert.FileExists(t, filepath.Join(root, config.DefaultSettingsFolder, config.DefaultDatabaseName))
}

func TestIMApp_WorkspaceInfoAndExport(t *testing.T) {
	a := newTestApp(t)
	root := newWorkspaceDir(t, "a.jpg")

	_, err := a.OpenWorkspace(root, true)
	require.NoError(t, err)

	info, err := a.WorkspaceInfo()
	require.NoError(t, err)
	assert.Equal(t, "true", info[im.InfoInitialized])
	assert.NotEmpty(t, info[im.InfoWorkspaceUUID])

	dest := filepath.Join(t.TempDir(), "export.db")
	got, err := a.ExportWorkspace(dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.FileExists(t, dest)

	_, err = a.ExportWorkspace(dest)
	assert.Error(t, err, "export must not overwrite")
}

func TestIMApp_ListAndRemoveWorkspaces(t *testing.T) {
	a := newTestApp(t)
	first := newWorkspaceDir(t)
	second := newWorkspaceDir(t)
	third := newWorkspaceDir(t)

	for _, root := range []string{first, second, third} {
		_, err := a.OpenWorkspace(root, false)
		require.NoError(t, err)
	}

	all, err := a.ListWorkspaces(0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	limited, err := a.ListWorkspaces(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	removed, err := a.RemoveWorkspace(first)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(first), removed.AbsolutePath)

	byID := all[0].ID
	_, err = a.RemoveWorkspace(strconv.FormatInt(byID, 10))
	require.NoError(t, err)

	remaining, err := a.ListWorkspaces(0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	_, err = a.RemoveWorkspace(filepath.Join(t.TempDir(), "unknown"))
	assert.Error(t, err)
}

func TestIMApp_WatchRescans(t *testing.T) {
	a := newTestApp(t)
	root := newWorkspaceDir(t, "a.jpg")

	_, err := a.OpenWorkspace(root, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan []*im.Image, 4)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, func(images []*im.Image) { results <- images })
	}()

	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jpg"), []byte("b"), 0644))

	select {
	case images := <-results:
		assert.Len(t, images, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not rescan")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestIMApp_WatchRequiresWorkspace(t *testing.T) {
	a := newTestApp(t)
	err := a.Watch(context.Background(), nil)
	assert.ErrorIs(t, err, im.ErrNoWorkspace)
}

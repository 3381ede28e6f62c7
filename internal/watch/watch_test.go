package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-go/internal/im"
	"im-go/internal/watch"
)

func skipHidden(rel string) bool {
	return strings.HasPrefix(filepath.Base(rel), ".") && rel != "."
}

func startWatcher(t *testing.T, root string, onChange func() error) {
	t.Helper()
	w, err := watch.New(root, 50*time.Millisecond, skipHidden, im.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, onChange) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		w.Close()
	})
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, root, func() error {
		calls.Add(1)
		return nil
	})

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, root, func() error {
		calls.Add(1)
		return nil
	})

	sub := filepath.Join(root, "2024")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresSkippedDirectories(t *testing.T) {
	root := t.TempDir()
	settings := filepath.Join(root, ".im")
	require.NoError(t, os.Mkdir(settings, 0755))

	var calls atomic.Int32
	startWatcher(t, root, func() error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(settings, "workspace.db"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcher_KeepsRunningAfterHandlerError(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, root, func() error {
		calls.Add(1)
		return errors.New("scan failed")
	})

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := watch.New(filepath.Join(t.TempDir(), "missing"), time.Millisecond, nil, im.NewNopLogger())
	assert.Error(t, err)
}

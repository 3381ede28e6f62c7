// Package watch triggers a callback when files under a workspace change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"im-go/internal/im"
)

// SkipFunc reports whether a workspace-relative directory should not be watched.
type SkipFunc func(relativePath string) bool

// Watcher watches a directory tree and coalesces bursts of events into a
// single callback once the tree has been quiet for the debounce interval.
type Watcher struct {
	root     string
	debounce time.Duration
	skip     SkipFunc
	logger   im.Logger
	fsw      *fsnotify.Watcher
}

// New creates a watcher over root and registers every directory not rejected by skip.
func New(root string, debounce time.Duration, skip SkipFunc, logger im.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if skip == nil {
		skip = func(string) bool { return false }
	}

	w := &Watcher{root: root, debounce: debounce, skip: skip, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree adds dir and its subdirectories to the watch list.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			w.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			rel, err := filepath.Rel(w.root, p)
			if err == nil && w.skip(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		w.logger.Debug("added watch", "path", p)
		return nil
	})
}

// Run blocks until ctx is cancelled, calling onChange after each settled burst
// of changes. A failing onChange is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func() error) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-fire:
			fire = nil
			if err := onChange(); err != nil {
				w.logger.Error("change handler failed", "error", err)
			}
		}
	}
}

// relevant filters events in skipped directories and registers newly created ones.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return false
	}
	if w.skip(filepath.Dir(rel)) || w.skip(rel) {
		return false
	}

	if event.Op.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}
	return true
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

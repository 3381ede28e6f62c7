package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"im-go/internal/config"
	"im-go/internal/database"
	"im-go/internal/fs"
	"im-go/internal/im"
	"im-go/internal/watch"
)

// IMApp is the application layer between the CLI and the domain.
// It constructs all dependencies from config, exposes the application state
// plus the operations that accept raw CLI arguments, and releases every store on Close.
type IMApp struct {
	cfg      *config.Config
	registry *database.Registry
	fsmgr    *fs.OSFilesystemManager
	manager  *im.Manager
	state    *im.State
	op       *Operation
	logger   im.Logger
	logFile  *os.File
}

// NewIMApp creates a fully wired IMApp from the given config.
// operation identifies the CLI command being run (e.g. "OpenWorkspace", "Scan").
// The caller must call Close when done.
func NewIMApp(cfg *config.Config, operation string) (*IMApp, error) {
	now := time.Now().UTC()
	opID := now.Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr := fs.NewOSFilesystemManager(fs.Options{
		SettingsFolder:   cfg.Workspace.SettingsFolder,
		DatabaseName:     cfg.Workspace.DatabaseName,
		SupportedFormats: cfg.Workspace.SupportedFormats,
		MaxFileSize:      cfg.Workspace.MaxFileSize,
		Ignore:           cfg.Filesystem.Ignore,
	})

	registry, err := database.NewRegistryFromConfig(cfg.Catalog, fsmgr, im.RealClock{}, im.UUIDGenerator{}, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	// Open the catalog eagerly so schema problems surface before any command runs.
	if _, err := registry.Catalog(); err != nil {
		registry.Close()
		logFile.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	manager := im.NewManager(registry, fsmgr, logger)

	return &IMApp{
		cfg:      cfg,
		registry: registry,
		fsmgr:    fsmgr,
		manager:  manager,
		state:    im.NewState(manager, logger),
		op:       NewOperation(operation, "", now),
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// State returns the application state the CLI drives.
func (a *IMApp) State() *im.State {
	return a.state
}

// Manager returns the domain coordinator for reads the state layer does not cache.
func (a *IMApp) Manager() *im.Manager {
	return a.manager
}

// Finish records the command outcome and passes err through.
func (a *IMApp) Finish(err error) error {
	return a.op.Finish(err)
}

// OpenWorkspace opens the folder at rawPath as the active workspace.
// With scan set, the folder is reconciled against the store first.
func (a *IMApp) OpenWorkspace(rawPath string, scan bool) (*im.Workspace, error) {
	a.op.Parameters = rawPath
	return a.state.Open(rawPath, scan)
}

// ListWorkspaces returns the most recently opened workspaces, at most limit of them.
// A limit of zero or less returns all.
func (a *IMApp) ListWorkspaces(limit int) ([]*im.Workspace, error) {
	workspaces, err := a.manager.Workspaces.List()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(workspaces) > limit {
		workspaces = workspaces[:limit]
	}
	return workspaces, nil
}

// RemoveWorkspace forgets a workspace given its catalog id or its folder path.
// The folder and its settings directory are left on disk.
func (a *IMApp) RemoveWorkspace(idOrPath string) (*im.Workspace, error) {
	a.op.Parameters = idOrPath
	ws, err := a.findWorkspace(idOrPath)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("no workspace registered for %s", idOrPath)
	}
	if err := a.manager.RemoveWorkspace(ws.ID); err != nil {
		return nil, err
	}
	return ws, nil
}

func (a *IMApp) findWorkspace(idOrPath string) (*im.Workspace, error) {
	if id, err := strconv.ParseInt(idOrPath, 10, 64); err == nil {
		return a.manager.Workspaces.Get(id)
	}

	absPath, err := filepath.Abs(idOrPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	catalog, err := a.registry.Catalog()
	if err != nil {
		return nil, err
	}
	return catalog.FindWorkspaceByPath(filepath.Clean(absPath))
}

// WorkspaceInfo returns the metadata of the active workspace.
func (a *IMApp) WorkspaceInfo() (map[string]string, error) {
	return a.manager.WorkspaceInfo()
}

// ExportWorkspace snapshots the active workspace store to rawDest.
func (a *IMApp) ExportWorkspace(rawDest string) (string, error) {
	dest, err := filepath.Abs(rawDest)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("destination already exists: %s", dest)
	}
	if err := a.manager.ExportWorkspace(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Watch keeps reconciling the active workspace whenever its folder changes,
// until ctx is cancelled. rescanned is called with the fresh image list.
func (a *IMApp) Watch(ctx context.Context, rescanned func([]*im.Image)) error {
	ws := a.state.Workspace()
	if ws == nil {
		return im.ErrNoWorkspace
	}

	ignore, err := fs.LoadIgnoreMatcher(ws.AbsolutePath, a.cfg.Filesystem.Ignore)
	if err != nil {
		return err
	}
	skip := func(rel string) bool {
		if rel == "." || rel == "" {
			return false
		}
		base := filepath.Base(rel)
		return base == a.cfg.Workspace.SettingsFolder || strings.HasPrefix(base, ".") || ignore.MatchDir(rel)
	}

	debounce := time.Duration(a.cfg.Watch.DebounceMS) * time.Millisecond
	w, err := watch.New(ws.AbsolutePath, debounce, skip, a.logger)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	a.logger.Info("watching workspace", "path", ws.AbsolutePath, "debounce", debounce)
	return w.Run(ctx, func() error {
		images, err := a.state.Rescan()
		if err != nil {
			return err
		}
		if rescanned != nil {
			rescanned(images)
		}
		return nil
	})
}

// Close closes the active workspace and every store, then logs the operation outcome.
func (a *IMApp) Close() error {
	var errs []error

	if err := a.state.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing workspace: %w", err))
	}
	if err := a.manager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing stores: %w", err))
	}

	now := time.Now().UTC()
	a.logger.Info("operation finished",
		"operation", a.op.Name,
		"parameters", a.op.Parameters,
		"status", a.op.Status,
		"duration", a.op.Duration(now).Truncate(time.Millisecond),
	)

	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

package im

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkspaceNotInitialized is returned by every workspace-scoped operation
	// while no workspace store is bound.
	ErrWorkspaceNotInitialized = errors.New("workspace database not initialized")

	// ErrCatalogUnavailable is returned when the catalog store cannot be
	// (re)opened or fails its liveness probe after one reinitialization.
	ErrCatalogUnavailable = errors.New("catalog database unavailable")

	// ErrValidation is the parent of all input validation failures.
	ErrValidation = errors.New("validation failed")

	ErrSelfConnection     = fmt.Errorf("%w: cannot create connection between the same image", ErrValidation)
	ErrConnectionExists   = fmt.Errorf("%w: connection already exists between these images", ErrValidation)
	ErrDuplicateWorkspace = fmt.Errorf("%w: workspace path already registered", ErrValidation)
	ErrTagNameTaken       = fmt.Errorf("%w: tag name already exists", ErrValidation)

	// ErrWorkspaceBusy is returned by state operations attempted while a
	// workspace is opening or closing.
	ErrWorkspaceBusy = errors.New("workspace is opening or closing")

	// ErrNoWorkspace is returned by state operations that need an open workspace.
	ErrNoWorkspace = errors.New("no workspace is open")
)

// validationError wraps ErrValidation with a specific message.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

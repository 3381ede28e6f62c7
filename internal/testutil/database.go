package testutil

import (
	"testing"

	"im-go/internal/database"
	"im-go/internal/im"
)

// NewTestRegistry creates a Registry with an in-memory catalog store. Workspace
// stores go wherever layout says; MockFilesystemManager defaults to in-memory.
// The registry is closed when the test completes.
func NewTestRegistry(t *testing.T, layout im.WorkspaceLayout, clock im.Clock) *database.Registry {
	t.Helper()

	reg := database.NewRegistry(database.MemoryPath, layout, clock, NewStubIDGenerator(), im.NewNopLogger())
	t.Cleanup(func() {
		reg.Close()
	})
	return reg
}

// NewTestWorkspaceDatabase creates a migrated in-memory workspace store.
// The store is closed when the test completes.
func NewTestWorkspaceDatabase(t *testing.T, clock im.Clock) *database.SQLiteWorkspace {
	t.Helper()

	db, err := database.NewSQLiteWorkspace(database.MemoryPath, clock)
	if err != nil {
		t.Fatalf("failed to open workspace database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

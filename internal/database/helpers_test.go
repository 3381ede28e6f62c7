package database

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// stubClock is a settable clock. testutil cannot be used here since it imports this package.
type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubIDs struct{ n int }

func (g *stubIDs) New() string {
	g.n++
	return fmt.Sprintf("ws-%d", g.n)
}

// stubLayout places every workspace store at a fixed path.
type stubLayout struct {
	storePath string
	err       error
}

func (l stubLayout) EnsureWorkspaceStructure(string) (string, error) {
	return l.storePath, l.err
}

// newTestCatalog creates a migrated in-memory catalog store.
func newTestCatalog(t *testing.T, clock *stubClock) *SQLiteCatalog {
	t.Helper()

	c, err := NewSQLiteCatalog(MemoryPath, clock)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
	})
	return c
}

// newTestWorkspace creates a migrated in-memory workspace store.
func newTestWorkspace(t *testing.T, clock *stubClock) *SQLiteWorkspace {
	t.Helper()

	ws, err := NewSQLiteWorkspace(MemoryPath, clock)
	if err != nil {
		t.Fatalf("failed to create workspace store: %v", err)
	}
	t.Cleanup(func() {
		ws.Close()
	})
	return ws
}

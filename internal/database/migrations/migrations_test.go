package migrations

import (
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	tests := []struct {
		set    Set
		tables []string
	}{
		{Catalog, []string{"workspaces", "schema_migrations"}},
		{Workspace, []string{"workspace_info", "images", "tags", "image_tags", "connections", "schema_migrations"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.set), func(t *testing.T) {
			db := openTestDB(t)
			defer db.Close()

			if err := MigrateUp(db, tt.set); err != nil {
				t.Fatalf("MigrateUp() failed: %v", err)
			}

			for _, table := range tt.tables {
				var name string
				err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
				if err != nil {
					t.Errorf("Table %s was not created: %v", table, err)
				}
			}
		})
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db, Workspace)
	if err == nil {
		t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	for _, set := range []Set{Catalog, Workspace} {
		t.Run(string(set), func(t *testing.T) {
			db := openTestDB(t)
			defer db.Close()

			if err := MigrateUp(db, set); err != nil {
				t.Fatalf("MigrateUp() failed: %v", err)
			}

			if err := CheckDBMigrationStatus(db, set); err != nil {
				t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
			}
		})
	}
}

func TestCheckDBMigrationStatus_AheadOfBinary(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Catalog); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_migrations SET version = 9999"); err != nil {
		t.Fatalf("bumping version: %v", err)
	}

	err := CheckDBMigrationStatus(db, Catalog)
	if err == nil || !strings.Contains(err.Error(), "ahead of binary") {
		t.Errorf("CheckDBMigrationStatus() error = %v, want ahead-of-binary error", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Workspace); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db, Workspace); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	if err := CheckDBMigrationStatus(db, Workspace); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	for _, set := range []Set{Catalog, Workspace} {
		v, err := LatestVersion(set)
		if err != nil {
			t.Fatalf("LatestVersion(%s) error = %v", set, err)
		}
		if v < 1 {
			t.Errorf("LatestVersion(%s) = %d, want >= 1", set, v)
		}
	}
}

func TestSchema_ImageDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Workspace); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, `INSERT INTO images (id, name, relative_path, file_size, extension, modified_at) VALUES
		(1, 'a.jpg', 'a.jpg', 1, 'jpg', datetime('now')),
		(2, 'b.png', 'b.png', 1, 'png', datetime('now'))`)
	mustExec(t, db, `INSERT INTO tags (id, name) VALUES (1, 'red')`)
	mustExec(t, db, `INSERT INTO image_tags (image_id, tag_id) VALUES (1, 1)`)
	mustExec(t, db, `INSERT INTO connections (image_a_id, image_b_id) VALUES (1, 2)`)

	mustExec(t, db, `DELETE FROM images WHERE id = 1`)

	for _, table := range []string{"image_tags", "connections"} {
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s rows after image delete = %d, want 0", table, n)
		}
	}
}

func TestSchema_ConnectionOrdering(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Workspace); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, `INSERT INTO images (id, name, relative_path, file_size, extension, modified_at) VALUES
		(1, 'a.jpg', 'a.jpg', 1, 'jpg', datetime('now')),
		(2, 'b.png', 'b.png', 1, 'png', datetime('now'))`)

	if _, err := db.Exec(`INSERT INTO connections (image_a_id, image_b_id) VALUES (2, 1)`); err == nil {
		t.Error("Expected check constraint violation for reversed pair, but insert succeeded")
	}
	if _, err := db.Exec(`INSERT INTO connections (image_a_id, image_b_id) VALUES (1, 1)`); err == nil {
		t.Error("Expected check constraint violation for self-connection, but insert succeeded")
	}

	mustExec(t, db, `INSERT INTO connections (image_a_id, image_b_id) VALUES (1, 2)`)
	if _, err := db.Exec(`INSERT INTO connections (image_a_id, image_b_id) VALUES (1, 2)`); err == nil {
		t.Error("Expected unique constraint violation for duplicate pair, but insert succeeded")
	}
}

func TestSchema_WorkspacePathUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Catalog); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec(t, db, "INSERT INTO workspaces (name, absolute_path) VALUES ('photos', '/test/photos')")

	_, err := db.Exec("INSERT INTO workspaces (name, absolute_path) VALUES ('other', '/test/photos')")
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate path, but insert succeeded")
	}
}

func TestExtractSchema(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db, Workspace); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	schema, err := ExtractSchema(db)
	if err != nil {
		t.Fatalf("ExtractSchema() error = %v", err)
	}
	if !strings.Contains(schema, "CREATE TABLE connections") {
		t.Errorf("ExtractSchema() missing connections table:\n%s", schema)
	}
	if strings.Contains(schema, "schema_migrations") {
		t.Error("ExtractSchema() should skip schema_migrations")
	}
}

// openTestDB opens an in-memory SQLite database with foreign keys enabled.
// A single connection keeps every query on the same in-memory database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	return db
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

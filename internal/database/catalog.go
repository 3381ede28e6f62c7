package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"im-go/internal/database/migrations"
	"im-go/internal/im"
)

// SQLiteCatalog implements im.CatalogDatabase using SQLite.
type SQLiteCatalog struct {
	db    *sql.DB
	clock im.Clock
	path  string
}

var _ im.CatalogDatabase = (*SQLiteCatalog)(nil)

// NewSQLiteCatalog opens the catalog store at path, migrating it to the latest schema.
func NewSQLiteCatalog(path string, clock im.Clock) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db, migrations.Catalog); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating catalog database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db, migrations.Catalog); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking catalog schema: %w", err)
	}

	return &SQLiteCatalog{db: db, clock: clock, path: path}, nil
}

// NewSQLiteCatalogFromDB wraps an existing connection. The schema is not touched.
func NewSQLiteCatalogFromDB(db *sql.DB, clock im.Clock) *SQLiteCatalog {
	return &SQLiteCatalog{db: db, clock: clock}
}

const workspaceColumns = `id, name, absolute_path, created_at, updated_at`

func scanWorkspace(row rowScanner) (*im.Workspace, error) {
	var ws im.Workspace
	if err := row.Scan(&ws.ID, &ws.Name, &ws.AbsolutePath, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *SQLiteCatalog) FindWorkspaceByPath(absolutePath string) (*im.Workspace, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+workspaceColumns+` FROM workspaces WHERE absolute_path = ?`, absolutePath)
	ws, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding workspace by path: %w", err)
	}
	return ws, nil
}

func (s *SQLiteCatalog) FindWorkspaceByID(id int64) (*im.Workspace, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+workspaceColumns+` FROM workspaces WHERE id = ?`, id)
	ws, err := scanWorkspace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding workspace by id: %w", err)
	}
	return ws, nil
}

func (s *SQLiteCatalog) CreateWorkspace(name, absolutePath string) (*im.Workspace, error) {
	now := s.clock.Now()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO workspaces (name, absolute_path, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, absolutePath, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, im.ErrDuplicateWorkspace
		}
		return nil, fmt.Errorf("inserting workspace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading workspace id: %w", err)
	}
	return s.FindWorkspaceByID(id)
}

func (s *SQLiteCatalog) TouchWorkspace(id int64) error {
	_, err := s.db.ExecContext(context.Background(),
		`UPDATE workspaces SET updated_at = ? WHERE id = ?`, s.clock.Now(), id)
	if err != nil {
		return fmt.Errorf("touching workspace: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) ListWorkspaces() ([]*im.Workspace, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+workspaceColumns+` FROM workspaces ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	defer rows.Close()

	var result []*im.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workspace: %w", err)
		}
		result = append(result, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	return result, nil
}

func (s *SQLiteCatalog) DeleteWorkspace(id int64) error {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM workspaces WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	return nil
}

// Ping runs a trivial query against the catalog.
func (s *SQLiteCatalog) Ping() error {
	var one int
	if err := s.db.QueryRowContext(context.Background(), `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("catalog liveness probe: %w", err)
	}
	return nil
}

// Path returns the file path of the catalog store.
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

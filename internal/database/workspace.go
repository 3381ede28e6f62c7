package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"im-go/internal/database/migrations"
	"im-go/internal/im"
)

// SQLiteWorkspace implements im.WorkspaceDatabase using SQLite.
type SQLiteWorkspace struct {
	db    *sql.DB
	clock im.Clock
	path  string
}

var _ im.WorkspaceDatabase = (*SQLiteWorkspace)(nil)

// NewSQLiteWorkspace opens the workspace store at path, migrating it to the latest schema.
func NewSQLiteWorkspace(path string, clock im.Clock) (*SQLiteWorkspace, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db, migrations.Workspace); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating workspace database: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db, migrations.Workspace); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking workspace schema: %w", err)
	}

	return &SQLiteWorkspace{db: db, clock: clock, path: path}, nil
}

// Image operations

const imageColumns = `i.id, i.name, i.relative_path, i.file_size, i.extension, i.modified_at, i.created_at, i.updated_at`

func scanImage(row rowScanner) (*im.Image, error) {
	var img im.Image
	err := row.Scan(&img.ID, &img.Name, &img.RelativePath, &img.FileSize, &img.Extension,
		&img.ModifiedAt, &img.CreatedAt, &img.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *SQLiteWorkspace) queryImages(query string, args ...any) ([]*im.Image, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*im.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		result = append(result, img)
	}
	return result, rows.Err()
}

func (s *SQLiteWorkspace) ListImages() ([]*im.Image, error) {
	images, err := s.queryImages(`SELECT ` + imageColumns + ` FROM images i ORDER BY i.name, i.id`)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	return images, nil
}

func (s *SQLiteWorkspace) FindImageByPath(relativePath string) (*im.Image, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+imageColumns+` FROM images i WHERE i.relative_path = ?`, relativePath)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding image by path: %w", err)
	}
	return img, nil
}

func (s *SQLiteWorkspace) FindImageByID(id int64) (*im.Image, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+imageColumns+` FROM images i WHERE i.id = ?`, id)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding image by id: %w", err)
	}
	return img, nil
}

func (s *SQLiteWorkspace) ApplyImageDiff(diff *im.ImageDiff) error {
	ctx := context.Background()
	now := s.clock.Now()

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, img := range diff.Insert {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO images (name, relative_path, file_size, extension, modified_at, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				img.Name, img.RelativePath, img.Size, img.Extension, img.ModifiedAt, now, now)
			if err != nil {
				return fmt.Errorf("inserting image %s: %w", img.RelativePath, err)
			}
		}

		for _, img := range diff.Update {
			_, err := tx.ExecContext(ctx,
				`UPDATE images SET name = ?, file_size = ?, extension = ?, modified_at = ?, updated_at = ?
				 WHERE relative_path = ?`,
				img.Name, img.Size, img.Extension, img.ModifiedAt, now, img.RelativePath)
			if err != nil {
				return fmt.Errorf("updating image %s: %w", img.RelativePath, err)
			}
		}

		for _, relativePath := range diff.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE relative_path = ?`, relativePath); err != nil {
				return fmt.Errorf("deleting image %s: %w", relativePath, err)
			}
		}

		return nil
	})
}

func (s *SQLiteWorkspace) UpdateImagePath(oldPath, newPath, newName string) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE images SET relative_path = ?, name = ?, updated_at = ? WHERE relative_path = ?`,
		newPath, newName, s.clock.Now(), oldPath)
	if err != nil {
		return fmt.Errorf("updating image path: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating image path: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no image recorded at %s", oldPath)
	}
	return nil
}

func (s *SQLiteWorkspace) DeleteImageByPath(relativePath string) error {
	if _, err := s.db.ExecContext(context.Background(), `DELETE FROM images WHERE relative_path = ?`, relativePath); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// Tag operations

const tagColumns = `t.id, t.name, t.color, t.created_at, t.updated_at`

func scanTag(row rowScanner, extra ...any) (*im.Tag, error) {
	var tag im.Tag
	var color sql.NullString
	dest := append([]any{&tag.ID, &tag.Name, &color, &tag.CreatedAt, &tag.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	tag.Color = color.String
	return &tag, nil
}

func (s *SQLiteWorkspace) queryTags(query string, args ...any) ([]*im.Tag, error) {
	rows, err := s.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*im.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}

func nullableColor(color string) sql.NullString {
	return sql.NullString{String: color, Valid: color != ""}
}

func (s *SQLiteWorkspace) CreateTag(name, color string) (*im.Tag, error) {
	now := s.clock.Now()
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO tags (name, color, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, nullableColor(color), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, im.ErrTagNameTaken
		}
		return nil, fmt.Errorf("inserting tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading tag id: %w", err)
	}
	return s.FindTagByID(id)
}

func (s *SQLiteWorkspace) FindTagByID(id int64) (*im.Tag, error) {
	row := s.db.QueryRowContext(context.Background(), `SELECT `+tagColumns+` FROM tags t WHERE t.id = ?`, id)
	tag, err := scanTag(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding tag: %w", err)
	}
	return tag, nil
}

func (s *SQLiteWorkspace) ListTags() ([]*im.Tag, error) {
	tags, err := s.queryTags(`SELECT ` + tagColumns + ` FROM tags t ORDER BY t.name COLLATE NOCASE, t.id`)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteWorkspace) ListTagsWithImageCount() ([]*im.TagWithImageCount, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+tagColumns+`, COUNT(it.image_id)
		 FROM tags t
		 LEFT JOIN image_tags it ON it.tag_id = t.id
		 GROUP BY t.id
		 ORDER BY t.name COLLATE NOCASE, t.id`)
	if err != nil {
		return nil, fmt.Errorf("listing tags with image count: %w", err)
	}
	defer rows.Close()

	var result []*im.TagWithImageCount
	for rows.Next() {
		var count int64
		tag, err := scanTag(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		result = append(result, &im.TagWithImageCount{Tag: *tag, ImageCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing tags with image count: %w", err)
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLiteWorkspace) SearchTags(query string) ([]*im.Tag, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"
	tags, err := s.queryTags(
		`SELECT `+tagColumns+` FROM tags t WHERE t.name LIKE ? ESCAPE '\' ORDER BY t.name COLLATE NOCASE, t.id`,
		pattern)
	if err != nil {
		return nil, fmt.Errorf("searching tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteWorkspace) TagNameExists(name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM tags WHERE lower(name) = lower(?) AND id != ?)`,
		name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking tag name: %w", err)
	}
	return exists, nil
}

func (s *SQLiteWorkspace) UpdateTag(id int64, update im.TagUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, nullableColor(*update.Color))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.clock.Now(), id)

	_, err := s.db.ExecContext(context.Background(),
		`UPDATE tags SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return im.ErrTagNameTaken
		}
		return fmt.Errorf("updating tag: %w", err)
	}
	return nil
}

func (s *SQLiteWorkspace) DeleteTag(id int64) error {
	ctx := context.Background()
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE tag_id = ?`, id); err != nil {
			return fmt.Errorf("deleting tag associations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting tag: %w", err)
		}
		return nil
	})
}

func (s *SQLiteWorkspace) AddTagToImage(imageID, tagID int64) error {
	ctx := context.Background()
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM image_tags WHERE image_id = ? AND tag_id = ?)`,
			imageID, tagID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking tag association: %w", err)
		}
		if exists {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO image_tags (image_id, tag_id, created_at) VALUES (?, ?, ?)`,
			imageID, tagID, s.clock.Now())
		if err != nil {
			return fmt.Errorf("inserting tag association: %w", err)
		}
		return nil
	})
}

func (s *SQLiteWorkspace) RemoveTagFromImage(imageID, tagID int64) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM image_tags WHERE image_id = ? AND tag_id = ?`, imageID, tagID)
	if err != nil {
		return fmt.Errorf("deleting tag association: %w", err)
	}
	return nil
}

func (s *SQLiteWorkspace) ListTagsForImage(imageID int64) ([]*im.Tag, error) {
	tags, err := s.queryTags(
		`SELECT `+tagColumns+`
		 FROM tags t
		 JOIN image_tags it ON it.tag_id = t.id
		 WHERE it.image_id = ?
		 ORDER BY t.name COLLATE NOCASE, t.id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("listing tags for image: %w", err)
	}
	return tags, nil
}

// inClause returns "?, ?, ..." for ids and the matching arguments.
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

func (s *SQLiteWorkspace) ListImagesByTagsAll(tagIDs []int64) ([]*im.Image, error) {
	if len(tagIDs) == 0 {
		return s.ListImages()
	}
	marks, args := inClause(tagIDs)
	args = append(args, len(tagIDs))

	images, err := s.queryImages(
		`SELECT `+imageColumns+`
		 FROM images i
		 JOIN image_tags it ON it.image_id = i.id
		 WHERE it.tag_id IN (`+marks+`)
		 GROUP BY i.id
		 HAVING COUNT(DISTINCT it.tag_id) = ?
		 ORDER BY i.name, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering images by all tags: %w", err)
	}
	return images, nil
}

func (s *SQLiteWorkspace) ListImagesByTagsAny(tagIDs []int64) ([]*im.Image, error) {
	if len(tagIDs) == 0 {
		return s.ListImages()
	}
	marks, args := inClause(tagIDs)

	images, err := s.queryImages(
		`SELECT DISTINCT `+imageColumns+`
		 FROM images i
		 JOIN image_tags it ON it.image_id = i.id
		 WHERE it.tag_id IN (`+marks+`)
		 ORDER BY i.name, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("filtering images by any tag: %w", err)
	}
	return images, nil
}

// Connection operations

const connectionColumns = `c.id, c.image_a_id, c.image_b_id, c.created_at`

func scanConnection(row rowScanner) (*im.Connection, error) {
	var c im.Connection
	if err := row.Scan(&c.ID, &c.ImageAID, &c.ImageBID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteWorkspace) FindConnection(imageAID, imageBID int64) (*im.Connection, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+connectionColumns+` FROM connections c WHERE c.image_a_id = ? AND c.image_b_id = ?`,
		imageAID, imageBID)
	c, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding connection: %w", err)
	}
	return c, nil
}

func (s *SQLiteWorkspace) CreateConnection(imageAID, imageBID int64) (*im.Connection, error) {
	ctx := context.Background()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO connections (image_a_id, image_b_id, created_at) VALUES (?, ?, ?)`,
		imageAID, imageBID, s.clock.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, im.ErrConnectionExists
		}
		return nil, fmt.Errorf("inserting connection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading connection id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections c WHERE c.id = ?`, id)
	c, err := scanConnection(row)
	if err != nil {
		return nil, fmt.Errorf("reading connection: %w", err)
	}
	return c, nil
}

func (s *SQLiteWorkspace) DeleteConnection(imageAID, imageBID int64) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM connections WHERE image_a_id = ? AND image_b_id = ?`, imageAID, imageBID)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	return nil
}

func (s *SQLiteWorkspace) ListConnectionsForImage(imageID int64) ([]*im.ImageConnection, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT c.id, c.created_at, `+imageColumns+`
		 FROM connections c
		 JOIN images i ON i.id = CASE WHEN c.image_a_id = ? THEN c.image_b_id ELSE c.image_a_id END
		 WHERE c.image_a_id = ? OR c.image_b_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`,
		imageID, imageID, imageID)
	if err != nil {
		return nil, fmt.Errorf("listing connections for image: %w", err)
	}
	defer rows.Close()

	var result []*im.ImageConnection
	for rows.Next() {
		var (
			ic  im.ImageConnection
			img im.Image
		)
		err := rows.Scan(&ic.ConnectionID, &ic.CreatedAt,
			&img.ID, &img.Name, &img.RelativePath, &img.FileSize, &img.Extension,
			&img.ModifiedAt, &img.CreatedAt, &img.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		ic.ConnectedImage = &img
		result = append(result, &ic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing connections for image: %w", err)
	}
	return result, nil
}

func (s *SQLiteWorkspace) ListConnections() ([]*im.Connection, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+connectionColumns+` FROM connections c ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	defer rows.Close()

	var result []*im.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	return result, nil
}

func (s *SQLiteWorkspace) ConnectionStats() (*im.ConnectionStats, error) {
	var stats im.ConnectionStats
	err := s.db.QueryRowContext(context.Background(),
		`SELECT
		   (SELECT COUNT(*) FROM connections),
		   (SELECT COUNT(*) FROM (
		      SELECT image_a_id FROM connections
		      UNION
		      SELECT image_b_id FROM connections
		   ))`).Scan(&stats.TotalConnections, &stats.ConnectedImages)
	if err != nil {
		return nil, fmt.Errorf("counting connections: %w", err)
	}
	return &stats, nil
}

// Workspace metadata

func (s *SQLiteWorkspace) SetInfo(key, value string) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO workspace_info (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.clock.Now())
	if err != nil {
		return fmt.Errorf("setting workspace info %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteWorkspace) GetInfo(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM workspace_info WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading workspace info %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteWorkspace) ListInfo() (map[string]string, error) {
	rows, err := s.db.QueryContext(context.Background(), `SELECT key, value FROM workspace_info`)
	if err != nil {
		return nil, fmt.Errorf("listing workspace info: %w", err)
	}
	defer rows.Close()

	info := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning workspace info: %w", err)
		}
		info[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing workspace info: %w", err)
	}
	return info, nil
}

// Path returns the file path of the workspace store.
func (s *SQLiteWorkspace) Path() string {
	return s.path
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteWorkspace) BackupTo(destPath string) error {
	if _, err := s.db.ExecContext(context.Background(), "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up workspace database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteWorkspace) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

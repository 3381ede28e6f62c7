package im

import (
	"fmt"
	"path"

	mapset "github.com/deckarep/golang-set/v2"
)

// ImageCatalog keeps the stored image rows of a workspace consistent with its folder.
type ImageCatalog struct {
	binding
	fsmgr  FilesystemManager
	logger Logger
}

// NewImageCatalog creates an unbound ImageCatalog.
func NewImageCatalog(fsmgr FilesystemManager, logger Logger) *ImageCatalog {
	return &ImageCatalog{
		fsmgr:  fsmgr,
		logger: logger,
	}
}

// Reconcile scans the workspace folder and applies the minimal insert/update/delete
// set keyed by relative path, so image ids survive rescans. Unchanged rows are not
// written. Returns every stored image after reconciliation, name-ordered.
func (c *ImageCatalog) Reconcile(workspacePath string) ([]*Image, error) {
	db, err := c.store()
	if err != nil {
		return nil, err
	}

	scanned, err := c.fsmgr.ScanImages(workspacePath)
	if err != nil {
		c.logger.Error("image scan failed", "workspace", workspacePath, "error", err)
		return nil, err
	}

	existing, err := db.ListImages()
	if err != nil {
		c.logger.Error("failed to load stored images", "error", err)
		return nil, fmt.Errorf("loading stored images: %w", err)
	}

	diff := DiffImages(scanned, existing)
	if !diff.IsEmpty() {
		if err := db.ApplyImageDiff(diff); err != nil {
			c.logger.Error("failed to apply image diff", "error", err)
			return nil, fmt.Errorf("applying image changes: %w", err)
		}
	}

	c.logger.Info("images reconciled",
		"inserted", len(diff.Insert),
		"updated", len(diff.Update),
		"removed", len(diff.Delete),
	)

	return c.All()
}

// DiffImages computes the writes needed to converge existing rows to a scan.
func DiffImages(scanned []ScannedImage, existing []*Image) *ImageDiff {
	diff := &ImageDiff{}

	existingByPath := make(map[string]*Image, len(existing))
	for _, img := range existing {
		existingByPath[img.RelativePath] = img
	}

	seen := mapset.NewThreadUnsafeSetWithSize[string](len(scanned))
	for _, s := range scanned {
		seen.Add(s.RelativePath)

		stored, ok := existingByPath[s.RelativePath]
		if !ok {
			diff.Insert = append(diff.Insert, s)
			continue
		}
		if imageChanged(stored, s) {
			diff.Update = append(diff.Update, s)
		}
	}

	for _, img := range existing {
		if !seen.Contains(img.RelativePath) {
			diff.Delete = append(diff.Delete, img.RelativePath)
		}
	}

	return diff
}

func imageChanged(stored *Image, scanned ScannedImage) bool {
	return stored.Name != scanned.Name ||
		stored.FileSize != scanned.Size ||
		stored.Extension != scanned.Extension ||
		!stored.ModifiedAt.Equal(scanned.ModifiedAt)
}

// All returns every stored image, name-ordered.
func (c *ImageCatalog) All() ([]*Image, error) {
	db, err := c.store()
	if err != nil {
		return nil, err
	}
	images, err := db.ListImages()
	if err != nil {
		c.logger.Error("failed to list images", "error", err)
		return nil, fmt.Errorf("listing images: %w", err)
	}
	return images, nil
}

// ByPath returns the image at the relative path, or nil.
func (c *ImageCatalog) ByPath(relativePath string) (*Image, error) {
	db, err := c.store()
	if err != nil {
		return nil, err
	}
	img, err := db.FindImageByPath(relativePath)
	if err != nil {
		return nil, fmt.Errorf("finding image by path: %w", err)
	}
	return img, nil
}

// ByID returns the image with the given id, or nil.
func (c *ImageCatalog) ByID(id int64) (*Image, error) {
	db, err := c.store()
	if err != nil {
		return nil, err
	}
	img, err := db.FindImageByID(id)
	if err != nil {
		return nil, fmt.Errorf("finding image by id: %w", err)
	}
	return img, nil
}

// Move moves the file on disk, then rewrites the row's path. The row is only
// touched after the host operation succeeded. Returns the resulting relative path.
func (c *ImageCatalog) Move(oldPath, newPath, workspacePath string) (string, error) {
	db, err := c.store()
	if err != nil {
		return "", err
	}

	resultPath, err := c.fsmgr.MoveImage(workspacePath, oldPath, newPath)
	if err != nil {
		c.logger.Error("failed to move image", "from", oldPath, "to", newPath, "error", err)
		return "", err
	}

	if err := db.UpdateImagePath(oldPath, resultPath, path.Base(resultPath)); err != nil {
		c.logger.Error("image moved on disk but catalog update failed", "from", oldPath, "to", resultPath, "error", err)
		return "", fmt.Errorf("updating image path: %w", err)
	}

	c.logger.Info("image moved", "from", oldPath, "to", resultPath)
	return resultPath, nil
}

// Rename renames the file within its directory, then rewrites the row's name and path.
// Returns the resulting relative path.
func (c *ImageCatalog) Rename(oldName, newName, relativePath, workspacePath string) (string, error) {
	db, err := c.store()
	if err != nil {
		return "", err
	}
	if newName == "" {
		return "", validationError("new image name is required")
	}

	resultPath, err := c.fsmgr.RenameImage(workspacePath, relativePath, newName)
	if err != nil {
		c.logger.Error("failed to rename image", "path", relativePath, "from", oldName, "to", newName, "error", err)
		return "", err
	}

	if err := db.UpdateImagePath(relativePath, resultPath, path.Base(resultPath)); err != nil {
		c.logger.Error("image renamed on disk but catalog update failed", "path", relativePath, "to", resultPath, "error", err)
		return "", fmt.Errorf("updating image name: %w", err)
	}

	c.logger.Info("image renamed", "from", oldName, "to", path.Base(resultPath), "path", resultPath)
	return resultPath, nil
}

// Delete removes the file on disk, then its row. Tag associations and
// connections go with the row.
func (c *ImageCatalog) Delete(relativePath, workspacePath string) error {
	db, err := c.store()
	if err != nil {
		return err
	}

	if err := c.fsmgr.DeleteImage(workspacePath, relativePath); err != nil {
		c.logger.Error("failed to delete image", "path", relativePath, "error", err)
		return err
	}

	if err := db.DeleteImageByPath(relativePath); err != nil {
		c.logger.Error("image deleted on disk but catalog delete failed", "path", relativePath, "error", err)
		return fmt.Errorf("deleting image record: %w", err)
	}

	c.logger.Info("image deleted", "path", relativePath)
	return nil
}

// AbsolutePath resolves a relative image path against the workspace root.
func (c *ImageCatalog) AbsolutePath(relativePath, workspacePath string) (string, error) {
	return c.fsmgr.AbsolutePath(workspacePath, relativePath)
}

// AsBase64 returns the image content as a base64 data URL.
func (c *ImageCatalog) AsBase64(relativePath, workspacePath string) (string, error) {
	return c.fsmgr.ReadImageBase64(workspacePath, relativePath)
}

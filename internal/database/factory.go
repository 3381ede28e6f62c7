package database

import (
	"fmt"
	"os"
	"path/filepath"

	"im-go/internal/config"
	"im-go/internal/im"
)

// CatalogFileName is the catalog store file inside the configured data directory.
const CatalogFileName = "catalog.db"

// CatalogPathFromConfig resolves where the catalog store lives for the configured type.
func CatalogPathFromConfig(cfg config.CatalogConfig) (string, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", fmt.Errorf("creating catalog data directory: %w", err)
		}
		return filepath.Join(cfg.DataDir, CatalogFileName), nil
	case "memory":
		return MemoryPath, nil
	default:
		return "", fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}

// NewRegistryFromConfig creates a Registry whose catalog store follows the catalog config.
func NewRegistryFromConfig(cfg config.CatalogConfig, layout im.WorkspaceLayout, clock im.Clock, idgen im.IDGenerator, logger im.Logger) (*Registry, error) {
	path, err := CatalogPathFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewRegistry(path, layout, clock, idgen, logger), nil
}

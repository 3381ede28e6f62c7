package main

import (
	"fmt"
	"os"
	"path/filepath"

	"im-go/internal/database"
	"im-go/internal/database/migrations"
)

const header = `-- This file is auto-generated from migration files.
-- DO NOT EDIT MANUALLY. Run 'go generate ./internal/database' to regenerate.
-- Source: internal/database/migrations/files/%s/*.sql

`

func main() {
	outDir := filepath.Join("internal", "database", "schema")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", outDir, err)
		os.Exit(1)
	}

	for _, set := range []migrations.Set{migrations.Catalog, migrations.Workspace} {
		outPath := filepath.Join(outDir, string(set)+".sql")
		if err := generate(set, outPath); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", set, err)
			os.Exit(1)
		}
		fmt.Printf("✓ Generated %s from migrations\n", outPath)
	}
}

// generate migrates a scratch in-memory database with one set and writes its schema.
func generate(set migrations.Set, outPath string) error {
	db, err := database.OpenConnection(database.MemoryPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db, set); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	schema, err := migrations.ExtractSchema(db)
	if err != nil {
		return fmt.Errorf("extracting schema: %w", err)
	}

	content := fmt.Sprintf(header, set) + schema
	if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing schema file: %w", err)
	}
	return nil
}

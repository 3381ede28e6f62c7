package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:  "/home/user/.local/share/im",
		LogDir:   "/home/user/.local/share/im/log",
		LogLevel: "debug",
		Catalog:  CatalogConfig{Type: "sqlite", DataDir: "/home/user/.local/share/im/db"},
		Workspace: WorkspaceConfig{
			SettingsFolder:   ".im_settings",
			DatabaseName:     "workspace.db",
			SupportedFormats: []string{"jpg", "png"},
			MaxFileSize:      2048,
		},
		Filesystem: FilesystemConfig{
			Ignore: []string{"*.tmp", "thumbs"},
		},
		Watch: WatchConfig{DebounceMS: 250},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, "debug")
	}
	if got.Catalog.Type != "sqlite" {
		t.Errorf("Catalog.Type = %q, want %q", got.Catalog.Type, "sqlite")
	}
	if got.Catalog.DataDir != original.Catalog.DataDir {
		t.Errorf("Catalog.DataDir = %q, want %q", got.Catalog.DataDir, original.Catalog.DataDir)
	}
	if got.Workspace.MaxFileSize != 2048 {
		t.Errorf("Workspace.MaxFileSize = %d, want %d", got.Workspace.MaxFileSize, 2048)
	}
	if len(got.Workspace.SupportedFormats) != 2 {
		t.Fatalf("len(Workspace.SupportedFormats) = %d, want 2", len(got.Workspace.SupportedFormats))
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
	if got.Watch.DebounceMS != 250 {
		t.Errorf("Watch.DebounceMS = %d, want %d", got.Watch.DebounceMS, 250)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/im")

	if cfg.BaseDir != "/data/im" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/im")
	}
	if cfg.LogDir != "/data/im/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/im/log")
	}
	if cfg.Catalog.DataDir != "/data/im/db" {
		t.Errorf("Catalog.DataDir = %q, want %q", cfg.Catalog.DataDir, "/data/im/db")
	}
	if cfg.Workspace.SettingsFolder != ".im_settings" {
		t.Errorf("Workspace.SettingsFolder = %q, want %q", cfg.Workspace.SettingsFolder, ".im_settings")
	}
	if cfg.Workspace.MaxFileSize != 100*1024*1024 {
		t.Errorf("Workspace.MaxFileSize = %d, want 100 MiB", cfg.Workspace.MaxFileSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on default config error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown catalog type", func(c *Config) { c.Catalog.Type = "postgres" }, "Catalog.Type"},
		{"sqlite without data dir", func(c *Config) { c.Catalog.DataDir = "" }, "Catalog.DataDir"},
		{"memory without data dir", func(c *Config) { c.Catalog = CatalogConfig{Type: "memory"} }, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LogLevel"},
		{"settings folder with slash", func(c *Config) { c.Workspace.SettingsFolder = "a/b" }, "SettingsFolder"},
		{"no formats", func(c *Config) { c.Workspace.SupportedFormats = nil }, "SupportedFormats"},
		{"dotted format", func(c *Config) { c.Workspace.SupportedFormats = []string{".jpg"} }, "SupportedFormats"},
		{"zero max size", func(c *Config) { c.Workspace.MaxFileSize = 0 }, "MaxFileSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/im")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %s", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{BaseDir: "/data/im", LogDir: "/data/im/log", Catalog: CatalogConfig{DataDir: "/data/im/db"}}
	cfg.ApplyDefaults()

	if cfg.Catalog.Type != "sqlite" {
		t.Errorf("Catalog.Type = %q, want sqlite", cfg.Catalog.Type)
	}
	if cfg.Workspace.DatabaseName != DefaultDatabaseName {
		t.Errorf("Workspace.DatabaseName = %q, want %q", cfg.Workspace.DatabaseName, DefaultDatabaseName)
	}
	if len(cfg.Workspace.SupportedFormats) != len(DefaultSupportedFormats) {
		t.Errorf("len(SupportedFormats) = %d, want %d", len(cfg.Workspace.SupportedFormats), len(DefaultSupportedFormats))
	}
	if cfg.Watch.DebounceMS != DefaultDebounceMS {
		t.Errorf("Watch.DebounceMS = %d, want %d", cfg.Watch.DebounceMS, DefaultDebounceMS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after ApplyDefaults error = %v", err)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "im.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "im.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "im.toml")
		cfg := NewConfig(dir)
		cfg.Catalog.Type = "nope"

		if err := Init(path, cfg); err == nil {
			t.Fatal("Init() expected validation error")
		}
		if _, err := os.Stat(path); err == nil {
			t.Error("Init() wrote a config file despite validation failure")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "im.toml")
		cfg := NewConfig(dir)
		cfg.Catalog = CatalogConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Catalog.Type != "memory" {
			t.Errorf("Catalog.Type = %q, want %q", got.Catalog.Type, "memory")
		}
	})

	t.Run("fills defaults for sparse file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "im.toml")
		content := "base_dir = \"" + dir + "\"\nlog_dir = \"" + dir + "/log\"\n\n[catalog]\ntype = \"memory\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Workspace.SettingsFolder != DefaultSettingsFolder {
			t.Errorf("Workspace.SettingsFolder = %q, want %q", got.Workspace.SettingsFolder, DefaultSettingsFolder)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/im.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// Config represents the main configuration for im.
type Config struct {
	BaseDir    string           `toml:"base_dir" validate:"required"`
	LogDir     string           `toml:"log_dir" validate:"required"`
	LogLevel   string           `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Workspace  WorkspaceConfig  `toml:"workspace"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Watch      WatchConfig      `toml:"watch"`
}

// CatalogConfig represents configuration for the workspace registry store.
// The Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type" validate:"oneof=sqlite memory"` // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty" validate:"required_if=Type sqlite"`
}

// WorkspaceConfig describes the per-workspace layout and which files count as images.
type WorkspaceConfig struct {
	SettingsFolder   string   `toml:"settings_folder" validate:"required,excludesall=/"`
	DatabaseName     string   `toml:"database_name" validate:"required,excludesall=/"`
	SupportedFormats []string `toml:"supported_formats" validate:"min=1,dive,required,alphanum"`
	MaxFileSize      int64    `toml:"max_file_size" validate:"gt=0"` // bytes; larger files are skipped by scans
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// WatchConfig controls the rescan watcher.
type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms" validate:"gte=0"`
}

// Defaults for a fresh config.
const (
	DefaultSettingsFolder = ".im_settings"
	DefaultDatabaseName   = "workspace.db"
	DefaultMaxFileSize    = 100 * 1024 * 1024
	DefaultDebounceMS     = 500
	DefaultLogLevel       = "info"
)

// DefaultSupportedFormats lists the image extensions a scan picks up.
var DefaultSupportedFormats = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "tiff", "tif", "svg", "ico"}

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: DefaultLogLevel,
		Catalog: CatalogConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Workspace: WorkspaceConfig{
			SettingsFolder:   DefaultSettingsFolder,
			DatabaseName:     DefaultDatabaseName,
			SupportedFormats: append([]string(nil), DefaultSupportedFormats...),
			MaxFileSize:      DefaultMaxFileSize,
		},
		Watch: WatchConfig{DebounceMS: DefaultDebounceMS},
	}
}

// ApplyDefaults fills zero-valued workspace and watch settings, so older config
// files without those sections keep working.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Catalog.Type == "" {
		c.Catalog.Type = "sqlite"
	}
	if c.Workspace.SettingsFolder == "" {
		c.Workspace.SettingsFolder = DefaultSettingsFolder
	}
	if c.Workspace.DatabaseName == "" {
		c.Workspace.DatabaseName = DefaultDatabaseName
	}
	if len(c.Workspace.SupportedFormats) == 0 {
		c.Workspace.SupportedFormats = append([]string(nil), DefaultSupportedFormats...)
	}
	if c.Workspace.MaxFileSize == 0 {
		c.Workspace.MaxFileSize = DefaultMaxFileSize
	}
	if c.Watch.DebounceMS == 0 {
		c.Watch.DebounceMS = DefaultDebounceMS
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config against its struct rules.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path, fills defaults and validates it.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

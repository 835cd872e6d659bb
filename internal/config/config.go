// Package config loads hygienectl settings from a YAML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/hygienectl/pkg/store"
)

// Defaults
const (
	DirName        = ".hygienectl"
	FileName       = "config.yaml"
	DefaultDriver  = store.DriverBolt
	DefaultLevel   = "warn"
	DefaultFormat  = FormatText
	boltFileName   = "vault.db"
	sqliteFileName = "vault.sqlite"
)

// Log formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Environment overrides
const (
	EnvDir      = "HYGIENECTL_DIR"
	EnvStorage  = "HYGIENECTL_STORAGE"
	EnvLogLevel = "HYGIENECTL_LOG_LEVEL"
)

// ErrInsecure is returned when the config file is writable by group or other
var ErrInsecure = errors.New("config: file has insecure permissions")

// ErrSymlink is returned when the config file is a symlink
var ErrSymlink = errors.New("config: file is a symlink")

// ErrNotOwnedByUser is returned when the config file belongs to another user
var ErrNotOwnedByUser = errors.New("config: file not owned by current user")

// Config is the on-disk configuration.
type Config struct {
	VaultDir string        `yaml:"vault_dir"`
	Storage  StorageConfig `yaml:"storage"`
	Log      LogConfig     `yaml:"log"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // bolt, sqlite or memory
	File   string `yaml:"file"`   // relative to VaultDir unless absolute
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultDir returns ~/.hygienectl, or .hygienectl when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		VaultDir: DefaultDir(),
		Storage:  StorageConfig{Driver: DefaultDriver},
		Log:      LogConfig{Level: DefaultLevel, Format: DefaultFormat},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path means the file inside the vault directory; a missing file is
// not an error.
//
// The file is opened without following symlinks and checked on the open
// descriptor, so the checked file is the one read.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		dir := os.Getenv(EnvDir)
		if dir == "" {
			dir = cfg.VaultDir
		}
		path = filepath.Join(dir, FileName)
	}

	f, err := openConfigFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		if err := readInto(f, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readInto(f *os.File, cfg *Config) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("config: failed to stat file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0022 != 0 {
		return fmt.Errorf("%w: %o (expected no group/other write)", ErrInsecure, perm)
	}
	if err := checkFileOwnership(info); err != nil {
		return err
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("config: failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return fmt.Errorf("config: failed to parse file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. Empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDir); v != "" {
		c.VaultDir = v
	}
	if v := getenv(EnvStorage); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate fills empty fields with defaults and rejects unknown values.
func (c *Config) Validate() error {
	if c.VaultDir == "" {
		c.VaultDir = DefaultDir()
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultDriver
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultFormat
	}

	switch c.Storage.Driver {
	case store.DriverBolt, store.DriverSQLite, store.DriverMemory:
	default:
		return fmt.Errorf("config: invalid storage.driver: %s (must be %s, %s or %s)",
			c.Storage.Driver, store.DriverBolt, store.DriverSQLite, store.DriverMemory)
	}
	switch c.Log.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("config: invalid log.format: %s (must be '%s' or '%s')", c.Log.Format, FormatText, FormatJSON)
	}
	return nil
}

// StoragePath returns the database file for the configured driver.
func (c *Config) StoragePath() string {
	file := c.Storage.File
	if file == "" {
		file = boltFileName
		if c.Storage.Driver == store.DriverSQLite {
			file = sqliteFileName
		}
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.VaultDir, file)
}

// StoreConfig returns the store settings for store.Open.
func (c *Config) StoreConfig() store.Config {
	return store.Config{Driver: c.Storage.Driver, Path: c.StoragePath()}
}

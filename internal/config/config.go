// Package config loads ammd configuration from defaults, an optional TOML
// file, and AMMD_-prefixed environment variables, in that priority order.
package config

import (
	"fmt"
	"path/filepath"
)

// Backend names accepted for database.backend.
const (
	BackendPebble  = "pebble"
	BackendLevelDB = "leveldb"
)

// Config represents the complete ammd configuration
type Config struct {
	// DataDir is the root directory for all persistent state.
	DataDir string `toml:"data_dir" mapstructure:"data_dir"`

	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// DatabaseConfig selects and tunes the key-value backend.
type DatabaseConfig struct {
	// Backend is "pebble" or "leveldb".
	Backend string `toml:"backend" mapstructure:"backend"`

	// Name is the database directory name under data_dir.
	Name string `toml:"name" mapstructure:"name"`

	// PoolCacheSize bounds the in-memory pool record cache.
	PoolCacheSize int `toml:"pool_cache_size" mapstructure:"pool_cache_size"`
}

// LogConfig tunes the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `toml:"format" mapstructure:"format"`
}

// DatabasePath returns the full path of the database directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.Database.Name)
}

// GetConfigPath returns the path of the loaded config file, empty when
// running on defaults only.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Validate checks the configuration for consistency.
func Validate(c *Config) error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	switch c.Database.Backend {
	case BackendPebble, BackendLevelDB:
	default:
		return fmt.Errorf("unknown database backend %q (supported: %s, %s)",
			c.Database.Backend, BackendPebble, BackendLevelDB)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadDefault()
	require.NoError(t, err)

	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, BackendPebble, cfg.Database.Backend)
	require.Equal(t, "amm", cfg.Database.Name)
	require.Equal(t, 256, cfg.Database.PoolCacheSize)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, filepath.Join("data", "amm"), cfg.DatabasePath())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ammd.toml")
	content := `
data_dir = "/var/lib/ammd"

[database]
backend = "leveldb"
pool_cache_size = 32

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/ammd", cfg.DataDir)
	require.Equal(t, BackendLevelDB, cfg.Database.Backend)
	require.Equal(t, "amm", cfg.Database.Name, "unset keys keep defaults")
	require.Equal(t, 32, cfg.Database.PoolCacheSize)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, path, cfg.GetConfigPath())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AMMD_DATABASE_BACKEND", "leveldb")
	t.Setenv("AMMD_LOG_LEVEL", "warn")

	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.Equal(t, BackendLevelDB, cfg.Database.Backend)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			DataDir: "data",
			Database: DatabaseConfig{
				Backend: BackendPebble,
				Name:    "amm",
			},
			Log: LogConfig{Level: "info", Format: "console"},
		}
	}

	require.NoError(t, Validate(base()))

	c := base()
	c.Database.Backend = "bolt"
	require.Error(t, Validate(c))

	c = base()
	c.Log.Level = "verbose"
	require.Error(t, Validate(c))

	c = base()
	c.DataDir = ""
	require.Error(t, Validate(c))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAULTBOOK_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Contains(t, cfg.Database.Path, "vaultbook.db")
	require.Contains(t, cfg.Database.SaltPath, "vaultbook.salt")
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[database]
path = "/data/store.db"
salt_path = "/data/store.salt"

[log]
level = "debug"
`), 0o644))
	t.Setenv("VAULTBOOK_CONFIG", cfgPath)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/data/store.db", cfg.Database.Path)
	require.Equal(t, "/data/store.salt", cfg.Database.SaltPath)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAULTBOOK_CONFIG", "")
	t.Setenv("VAULTBOOK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
}

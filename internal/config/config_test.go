package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KAKEIBO_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	root := filepath.Join(home, ".local", "share", "kakeibo")
	require.Equal(t, filepath.Join(root, "db", "database.sqlite"), cfg.Database.Path)
	require.Equal(t, filepath.Join(root, "csv", "inbound"), cfg.Paths.Inbound)
	require.Equal(t, filepath.Join(root, "csv", "archive"), cfg.Paths.Archive)
	require.Equal(t, filepath.Join(root, "components"), cfg.Paths.Components)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 100, cfg.Server.MaxPortAttempts)
	require.Contains(t, cfg.Server.AllowedOrigins, "tauri://localhost")
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Database.SeedCategories)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfgFile := filepath.Join(home, "kakeibo.toml")
	data := []byte(`
[database]
path = "/tmp/kakeibo-test.sqlite"
seed_categories = true

[paths]
inbound = "/tmp/in"

[server]
port = 9100
`)
	require.NoError(t, os.WriteFile(cfgFile, data, 0o644))
	t.Setenv("KAKEIBO_CONFIG", cfgFile)
	t.Setenv("KAKEIBO_LOG_LEVEL", "debug")
	t.Setenv("KAKEIBO_SERVER_PORT", "9200")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/kakeibo-test.sqlite", cfg.Database.Path)
	require.True(t, cfg.Database.SeedCategories)
	require.Equal(t, "/tmp/in", cfg.Paths.Inbound)
	require.Equal(t, 9200, cfg.Server.Port, "env wins over file")
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KAKEIBO_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))

	_, err := Load()
	require.Error(t, err)
}

func TestEnsureDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Config{
		Database: DatabaseConfig{Path: filepath.Join(root, "db", "x.sqlite")},
		Paths: PathsConfig{
			Inbound:    filepath.Join(root, "in"),
			Archive:    filepath.Join(root, "archive"),
			Components: filepath.Join(root, "components"),
		},
	}
	require.NoError(t, cfg.EnsureDirs())
	for _, d := range []string{"db", "in", "archive", "components"} {
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvRuntime, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_LayeredFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gtlayout.toml")
	writeFile(t, base, `
[database]
host = "db"
user = "cvat"
dbname = "cvat_prod"

[backfill]
workers = 8
batch_size = 500
`)
	writeFile(t, filepath.Join(dir, "gtlayout.test.toml"), `
[database]
dbname = "cvat_test"

[log]
level = "debug"
`)
	t.Setenv(EnvRuntime, "test")

	cfg, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "cvat", cfg.Database.User)
	assert.Equal(t, "cvat_test", cfg.Database.DBName)
	assert.Equal(t, 8, cfg.Backfill.Workers)
	assert.Equal(t, 500, cfg.Backfill.BatchSize)
	assert.Equal(t, 100, cfg.Backfill.ChunkSize)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesDatabase(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gtlayout.toml")
	writeFile(t, base, "[database]\npassword = \"from-file\"\n")
	t.Setenv(EnvRuntime, "")
	t.Setenv("GTLAYOUT_DB_PASSWORD", "from-env")
	t.Setenv("GTLAYOUT_DB_SSLMODE", "require")

	cfg, err := Load(base)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "require", cfg.Database.SSLMode)
}

func TestLoad_UnknownKey(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gtlayout.toml")
	writeFile(t, base, "[backfill]\nworkerz = 3\n")
	t.Setenv(EnvRuntime, "")

	_, err := Load(base)
	assert.ErrorContains(t, err, "backfill.workerz")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "gtlayout.toml")
	writeFile(t, base, "[backfill]\nworkers = 0\nchunk_size = -1\n\n[log]\nlevel = \"loud\"\n")
	t.Setenv(EnvRuntime, "")

	_, err := Load(base)
	require.Error(t, err)
	assert.ErrorContains(t, err, "backfill.workers must be positive")
	assert.ErrorContains(t, err, "backfill.chunk_size must be positive")
	assert.ErrorContains(t, err, "log.level")
}

func TestRuntimeFile(t *testing.T) {
	assert.Equal(t, "conf/gtlayout.local.toml", RuntimeFile("conf/gtlayout.toml", "local"))
}

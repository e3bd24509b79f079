package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "nexstock", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "backend/inventory.json", cfg.Store.Path)
	assert.Equal(t, "frontend", cfg.Frontend.Dir)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Zero(t, cfg.RateLimit.WritesPerMinute)
}

func TestLoad_EnvAliases(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "3000")
	t.Setenv("INVENTORY_FILE", "/data/inventory.json")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_TOKEN", "abc")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/data/inventory.json", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "abc", cfg.Metrics.Token)
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	file := filepath.Join(dir, "nexstock.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9090
store:
  driver: Postgres
  database_url: postgres://localhost/inventory
ratelimit:
  writes_per_minute: 30
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FRONTEND_DIR=public\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("FRONTEND_DIR") })

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/inventory", cfg.Store.DatabaseURL)
	assert.Equal(t, "default", cfg.Store.Document)
	assert.Equal(t, 30, cfg.RateLimit.WritesPerMinute)
	assert.Equal(t, "public", cfg.Frontend.Dir)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range":    {"PORT": "70000"},
		"unknown driver":       {"STORE_DRIVER": "mongo"},
		"postgres without url": {"STORE_DRIVER": "postgres"},
		"negative rate limit":  {"RATELIMIT_WRITES_PER_MINUTE": "-1"},
		"empty inventory path": {"STORE_PATH": " "},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

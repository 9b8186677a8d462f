package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ".fleetsync", cfg.DataDir)
	assert.Equal(t, "http://localhost:8090", cfg.Remote.BaseURL)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, "http://localhost:8090/healthz", cfg.Sync.ProbeURL,
		"probe url defaults to the remote health endpoint")
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/fleetsync
remote:
  base_url: https://api.example.com
  auth_token: sekrit
  timeout_seconds: 30
sync:
  max_retries: 5
  interval_seconds: 60
server:
  addr: ":9999"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fleetsync", cfg.DataDir)
	assert.Equal(t, "https://api.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "sekrit", cfg.Remote.AuthToken)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
	assert.Equal(t, "https://api.example.com/healthz", cfg.Sync.ProbeURL)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.AttemptTimeout())
	assert.Equal(t, time.Minute, cfg.WatchInterval())
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /from/file
remote:
  base_url: http://file.example.com
`), 0o644))

	t.Setenv("FLEETSYNC_DATA_DIR", "/from/env")
	t.Setenv("FLEETSYNC_REMOTE_URL", "http://env.example.com")
	t.Setenv("FLEETSYNC_AUTH_TOKEN", "env-token")
	t.Setenv("FLEETSYNC_MAX_RETRIES", "7")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.Equal(t, "http://env.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "env-token", cfg.Remote.AuthToken)
	assert.Equal(t, 7, cfg.Sync.MaxRetries)
	assert.Equal(t, "http://env.example.com/healthz", cfg.Sync.ProbeURL,
		"probe url default follows the overridden base url")
}

func TestLoadConfig_InvalidMaxRetriesEnvIgnored(t *testing.T) {
	t.Setenv("FLEETSYNC_MAX_RETRIES", "zero")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
}

func TestDatabasePath(t *testing.T) {
	var cfg Config
	cfg.DataDir = "/data"
	assert.Equal(t, filepath.Join("/data", "fleetsync.db"), cfg.DatabasePath())
}

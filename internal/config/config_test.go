package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, 4, cfg.Sync.WorkerLimit)
	assert.Equal(t, 2*time.Second, cfg.Sync.MtimeTolerance)
	assert.Equal(t, config.PolicyAlways, cfg.Sync.NetworkPolicy)

	// Base URL is required, so defaults alone do not validate.
	assert.Error(t, cfg.Validate())

	cfg.Remote.BaseURL = "https://cloud.example.com/remote.php/webdav"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.DefaultConfig()
		cfg.Remote.BaseURL = "https://cloud.example.com"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero workers", func(c *config.Config) { c.Sync.WorkerLimit = 0 }},
		{"negative tolerance", func(c *config.Config) { c.Sync.MtimeTolerance = -time.Second }},
		{"bad policy", func(c *config.Config) { c.Sync.NetworkPolicy = "wifi" }},
		{"bad level", func(c *config.Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }},
		{"zero timeout", func(c *config.Config) { c.Remote.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoaderFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	data := `{
		"remote": {"base_url": "https://cloud.example.com", "username": "alice"},
		"sync": {"worker_limit": 2, "network_policy": "unmetered_only"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://cloud.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "alice", cfg.Remote.Username)
	assert.Equal(t, 2, cfg.Sync.WorkerLimit)
	assert.Equal(t, config.PolicyUnmeteredOnly, cfg.Sync.NetworkPolicy)
	// Untouched fields keep defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoaderEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"remote": {"base_url": "https://file.example.com"}}`), 0600))

	t.Setenv("NEXTSYNC_REMOTE_BASE_URL", "https://env.example.com")
	t.Setenv("NEXTSYNC_WORKER_LIMIT", "8")
	t.Setenv("NEXTSYNC_SCAN_INTERVAL", "90s")

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 8, cfg.Sync.WorkerLimit)
	assert.Equal(t, 90*time.Second, cfg.Sync.ScanInterval)
}

func TestLoaderBadEnv(t *testing.T) {
	t.Setenv("NEXTSYNC_REMOTE_BASE_URL", "https://env.example.com")
	t.Setenv("NEXTSYNC_WORKER_LIMIT", "many")

	_, err := config.NewLoader("").Load()
	assert.Error(t, err)
}

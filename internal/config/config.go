package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Remote content-store connection
	Remote RemoteConfig `json:"remote"`

	// Local storage paths
	Storage StorageConfig `json:"storage"`

	// Sync behavior
	Sync SyncConfig `json:"sync"`

	// Logging
	Log LogConfig `json:"log"`
}

// RemoteConfig for WebDAV server communication.
type RemoteConfig struct {
	BaseURL    string        `json:"base_url"`
	Username   string        `json:"username,omitempty"`
	Password   string        `json:"password,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	UserAgent  string        `json:"user_agent"`

	// Credentials file written by `nextsync login`; overrides inline values.
	CredentialsFile string `json:"credentials_file,omitempty"`
}

// StorageConfig for local data paths.
type StorageConfig struct {
	DataDir string `json:"data_dir"` // Base directory for engine data
	DBPath  string `json:"db_path"`  // SQLite database location
}

// NetworkPolicy gates passes by connection type.
type NetworkPolicy string

const (
	PolicyAlways       NetworkPolicy = "always"
	PolicyUnmeteredOnly NetworkPolicy = "unmetered_only"
	PolicyNever        NetworkPolicy = "never"
)

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	WorkerLimit     int           `json:"worker_limit"`      // Concurrent folder passes
	ScanInterval    time.Duration `json:"scan_interval"`     // Time between scheduled passes
	MtimeTolerance  time.Duration `json:"mtime_tolerance"`   // Clock-skew allowance for change detection
	NetworkPolicy   NetworkPolicy `json:"network_policy"`    // always, unmetered_only, never
	DefaultSolution string        `json:"default_solution"`  // Policy applied to fresh conflicts; empty leaves them pending
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text, json
	File   string `json:"file"`   // Log file path (empty = stdout)
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".nextsync"

	return &Config{
		Remote: RemoteConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "nextsync/1.0",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
			DBPath:  filepath.Join(dataDir, "sync.db"),
		},
		Sync: SyncConfig{
			WorkerLimit:    4,
			ScanInterval:   5 * time.Minute,
			MtimeTolerance: 2 * time.Second,
			NetworkPolicy:  PolicyAlways,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required")
	}

	if c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}

	if c.Sync.WorkerLimit <= 0 {
		return errors.New("sync.worker_limit must be positive")
	}

	if c.Sync.MtimeTolerance < 0 {
		return errors.New("sync.mtime_tolerance cannot be negative")
	}

	switch c.Sync.NetworkPolicy {
	case PolicyAlways, PolicyUnmeteredOnly, PolicyNever:
	default:
		return fmt.Errorf("invalid network policy: %s", c.Sync.NetworkPolicy)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		filepath.Dir(c.Storage.DBPath),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/config"
	"github.com/TheMichaelB/nextsync/internal/events"
)

// TestContext creates a test context with a reasonable timeout.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// NewTestLogger creates a silent logger for tests.
func NewTestLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

// TestConfig creates a configuration pointing at the given server URL with
// all state under dataDir.
func TestConfig(serverURL, dataDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Remote.BaseURL = serverURL
	cfg.Remote.Timeout = 10 * time.Second
	cfg.Remote.MaxRetries = 1
	cfg.Storage.DataDir = dataDir
	cfg.Storage.DBPath = filepath.Join(dataDir, "sync.db")
	cfg.Log.Level = "error"
	return cfg
}

// WriteFile creates a file under root with content and modification time.
func WriteFile(t *testing.T, root, rel, content string, modTime time.Time) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	require.NoError(t, os.Chtimes(full, modTime, modTime))
}

// AssertFileContent checks file content matches expected.
func AssertFileContent(t *testing.T, root, rel, expected string) {
	t.Helper()

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, expected, string(content))
}

// AssertFileNotExists checks that a file is absent.
func AssertFileNotExists(t *testing.T, root, rel string) {
	t.Helper()

	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err), "file should not exist: %s", rel)
}

// WaitForCondition polls until the condition is true or the timeout fires.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			t.Fatalf("Timeout waiting for condition: %s", message)
		case <-ticker.C:
			if condition() {
				return
			}
		}
	}
}

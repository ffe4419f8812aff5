//go:build integration
// +build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/client"
	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/test/testutil"
)

// TestFullSyncRoundTrip drives the assembled engine against a real WebDAV
// conversation: initial upload, remote edit propagation, a conflict that
// survives a process restart, and its resolution.
func TestFullSyncRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := testutil.NewDavServer("alice", "secret")
	defer server.Close()
	server.SeedDir("sync/docs-remote")

	cfg := testutil.TestConfig(server.URL, t.TempDir())
	cfg.Remote.Username = "alice"
	cfg.Remote.Password = "secret"

	apiClient, err := client.New(cfg, testutil.NewTestLogger())
	require.NoError(t, err)

	localRoot := t.TempDir()
	testutil.SeedLocal(t, localRoot, testutil.BasicTree())

	folder, err := apiClient.Sync.AddFolder(localRoot, "sync/docs-remote")
	require.NoError(t, err)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Initial pass pushes the whole local tree up: three files plus the
	// docs and docs/archive collections.
	entry, err := apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Applied)
	assert.Zero(t, entry.Conflicted)
	assert.True(t, server.Exists("sync/docs-remote/readme.md"))
	assert.True(t, server.Exists("sync/docs-remote/docs/archive/old.txt"))

	// A remote edit comes down on the next pass.
	server.Seed("sync/docs-remote/docs/plan.txt", "week two\n", time.Now().UTC())
	entry, err = apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Applied)
	testutil.AssertFileContent(t, localRoot, "docs/plan.txt", "week two\n")

	// Diverge readme.md on both sides.
	testutil.WriteFile(t, localRoot, "readme.md", "# Notes, local\n", time.Now().UTC().Add(-time.Minute))
	server.Seed("sync/docs-remote/readme.md", "# Notes, remote\n", time.Now().UTC())

	entry, err = apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Conflicted)

	// The pending conflict survives a restart.
	require.NoError(t, apiClient.Close())

	apiClient, err = client.New(cfg, testutil.NewTestLogger())
	require.NoError(t, err)
	defer apiClient.Close()

	conflicts, err := apiClient.Sync.Conflicts()
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "readme.md", conflicts[0].Path)
	assert.Equal(t, models.ConflictBothChanged, conflicts[0].Type)

	require.NoError(t, apiClient.Sync.ApplyResolution(ctx, conflicts[0].ID, models.SolutionPreferRemote))
	testutil.AssertFileContent(t, localRoot, "readme.md", "# Notes, remote\n")

	conflicts, err = apiClient.Sync.Conflicts()
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// The resolved path does not resurface on the next pass.
	entry, err = apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)
	assert.Zero(t, entry.Conflicted)
	assert.Zero(t, entry.Applied)
}

// TestDeletePropagation covers both delete directions over the wire.
func TestDeletePropagation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	server := testutil.NewDavServer("alice", "secret")
	defer server.Close()
	server.SeedDir("sync/notes")

	cfg := testutil.TestConfig(server.URL, t.TempDir())
	cfg.Remote.Username = "alice"
	cfg.Remote.Password = "secret"

	apiClient, err := client.New(cfg, testutil.NewTestLogger())
	require.NoError(t, err)
	defer apiClient.Close()

	localRoot := t.TempDir()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	testutil.WriteFile(t, localRoot, "keep.txt", "keep", base)
	testutil.WriteFile(t, localRoot, "gone-local.txt", "bye", base)
	server.Seed("sync/notes/gone-remote.txt", "bye", base)

	folder, err := apiClient.Sync.AddFolder(localRoot, "sync/notes")
	require.NoError(t, err)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err = apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)

	// Delete one file on each side.
	require.NoError(t, os.Remove(filepath.Join(localRoot, "gone-local.txt")))
	server.Seed("sync/notes/tmp.txt", "x", base) // unrelated churn
	server.Remove("sync/notes/gone-remote.txt")

	entry, err := apiClient.Sync.ForceResync(ctx, folder.ID)
	require.NoError(t, err)
	assert.Zero(t, entry.Conflicted)

	assert.False(t, server.Exists("sync/notes/gone-local.txt"))
	testutil.AssertFileNotExists(t, localRoot, "gone-remote.txt")
	testutil.AssertFileContent(t, localRoot, "tmp.txt", "x")
	assert.Equal(t, 3, entry.Applied) // delete up, delete down, download
}

package state_test

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/internal/state"
)

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sync.db")
	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)

	store, err := state.NewSQLiteStore(dbPath, logger)
	require.NoError(t, err)
	defer store.Close()

	testStoreOperations(t, store)
}

func TestMemoryStore(t *testing.T) {
	store := state.NewMemoryStore()
	defer store.Close()

	testStoreOperations(t, store)
}

func testStoreOperations(t *testing.T, store state.Store) {
	folder := models.NewFolderSyncInfo("/home/alice/docs", "/Documents")

	t.Run("folder not found", func(t *testing.T) {
		_, err := store.GetFolder("missing")
		assert.ErrorIs(t, err, models.ErrFolderNotFound)
	})

	t.Run("create and get folder", func(t *testing.T) {
		require.NoError(t, store.CreateFolder(folder))

		got, err := store.GetFolder(folder.ID)
		require.NoError(t, err)
		assert.Equal(t, folder.LocalPath, got.LocalPath)
		assert.Equal(t, folder.RemotePath, got.RemotePath)
		assert.True(t, got.Enabled)
		assert.Equal(t, models.StatusIdle, got.Status)
	})

	t.Run("update folder", func(t *testing.T) {
		folder.Status = models.StatusRunning
		folder.LastRun = time.Now().UTC().Truncate(time.Second)
		require.NoError(t, store.UpdateFolder(folder))

		got, err := store.GetFolder(folder.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusRunning, got.Status)
		assert.Equal(t, folder.LastRun.Unix(), got.LastRun.Unix())

		missing := models.NewFolderSyncInfo("/a", "/b")
		assert.ErrorIs(t, store.UpdateFolder(missing), models.ErrFolderNotFound)
	})

	t.Run("snapshot round trip", func(t *testing.T) {
		_, err := store.LoadSnapshot(folder.ID, models.SideLocal)
		assert.ErrorIs(t, err, models.ErrSnapshotNotFound)

		modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		local, err := models.SnapshotFromItems([]models.ItemState{
			{Path: "notes.txt", Size: 12, ModTime: modTime},
			{Path: "sub", IsDir: true},
			{Path: "sub/deep.md", Size: 5, ModTime: modTime, ETag: "etag1"},
		})
		require.NoError(t, err)
		remote, err := models.SnapshotFromItems([]models.ItemState{
			{Path: "notes.txt", Size: 12, ModTime: modTime, ETag: "r1"},
		})
		require.NoError(t, err)

		require.NoError(t, store.SaveSnapshots(folder.ID, local, remote))

		gotLocal, err := store.LoadSnapshot(folder.ID, models.SideLocal)
		require.NoError(t, err)
		require.Len(t, gotLocal, 3)

		item, ok := gotLocal.Get("sub/deep.md")
		require.True(t, ok)
		assert.Equal(t, int64(5), item.Size)
		assert.Equal(t, "etag1", item.ETag)
		assert.Equal(t, modTime, item.ModTime)

		gotRemote, err := store.LoadSnapshot(folder.ID, models.SideRemote)
		require.NoError(t, err)
		require.Len(t, gotRemote, 1)

		// Replacement is wholesale, not a merge.
		smaller, err := models.SnapshotFromItems([]models.ItemState{
			{Path: "only.txt", Size: 1, ModTime: modTime},
		})
		require.NoError(t, err)
		require.NoError(t, store.SaveSnapshots(folder.ID, smaller, models.NewSnapshot()))

		gotLocal, err = store.LoadSnapshot(folder.ID, models.SideLocal)
		require.NoError(t, err)
		require.Len(t, gotLocal, 1)
		_, ok = gotLocal.Get("notes.txt")
		assert.False(t, ok)
	})

	t.Run("details views", func(t *testing.T) {
		conflict := models.NewConflictDetail(folder.ID, "report.docx", models.ConflictBothChanged)
		errDetail := models.NewErrorDetail(folder.ID, "big.bin", "upload failed")
		errDetail.CreatedAt = conflict.CreatedAt.Add(time.Second)

		require.NoError(t, store.SaveDetail(conflict))
		require.NoError(t, store.SaveDetail(errDetail))

		conflicts, err := store.GetConflicts()
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, conflict.ID, conflicts[0].ID)

		errs, err := store.GetErrors()
		require.NoError(t, err)
		require.Len(t, errs, 1)
		assert.Equal(t, errDetail.ID, errs[0].ID)

		open, err := store.FindOpenConflict(folder.ID, "report.docx")
		require.NoError(t, err)
		assert.Equal(t, conflict.ID, open.ID)

		_, err = store.FindOpenConflict(folder.ID, "other.txt")
		assert.ErrorIs(t, err, models.ErrDetailNotFound)

		// Resolving removes the conflict from the active view but keeps the row.
		conflict.Solution = models.SolutionPreferRemote
		conflict.Resolved = true
		conflict.ResolvedAt = time.Now().UTC()
		require.NoError(t, store.SaveDetail(conflict))

		conflicts, err = store.GetConflicts()
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		got, err := store.GetDetail(conflict.ID)
		require.NoError(t, err)
		assert.True(t, got.Resolved)
		assert.Equal(t, models.SolutionPreferRemote, got.Solution)
	})

	t.Run("history", func(t *testing.T) {
		start := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, store.AppendHistory(&models.SyncHistory{
			FolderID: folder.ID, StartedAt: start, FinishedAt: start.Add(10 * time.Second),
			Applied: 3, Conflicted: 1,
		}))
		require.NoError(t, store.AppendHistory(&models.SyncHistory{
			FolderID: folder.ID, StartedAt: start.Add(30 * time.Second), FinishedAt: start.Add(40 * time.Second),
			Errored: 2,
		}))

		entries, err := store.GetHistory(folder.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		// Newest first.
		assert.Equal(t, 2, entries[0].Errored)
		assert.Equal(t, 3, entries[1].Applied)

		all, err := store.GetHistory("")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		require.NoError(t, store.ClearHistory(folder.ID))
		entries, err = store.GetHistory(folder.ID)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("delete folder detaches details", func(t *testing.T) {
		pending := models.NewConflictDetail(folder.ID, "pending.txt", models.ConflictBothNew)
		require.NoError(t, store.SaveDetail(pending))

		require.NoError(t, store.DeleteFolder(folder.ID))

		_, err := store.GetFolder(folder.ID)
		assert.ErrorIs(t, err, models.ErrFolderNotFound)

		// Active view no longer shows the orphaned conflict.
		conflicts, err := store.GetConflicts()
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		// The record itself survives for history.
		got, err := store.GetDetail(pending.ID)
		require.NoError(t, err)
		assert.Equal(t, "pending.txt", got.Path)

		assert.ErrorIs(t, store.DeleteFolder(folder.ID), models.ErrFolderNotFound)
	})
}

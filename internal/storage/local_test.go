package storage_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/storage"
)

func newStore(t *testing.T) (*storage.LocalStore, string) {
	t.Helper()
	logger := events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
	return storage.NewLocalStore(logger), t.TempDir()
}

func TestWriteAndRead(t *testing.T) {
	store, root := newStore(t)

	modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Write(root, "notes/today.md", []byte("# hello"), modTime))

	data, err := store.Read(root, "notes/today.md")
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(data))

	info, err := os.Stat(filepath.Join(root, "notes", "today.md"))
	require.NoError(t, err)
	assert.Equal(t, modTime.Unix(), info.ModTime().Unix())
}

func TestWriteLeavesNoTempOnSuccess(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.Write(root, "a.txt", []byte("x"), time.Time{}))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name())
}

func TestList(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.Write(root, "a.txt", []byte("one"), time.Time{}))
	require.NoError(t, store.Write(root, "sub/b.txt", []byte("two22"), time.Time{}))

	items, err := store.List(root)
	require.NoError(t, err)
	require.Len(t, items, 3)

	byPath := make(map[string]bool)
	for _, item := range items {
		byPath[item.Path] = item.IsDir
	}
	assert.Contains(t, byPath, "a.txt")
	assert.Contains(t, byPath, "sub")
	assert.Contains(t, byPath, "sub/b.txt")
	assert.True(t, byPath["sub"])
	assert.False(t, byPath["sub/b.txt"])
}

func TestListMissingRoot(t *testing.T) {
	store, root := newStore(t)

	_, err := store.List(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.Write(root, "sub/b.txt", []byte("x"), time.Time{}))
	require.NoError(t, store.Delete(root, "sub"))

	_, err := os.Stat(filepath.Join(root, "sub"))
	assert.True(t, os.IsNotExist(err))
}

func TestRename(t *testing.T) {
	store, root := newStore(t)

	require.NoError(t, store.Write(root, "a.txt", []byte("x"), time.Time{}))
	require.NoError(t, store.Rename(root, "a.txt", "archive/a (copy).txt"))

	data, err := store.Read(root, "archive/a (copy).txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestPathTraversalRejected(t *testing.T) {
	store, root := newStore(t)

	assert.Error(t, store.Write(root, "../escape.txt", []byte("x"), time.Time{}))
	assert.Error(t, store.Delete(root, "/etc/passwd"))

	_, err := store.Read(root, "..")
	assert.Error(t, err)
}

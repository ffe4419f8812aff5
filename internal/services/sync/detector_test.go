package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/models"
)

func snapOf(t *testing.T, items ...models.ItemState) models.Snapshot {
	t.Helper()
	snap, err := models.SnapshotFromItems(items)
	require.NoError(t, err)
	return snap
}

func TestDetectAllDeltaKinds(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	prev := snapOf(t,
		models.ItemState{Path: "kept.txt", Size: 4, ModTime: base},
		models.ItemState{Path: "edited.txt", Size: 4, ModTime: base},
		models.ItemState{Path: "removed.txt", Size: 4, ModTime: base},
	)
	current := snapOf(t,
		models.ItemState{Path: "kept.txt", Size: 4, ModTime: base},
		models.ItemState{Path: "edited.txt", Size: 9, ModTime: base.Add(time.Minute)},
		models.ItemState{Path: "added.txt", Size: 4, ModTime: base},
	)

	changes := Detect(prev, current, 2*time.Second)

	assert.Equal(t, []models.Change{
		{Path: "added.txt", Delta: models.DeltaCreated},
		{Path: "edited.txt", Delta: models.DeltaModified},
		{Path: "removed.txt", Delta: models.DeltaDeleted},
	}, changes)
}

func TestDetectSortsByPath(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	current := snapOf(t,
		models.ItemState{Path: "z.txt", Size: 1, ModTime: base},
		models.ItemState{Path: "a/b.txt", Size: 1, ModTime: base},
		models.ItemState{Path: "m.txt", Size: 1, ModTime: base},
	)

	changes := Detect(models.NewSnapshot(), current, 2*time.Second)

	require.Len(t, changes, 3)
	assert.Equal(t, "a/b.txt", changes[0].Path)
	assert.Equal(t, "m.txt", changes[1].Path)
	assert.Equal(t, "z.txt", changes[2].Path)
}

func TestDetectToleranceAbsorbsClockSkew(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	prev := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base})

	within := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base.Add(time.Second)})
	assert.Empty(t, Detect(prev, within, 2*time.Second))

	beyond := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base.Add(3 * time.Second)})
	changes := Detect(prev, beyond, 2*time.Second)
	require.Len(t, changes, 1)
	assert.Equal(t, models.DeltaModified, changes[0].Delta)
}

func TestDetectETagBeatsTimestamp(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	prev := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base, ETag: "v1"})

	// Same etag, wildly different mtime: unchanged.
	sameTag := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base.Add(time.Hour), ETag: "v1"})
	assert.Empty(t, Detect(prev, sameTag, 2*time.Second))

	// New etag, identical mtime: modified.
	newTag := snapOf(t, models.ItemState{Path: "f.txt", Size: 8, ModTime: base, ETag: "v2"})
	changes := Detect(prev, newTag, 2*time.Second)
	require.Len(t, changes, 1)
	assert.Equal(t, models.DeltaModified, changes[0].Delta)
}

func TestDetectDirectoriesCompareByType(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	prev := snapOf(t, models.ItemState{Path: "docs", IsDir: true, ModTime: base})
	current := snapOf(t, models.ItemState{Path: "docs", IsDir: true, ModTime: base.Add(time.Hour)})

	assert.Empty(t, Detect(prev, current, 2*time.Second))
}

func TestDetectEmptySides(t *testing.T) {
	assert.Empty(t, Detect(models.NewSnapshot(), models.NewSnapshot(), 2*time.Second))
}

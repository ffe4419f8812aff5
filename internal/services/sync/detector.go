package sync

import (
	"sort"
	"time"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// Detect compares the last persisted snapshot for one side against a fresh
// listing of the same side and returns the per-item deltas, sorted by path.
// Unchanged items are omitted. Pure function of its inputs.
func Detect(prev, current models.Snapshot, tolerance time.Duration) []models.Change {
	var changes []models.Change

	for path, curr := range current {
		old, existed := prev[path]
		if !existed {
			changes = append(changes, models.Change{Path: path, Delta: models.DeltaCreated})
			continue
		}
		if !old.SameIdentity(curr, tolerance) {
			changes = append(changes, models.Change{Path: path, Delta: models.DeltaModified})
		}
	}

	for path := range prev {
		if _, exists := current[path]; !exists {
			changes = append(changes, models.Change{Path: path, Delta: models.DeltaDeleted})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// deltaIndex maps changed paths to their deltas for quick pairing with the
// other side. Paths absent from the index are Unchanged.
func deltaIndex(changes []models.Change) map[string]models.Delta {
	index := make(map[string]models.Delta, len(changes))
	for _, c := range changes {
		index[c.Path] = c.Delta
	}
	return index
}

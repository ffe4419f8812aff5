package benchmark

import (
	"fmt"
	"testing"
	"time"

	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/internal/services/sync"
)

const treeSize = 10000

func buildItems(n int, base time.Time) []models.ItemState {
	items := make([]models.ItemState, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.ItemState{
			Path:    fmt.Sprintf("dir%02d/file%05d.txt", i%50, i),
			Size:    int64(100 + i),
			ModTime: base,
		})
	}
	return items
}

func buildSnapshot(b *testing.B, items []models.ItemState) models.Snapshot {
	b.Helper()
	snap, err := models.SnapshotFromItems(items)
	if err != nil {
		b.Fatal(err)
	}
	return snap
}

// BenchmarkDetect measures one-sided change scanning over a large tree with
// one percent of the items modified.
func BenchmarkDetect(b *testing.B) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := buildSnapshot(b, buildItems(treeSize, base))

	items := buildItems(treeSize, base)
	for i := 0; i < len(items); i += 100 {
		items[i].Size++
		items[i].ModTime = base.Add(time.Hour)
	}
	current := buildSnapshot(b, items)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		changes := sync.Detect(prev, current, 2*time.Second)
		if len(changes) != treeSize/100 {
			b.Fatalf("expected %d changes, got %d", treeSize/100, len(changes))
		}
	}
}

func BenchmarkDetectNoChanges(b *testing.B) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := buildSnapshot(b, buildItems(treeSize, base))
	current := buildSnapshot(b, buildItems(treeSize, base))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if changes := sync.Detect(prev, current, 2*time.Second); len(changes) != 0 {
			b.Fatalf("expected no changes, got %d", len(changes))
		}
	}
}

// BenchmarkClassify exercises the delta-pair table at the rate a full pass
// over a large tree would.
func BenchmarkClassify(b *testing.B) {
	deltas := models.Deltas()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, l := range deltas {
			for _, r := range deltas {
				sync.Classify(l, r)
			}
		}
	}
}

func BenchmarkSnapshotFromItems(b *testing.B) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := buildItems(treeSize, base)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := models.SnapshotFromItems(items); err != nil {
			b.Fatal(err)
		}
	}
}

package models

// Delta classifies how one item changed between two snapshots of the same
// side. Renamed is only produced when the listing layer supplies explicit
// rename metadata; without it a rename surfaces as Deleted plus Created.
type Delta string

const (
	DeltaUnchanged Delta = "unchanged"
	DeltaCreated   Delta = "created"
	DeltaModified  Delta = "modified"
	DeltaDeleted   Delta = "deleted"
	DeltaRenamed   Delta = "renamed"
)

// Deltas lists every delta value, for table-totality checks.
func Deltas() []Delta {
	return []Delta{DeltaUnchanged, DeltaCreated, DeltaModified, DeltaDeleted, DeltaRenamed}
}

// Change is one computed difference for an item on one side.
type Change struct {
	Path  string
	Delta Delta
}

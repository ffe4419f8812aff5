package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/models"
)

func TestClassifyTotality(t *testing.T) {
	for _, local := range models.Deltas() {
		for _, remote := range models.Deltas() {
			out := Classify(local, remote)
			if out.IsConflict() {
				assert.Equal(t, ActionNone, out.Action,
					"conflict cell (%s, %s) must carry no action", local, remote)
			} else {
				require.NotEmpty(t, out.Action,
					"missing table cell (%s, %s)", local, remote)
			}
		}
	}
}

func TestClassifyConvergentCells(t *testing.T) {
	tests := []struct {
		name   string
		local  models.Delta
		remote models.Delta
		want   Action
	}{
		{"both unchanged", models.DeltaUnchanged, models.DeltaUnchanged, ActionNone},
		{"remote created", models.DeltaUnchanged, models.DeltaCreated, ActionDownload},
		{"remote modified", models.DeltaUnchanged, models.DeltaModified, ActionDownload},
		{"remote deleted", models.DeltaUnchanged, models.DeltaDeleted, ActionDeleteLocal},
		{"local created", models.DeltaCreated, models.DeltaUnchanged, ActionUpload},
		{"local modified", models.DeltaModified, models.DeltaUnchanged, ActionUpload},
		{"local deleted", models.DeltaDeleted, models.DeltaUnchanged, ActionDeleteRemote},
		{"local created remote deleted", models.DeltaCreated, models.DeltaDeleted, ActionUpload},
		{"local deleted remote created", models.DeltaDeleted, models.DeltaCreated, ActionDownload},
		{"local renamed", models.DeltaRenamed, models.DeltaUnchanged, ActionUpload},
		{"remote renamed", models.DeltaUnchanged, models.DeltaRenamed, ActionDownload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.local, tt.remote)
			assert.False(t, out.IsConflict())
			assert.Equal(t, tt.want, out.Action)
		})
	}
}

func TestClassifyConflictCells(t *testing.T) {
	tests := []struct {
		name   string
		local  models.Delta
		remote models.Delta
		want   models.ConflictType
	}{
		{"both created", models.DeltaCreated, models.DeltaCreated, models.ConflictBothNew},
		{"both modified", models.DeltaModified, models.DeltaModified, models.ConflictBothChanged},
		{"created vs modified", models.DeltaCreated, models.DeltaModified, models.ConflictBothChanged},
		{"modified vs created", models.DeltaModified, models.DeltaCreated, models.ConflictBothChanged},
		{"both deleted", models.DeltaDeleted, models.DeltaDeleted, models.ConflictBothDeleted},
		{"local deleted remote modified", models.DeltaDeleted, models.DeltaModified, models.ConflictLocalDeletedRemoteChanged},
		{"local modified remote deleted", models.DeltaModified, models.DeltaDeleted, models.ConflictRemoteDeletedLocalChanged},
		{"both renamed", models.DeltaRenamed, models.DeltaRenamed, models.ConflictBothChanged},
		{"local renamed remote deleted", models.DeltaRenamed, models.DeltaDeleted, models.ConflictRemoteDeletedLocalChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(tt.local, tt.remote)
			require.True(t, out.IsConflict())
			assert.Equal(t, tt.want, out.Conflict)
		})
	}
}

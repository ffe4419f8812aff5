package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/nextsync/internal/models"
)

func TestResolveUnresolvedYieldsNothing(t *testing.T) {
	ops, err := Resolve(models.ConflictBothChanged, models.SolutionUnresolved, "a.txt", time.Now())
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestResolvePreferences(t *testing.T) {
	tests := []struct {
		name     string
		ct       models.ConflictType
		solution models.ConflictSolution
		want     []OpKind
	}{
		{"both changed prefer local", models.ConflictBothChanged, models.SolutionPreferLocal, []OpKind{OpUpload}},
		{"both changed prefer remote", models.ConflictBothChanged, models.SolutionPreferRemote, []OpKind{OpDownload}},
		{"both new prefer local", models.ConflictBothNew, models.SolutionPreferLocal, []OpKind{OpUpload}},
		{"both new prefer remote", models.ConflictBothNew, models.SolutionPreferRemote, []OpKind{OpDownload}},
		{"both deleted prefer local", models.ConflictBothDeleted, models.SolutionPreferLocal, nil},
		{"both deleted prefer remote", models.ConflictBothDeleted, models.SolutionPreferRemote, nil},
		{"local deleted remote changed prefer local", models.ConflictLocalDeletedRemoteChanged, models.SolutionPreferLocal, []OpKind{OpDeleteRemote}},
		{"local deleted remote changed prefer remote", models.ConflictLocalDeletedRemoteChanged, models.SolutionPreferRemote, []OpKind{OpDownload}},
		{"remote deleted local changed prefer local", models.ConflictRemoteDeletedLocalChanged, models.SolutionPreferLocal, []OpKind{OpUpload}},
		{"remote deleted local changed prefer remote", models.ConflictRemoteDeletedLocalChanged, models.SolutionPreferRemote, []OpKind{OpDeleteLocal}},
		{"local only prefer local", models.ConflictLocalOnly, models.SolutionPreferLocal, []OpKind{OpUpload}},
		{"local only prefer remote", models.ConflictLocalOnly, models.SolutionPreferRemote, []OpKind{OpDeleteLocal}},
		{"remote only prefer local", models.ConflictRemoteOnly, models.SolutionPreferLocal, []OpKind{OpDeleteRemote}},
		{"remote only prefer remote", models.ConflictRemoteOnly, models.SolutionPreferRemote, []OpKind{OpDownload}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := Resolve(tt.ct, tt.solution, "docs/a.txt", time.Now())
			require.NoError(t, err)
			require.Len(t, ops, len(tt.want))
			for i, kind := range tt.want {
				assert.Equal(t, kind, ops[i].Kind)
				assert.Equal(t, "docs/a.txt", ops[i].Path)
			}
		})
	}
}

func TestResolveKeepAsIs(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	ops, err := Resolve(models.ConflictBothChanged, models.SolutionKeepAsIs, "docs/report.txt", now)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.Equal(t, OpRenameRemote, ops[0].Kind)
	assert.Equal(t, "docs/report.txt", ops[0].Path)
	assert.Equal(t, "docs/report (conflicted copy 2026-03-14).txt", ops[0].NewPath)

	assert.Equal(t, OpDownload, ops[1].Kind)
	assert.Equal(t, "docs/report (conflicted copy 2026-03-14).txt", ops[1].Path)
	assert.Empty(t, ops[1].NewPath)
}

func TestResolveKeepAsIsInvalidTypes(t *testing.T) {
	invalid := []models.ConflictType{
		models.ConflictBothDeleted,
		models.ConflictLocalDeletedRemoteChanged,
		models.ConflictRemoteDeletedLocalChanged,
		models.ConflictLocalOnly,
		models.ConflictRemoteOnly,
	}

	for _, ct := range invalid {
		t.Run(string(ct), func(t *testing.T) {
			_, err := Resolve(ct, models.SolutionKeepAsIs, "a.txt", time.Now())
			assert.ErrorIs(t, err, models.ErrInvalidResolution)
		})
	}
}

func TestConflictedCopyName(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"report.txt", "report (conflicted copy 2026-08-28).txt"},
		{"docs/report.txt", "docs/report (conflicted copy 2026-08-28).txt"},
		{"Makefile", "Makefile (conflicted copy 2026-08-28)"},
		{"a/b/archive.tar.gz", "a/b/archive.tar (conflicted copy 2026-08-28).gz"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ConflictedCopyName(tt.in, now))
	}
}

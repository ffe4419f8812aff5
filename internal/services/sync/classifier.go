package sync

import (
	"github.com/TheMichaelB/nextsync/internal/models"
)

// Action is the single unambiguous operation for a non-conflicting delta
// pair.
type Action string

const (
	ActionNone         Action = "none"
	ActionUpload       Action = "upload"
	ActionDownload     Action = "download"
	ActionDeleteLocal  Action = "delete_local"
	ActionDeleteRemote Action = "delete_remote"
)

// Outcome is the classification of one path: either a plain action or a
// conflict type, never both.
type Outcome struct {
	Action   Action
	Conflict models.ConflictType
}

// IsConflict reports whether the outcome requires a resolution.
func (o Outcome) IsConflict() bool {
	return o.Conflict != ""
}

func action(a Action) Outcome                 { return Outcome{Action: a} }
func conflict(ct models.ConflictType) Outcome { return Outcome{Action: ActionNone, Conflict: ct} }

type deltaPair struct {
	Local  models.Delta
	Remote models.Delta
}

// classification is the total mapping from delta pairs to outcomes. Only
// cells where both sides changed independently produce a conflict; every
// other combination converges with one action. A rename without the other
// side changing is classified like a modification of content location, so
// Renamed shares its row and column with Modified.
//
// Local Created with remote Deleted uploads: the remote delete removed
// nothing the local file descends from. Local Deleted with remote Created
// downloads for the mirror reason.
var classification = map[deltaPair]Outcome{
	// Local unchanged: remote side dictates.
	{models.DeltaUnchanged, models.DeltaUnchanged}: action(ActionNone),
	{models.DeltaUnchanged, models.DeltaCreated}:   action(ActionDownload),
	{models.DeltaUnchanged, models.DeltaModified}:  action(ActionDownload),
	{models.DeltaUnchanged, models.DeltaRenamed}:   action(ActionDownload),
	{models.DeltaUnchanged, models.DeltaDeleted}:   action(ActionDeleteLocal),

	// Local created.
	{models.DeltaCreated, models.DeltaUnchanged}: action(ActionUpload),
	{models.DeltaCreated, models.DeltaCreated}:   conflict(models.ConflictBothNew),
	{models.DeltaCreated, models.DeltaModified}:  conflict(models.ConflictBothChanged),
	{models.DeltaCreated, models.DeltaRenamed}:   conflict(models.ConflictBothChanged),
	{models.DeltaCreated, models.DeltaDeleted}:   action(ActionUpload),

	// Local modified.
	{models.DeltaModified, models.DeltaUnchanged}: action(ActionUpload),
	{models.DeltaModified, models.DeltaCreated}:   conflict(models.ConflictBothChanged),
	{models.DeltaModified, models.DeltaModified}:  conflict(models.ConflictBothChanged),
	{models.DeltaModified, models.DeltaRenamed}:   conflict(models.ConflictBothChanged),
	{models.DeltaModified, models.DeltaDeleted}:   conflict(models.ConflictRemoteDeletedLocalChanged),

	// Local renamed: classified like modified.
	{models.DeltaRenamed, models.DeltaUnchanged}: action(ActionUpload),
	{models.DeltaRenamed, models.DeltaCreated}:   conflict(models.ConflictBothChanged),
	{models.DeltaRenamed, models.DeltaModified}:  conflict(models.ConflictBothChanged),
	{models.DeltaRenamed, models.DeltaRenamed}:   conflict(models.ConflictBothChanged),
	{models.DeltaRenamed, models.DeltaDeleted}:   conflict(models.ConflictRemoteDeletedLocalChanged),

	// Local deleted.
	{models.DeltaDeleted, models.DeltaUnchanged}: action(ActionDeleteRemote),
	{models.DeltaDeleted, models.DeltaCreated}:   action(ActionDownload),
	{models.DeltaDeleted, models.DeltaModified}:  conflict(models.ConflictLocalDeletedRemoteChanged),
	{models.DeltaDeleted, models.DeltaRenamed}:   conflict(models.ConflictLocalDeletedRemoteChanged),
	{models.DeltaDeleted, models.DeltaDeleted}:   conflict(models.ConflictBothDeleted),
}

// Classify maps a delta pair for one path to its outcome. The zero Outcome
// (empty Action, empty Conflict) is only possible for a pair missing from
// the table, which the totality test rules out.
func Classify(local, remote models.Delta) Outcome {
	return classification[deltaPair{Local: local, Remote: remote}]
}

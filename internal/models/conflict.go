package models

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType enumerates the ways both sides of a folder pair can diverge
// on the same path since the last snapshot.
type ConflictType string

const (
	ConflictLocalOnly                ConflictType = "local_only"
	ConflictRemoteOnly               ConflictType = "remote_only"
	ConflictBothChanged              ConflictType = "both_changed"
	ConflictBothNew                  ConflictType = "both_new"
	ConflictBothDeleted              ConflictType = "both_deleted"
	ConflictLocalDeletedRemoteChanged ConflictType = "local_deleted_remote_changed"
	ConflictRemoteDeletedLocalChanged ConflictType = "remote_deleted_local_changed"
)

// ConflictSolution is the user- or policy-selected way to converge a
// conflicted item. The zero value is Unresolved: nothing is applied until a
// solution is chosen.
type ConflictSolution string

const (
	SolutionUnresolved   ConflictSolution = "unresolved"
	SolutionPreferLocal  ConflictSolution = "prefer_local"
	SolutionPreferRemote ConflictSolution = "prefer_remote"
	SolutionKeepAsIs     ConflictSolution = "keep_as_is"
)

// AllowsKeepAsIs reports whether KeepAsIs is a legal solution for the
// conflict type. Keeping both copies only makes sense when both sides still
// have content.
func (c ConflictType) AllowsKeepAsIs() bool {
	return c == ConflictBothChanged || c == ConflictBothNew
}

// SyncInfoDetail is a persisted conflict or error record for one item.
type SyncInfoDetail struct {
	ID         string           `json:"id"`
	FolderID   string           `json:"folder_id"`
	Path       string           `json:"path"`
	Type       ConflictType     `json:"type,omitempty"`
	Solution   ConflictSolution `json:"solution"`
	Message    string           `json:"message,omitempty"`
	IsError    bool             `json:"is_error"`
	Resolved   bool             `json:"resolved"`
	CreatedAt  time.Time        `json:"created_at"`
	ResolvedAt time.Time        `json:"resolved_at,omitempty"`
}

// NewConflictDetail creates an unresolved conflict record.
func NewConflictDetail(folderID, path string, ct ConflictType) *SyncInfoDetail {
	return &SyncInfoDetail{
		ID:        uuid.NewString(),
		FolderID:  folderID,
		Path:      path,
		Type:      ct,
		Solution:  SolutionUnresolved,
		CreatedAt: time.Now().UTC(),
	}
}

// NewErrorDetail creates an error record for a failed item operation or a
// failed pass.
func NewErrorDetail(folderID, path, message string) *SyncInfoDetail {
	return &SyncInfoDetail{
		ID:        uuid.NewString(),
		FolderID:  folderID,
		Path:      path,
		Message:   message,
		Solution:  SolutionUnresolved,
		IsError:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// SyncHistory summarizes one completed pass. Entries are append-only and
// only removed by an explicit clear-history request.
type SyncHistory struct {
	ID         int64     `json:"id"`
	FolderID   string    `json:"folder_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Applied    int       `json:"applied"`
	Conflicted int       `json:"conflicted"`
	Errored    int       `json:"errored"`
}

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrFolderNotFound    = errors.New("folder not found")
	ErrFolderDisabled    = errors.New("folder is disabled")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrSnapshotCorrupt   = errors.New("snapshot is corrupt")
	ErrDetailNotFound    = errors.New("sync detail not found")
	ErrInvalidResolution = errors.New("resolution not valid for conflict type")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// TransportErrorKind distinguishes remote failures the engine treats
// differently: missing items, transient network trouble, and requests the
// server refused.
type TransportErrorKind string

const (
	TransportNotFound TransportErrorKind = "not_found"
	TransportNetwork  TransportErrorKind = "network"
	TransportServer   TransportErrorKind = "server"
)

// TransportError wraps a remote content-store failure with its kind.
type TransportError struct {
	Kind       TransportErrorKind
	Op         string
	Path       string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s %s: %s (status %d): %v", e.Op, e.Path, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later pass may succeed without intervention.
func (e *TransportError) Retryable() bool {
	switch e.Kind {
	case TransportNetwork:
		return true
	case TransportServer:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// ItemOpError records a single item operation failure. The pass continues
// with the remaining items.
type ItemOpError struct {
	FolderID string
	Path     string
	Op       string
	Err      error
}

func (e *ItemOpError) Error() string {
	return fmt.Sprintf("item %s [%s]: folder %s: %v", e.Op, e.Path, e.FolderID, e.Err)
}

func (e *ItemOpError) Unwrap() error {
	return e.Err
}

// PassError records a pass-level failure at a collaborator boundary. The
// snapshot is left untouched and the folder retries on its next scheduled
// pass.
type PassError struct {
	FolderID string
	Phase    string
	Err      error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("sync %s: folder %s: %v", e.Phase, e.FolderID, e.Err)
}

func (e *PassError) Unwrap() error {
	return e.Err
}

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncStatus describes the last known run state of a folder pair.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusRunning SyncStatus = "running"
	StatusError   SyncStatus = "error"
)

// FolderSyncInfo is one configured local/remote folder pair.
type FolderSyncInfo struct {
	ID         string     `json:"id"`
	LocalPath  string     `json:"local_path"`
	RemotePath string     `json:"remote_path"`
	Enabled    bool       `json:"enabled"`
	LastRun    time.Time  `json:"last_run,omitempty"`
	Status     SyncStatus `json:"status"`
}

// NewFolderSyncInfo creates an enabled folder pair with a fresh identifier.
func NewFolderSyncInfo(localPath, remotePath string) *FolderSyncInfo {
	return &FolderSyncInfo{
		ID:         uuid.NewString(),
		LocalPath:  localPath,
		RemotePath: remotePath,
		Enabled:    true,
		Status:     StatusIdle,
	}
}

// Validate checks the folder pair structure.
func (f *FolderSyncInfo) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("folder ID is required")
	}

	if strings.TrimSpace(f.LocalPath) == "" {
		return fmt.Errorf("local path is required")
	}

	if strings.TrimSpace(f.RemotePath) == "" {
		return fmt.Errorf("remote path is required")
	}

	switch f.Status {
	case StatusIdle, StatusRunning, StatusError:
	default:
		return fmt.Errorf("invalid status: %s", f.Status)
	}

	return nil
}

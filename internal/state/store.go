package state

import (
	"github.com/TheMichaelB/nextsync/internal/models"
)

// Store is the persistence repository for folder pairs, snapshots, conflict
// and error details, and pass history. Implementations serialize writes per
// folder so concurrent runners cannot interleave snapshot replacements.
type Store interface {
	// Folder pairs
	CreateFolder(folder *models.FolderSyncInfo) error
	GetFolder(id string) (*models.FolderSyncInfo, error)
	ListFolders() ([]*models.FolderSyncInfo, error)
	UpdateFolder(folder *models.FolderSyncInfo) error

	// DeleteFolder removes a folder pair. Its details stay in history but
	// drop out of the active conflict and error views.
	DeleteFolder(id string) error

	// Snapshots; replaced wholesale, both sides in one transaction.
	LoadSnapshot(folderID string, side models.Side) (models.Snapshot, error)
	SaveSnapshots(folderID string, local, remote models.Snapshot) error

	// Conflict and error details
	SaveDetail(detail *models.SyncInfoDetail) error
	GetDetail(id string) (*models.SyncInfoDetail, error)
	FindOpenConflict(folderID, path string) (*models.SyncInfoDetail, error)
	GetConflicts() ([]*models.SyncInfoDetail, error)
	GetErrors() ([]*models.SyncInfoDetail, error)

	// Pass history
	AppendHistory(entry *models.SyncHistory) error
	GetHistory(folderID string) ([]*models.SyncHistory, error)
	ClearHistory(folderID string) error

	// Close releases resources.
	Close() error
}

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1

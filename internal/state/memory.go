package state

import (
	"sort"
	"sync"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	folders   map[string]models.FolderSyncInfo
	snapshots map[string]models.Snapshot // folderID + "/" + side
	details   map[string]models.SyncInfoDetail
	history   []models.SyncHistory
	nextID    int64
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		folders:   make(map[string]models.FolderSyncInfo),
		snapshots: make(map[string]models.Snapshot),
		details:   make(map[string]models.SyncInfoDetail),
	}
}

func snapKey(folderID string, side models.Side) string {
	return folderID + "/" + string(side)
}

func (m *MemoryStore) CreateFolder(folder *models.FolderSyncInfo) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[folder.ID] = *folder
	return nil
}

func (m *MemoryStore) GetFolder(id string) (*models.FolderSyncInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	folder, ok := m.folders[id]
	if !ok {
		return nil, models.ErrFolderNotFound
	}
	return &folder, nil
}

func (m *MemoryStore) ListFolders() ([]*models.FolderSyncInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	folders := make([]*models.FolderSyncInfo, 0, len(m.folders))
	for _, folder := range m.folders {
		f := folder
		folders = append(folders, &f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].LocalPath < folders[j].LocalPath })
	return folders, nil
}

func (m *MemoryStore) UpdateFolder(folder *models.FolderSyncInfo) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[folder.ID]; !ok {
		return models.ErrFolderNotFound
	}
	m.folders[folder.ID] = *folder
	return nil
}

func (m *MemoryStore) DeleteFolder(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.folders[id]; !ok {
		return models.ErrFolderNotFound
	}
	delete(m.folders, id)
	delete(m.snapshots, snapKey(id, models.SideLocal))
	delete(m.snapshots, snapKey(id, models.SideRemote))
	return nil
}

func (m *MemoryStore) LoadSnapshot(folderID string, side models.Side) (models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[snapKey(folderID, side)]
	if !ok {
		return nil, models.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (m *MemoryStore) SaveSnapshots(folderID string, local, remote models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots[snapKey(folderID, models.SideLocal)] = local.Clone()
	m.snapshots[snapKey(folderID, models.SideRemote)] = remote.Clone()
	return nil
}

func (m *MemoryStore) SaveDetail(detail *models.SyncInfoDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[detail.ID] = *detail
	return nil
}

func (m *MemoryStore) GetDetail(id string) (*models.SyncInfoDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	detail, ok := m.details[id]
	if !ok {
		return nil, models.ErrDetailNotFound
	}
	return &detail, nil
}

func (m *MemoryStore) FindOpenConflict(folderID, path string) (*models.SyncInfoDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, detail := range m.details {
		if detail.FolderID == folderID && detail.Path == path && !detail.IsError && !detail.Resolved {
			d := detail
			return &d, nil
		}
	}
	return nil, models.ErrDetailNotFound
}

func (m *MemoryStore) GetConflicts() ([]*models.SyncInfoDetail, error) {
	return m.filterDetails(func(d models.SyncInfoDetail) bool {
		_, folderExists := m.folders[d.FolderID]
		return !d.IsError && !d.Resolved && folderExists
	}), nil
}

func (m *MemoryStore) GetErrors() ([]*models.SyncInfoDetail, error) {
	return m.filterDetails(func(d models.SyncInfoDetail) bool {
		_, folderExists := m.folders[d.FolderID]
		return d.IsError && folderExists
	}), nil
}

func (m *MemoryStore) filterDetails(keep func(models.SyncInfoDetail) bool) []*models.SyncInfoDetail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var details []*models.SyncInfoDetail
	for _, detail := range m.details {
		if keep(detail) {
			d := detail
			details = append(details, &d)
		}
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].ID < details[j].ID
		}
		return details[i].CreatedAt.Before(details[j].CreatedAt)
	})
	return details
}

func (m *MemoryStore) AppendHistory(entry *models.SyncHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	entry.ID = m.nextID
	m.history = append(m.history, *entry)
	return nil
}

func (m *MemoryStore) GetHistory(folderID string) ([]*models.SyncHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*models.SyncHistory
	for i := len(m.history) - 1; i >= 0; i-- {
		if folderID == "" || m.history[i].FolderID == folderID {
			e := m.history[i]
			entries = append(entries, &e)
		}
	}
	return entries, nil
}

func (m *MemoryStore) ClearHistory(folderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if folderID == "" {
		m.history = nil
		return nil
	}

	var kept []models.SyncHistory
	for _, e := range m.history {
		if e.FolderID != folderID {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

func (m *MemoryStore) Close() error { return nil }

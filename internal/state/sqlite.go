package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore creates a SQLite persistence repository.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables and indexes.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS folders (
        id TEXT PRIMARY KEY,
        local_path TEXT NOT NULL,
        remote_path TEXT NOT NULL,
        enabled INTEGER NOT NULL DEFAULT 1,
        last_run INTEGER,
        status TEXT NOT NULL DEFAULT 'idle'
    );

    CREATE TABLE IF NOT EXISTS snapshots (
        folder_id TEXT NOT NULL,
        side TEXT NOT NULL,
        path TEXT NOT NULL,
        size INTEGER NOT NULL DEFAULT 0,
        mod_time INTEGER NOT NULL DEFAULT 0,
        etag TEXT NOT NULL DEFAULT '',
        is_dir INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (folder_id, side, path)
    );

    CREATE TABLE IF NOT EXISTS sync_details (
        id TEXT PRIMARY KEY,
        folder_id TEXT NOT NULL,
        path TEXT NOT NULL,
        conflict_type TEXT NOT NULL DEFAULT '',
        solution TEXT NOT NULL DEFAULT 'unresolved',
        message TEXT NOT NULL DEFAULT '',
        is_error INTEGER NOT NULL DEFAULT 0,
        resolved INTEGER NOT NULL DEFAULT 0,
        created_at INTEGER NOT NULL,
        resolved_at INTEGER
    );

    CREATE INDEX IF NOT EXISTS idx_details_folder_path ON sync_details(folder_id, path);

    CREATE TABLE IF NOT EXISTS sync_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        folder_id TEXT NOT NULL,
        started_at INTEGER NOT NULL,
        finished_at INTEGER NOT NULL,
        applied INTEGER NOT NULL DEFAULT 0,
        conflicted INTEGER NOT NULL DEFAULT 0,
        errored INTEGER NOT NULL DEFAULT 0
    );

    CREATE INDEX IF NOT EXISTS idx_history_folder ON sync_history(folder_id);

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// CreateFolder inserts a folder pair.
func (s *SQLiteStore) CreateFolder(folder *models.FolderSyncInfo) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	_, err := s.db.Exec(`
        INSERT INTO folders (id, local_path, remote_path, enabled, last_run, status)
        VALUES (?, ?, ?, ?, ?, ?)
    `, folder.ID, folder.LocalPath, folder.RemotePath, folder.Enabled,
		timeToUnix(folder.LastRun), string(folder.Status))
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

// GetFolder retrieves one folder pair.
func (s *SQLiteStore) GetFolder(id string) (*models.FolderSyncInfo, error) {
	row := s.db.QueryRow(`
        SELECT id, local_path, remote_path, enabled, last_run, status
        FROM folders WHERE id = ?
    `, id)
	return scanFolder(row)
}

// ListFolders returns all folder pairs.
func (s *SQLiteStore) ListFolders() ([]*models.FolderSyncInfo, error) {
	rows, err := s.db.Query(`
        SELECT id, local_path, remote_path, enabled, last_run, status
        FROM folders ORDER BY local_path
    `)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.FolderSyncInfo
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// UpdateFolder persists folder mutations.
func (s *SQLiteStore) UpdateFolder(folder *models.FolderSyncInfo) error {
	if err := folder.Validate(); err != nil {
		return err
	}

	res, err := s.db.Exec(`
        UPDATE folders SET local_path = ?, remote_path = ?, enabled = ?, last_run = ?, status = ?
        WHERE id = ?
    `, folder.LocalPath, folder.RemotePath, folder.Enabled,
		timeToUnix(folder.LastRun), string(folder.Status), folder.ID)
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		return models.ErrFolderNotFound
	}
	return nil
}

// DeleteFolder removes a folder pair and its snapshots. Details are kept so
// history survives; the active views exclude them once the folder is gone.
func (s *SQLiteStore) DeleteFolder(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return models.ErrFolderNotFound
	}

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE folder_id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot retrieves one side's snapshot.
func (s *SQLiteStore) LoadSnapshot(folderID string, side models.Side) (models.Snapshot, error) {
	rows, err := s.db.Query(`
        SELECT path, size, mod_time, etag, is_dir
        FROM snapshots WHERE folder_id = ? AND side = ?
    `, folderID, string(side))
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := models.NewSnapshot()
	found := false
	for rows.Next() {
		found = true
		var item models.ItemState
		var modTime int64
		if err := rows.Scan(&item.Path, &item.Size, &modTime, &item.ETag, &item.IsDir); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		item.ModTime = unixToTime(modTime)
		if err := snap.Set(item); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, models.ErrSnapshotNotFound
	}
	return snap, nil
}

// SaveSnapshots replaces both sides of a folder's snapshots in one
// transaction, so a reader never observes a half-written pass result.
func (s *SQLiteStore) SaveSnapshots(folderID string, local, remote models.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE folder_id = ?`, folderID); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}

	stmt, err := tx.Prepare(`
        INSERT INTO snapshots (folder_id, side, path, size, mod_time, etag, is_dir)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for side, snap := range map[models.Side]models.Snapshot{
		models.SideLocal:  local,
		models.SideRemote: remote,
	} {
		for _, item := range snap {
			if _, err := stmt.Exec(folderID, string(side), item.Path, item.Size,
				timeToUnix(item.ModTime), item.ETag, item.IsDir); err != nil {
				return fmt.Errorf("insert snapshot row: %w", err)
			}
		}
	}

	return tx.Commit()
}

// SaveDetail upserts a conflict or error detail.
func (s *SQLiteStore) SaveDetail(detail *models.SyncInfoDetail) error {
	_, err := s.db.Exec(`
        INSERT INTO sync_details (id, folder_id, path, conflict_type, solution, message, is_error, resolved, created_at, resolved_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            solution = excluded.solution,
            message = excluded.message,
            resolved = excluded.resolved,
            resolved_at = excluded.resolved_at
    `, detail.ID, detail.FolderID, detail.Path, string(detail.Type), string(detail.Solution),
		detail.Message, detail.IsError, detail.Resolved,
		timeToUnix(detail.CreatedAt), timeToUnix(detail.ResolvedAt))
	if err != nil {
		return fmt.Errorf("save detail: %w", err)
	}
	return nil
}

// GetDetail retrieves one detail by id.
func (s *SQLiteStore) GetDetail(id string) (*models.SyncInfoDetail, error) {
	row := s.db.QueryRow(detailSelect+` WHERE id = ?`, id)
	detail, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDetailNotFound
	}
	return detail, err
}

// FindOpenConflict returns the unresolved conflict for a folder path, if any.
func (s *SQLiteStore) FindOpenConflict(folderID, path string) (*models.SyncInfoDetail, error) {
	row := s.db.QueryRow(detailSelect+`
        WHERE folder_id = ? AND path = ? AND is_error = 0 AND resolved = 0
    `, folderID, path)
	detail, err := scanDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrDetailNotFound
	}
	return detail, err
}

// GetConflicts returns pending conflicts for folders that still exist.
func (s *SQLiteStore) GetConflicts() ([]*models.SyncInfoDetail, error) {
	return s.queryDetails(detailSelect + `
        WHERE is_error = 0 AND resolved = 0
          AND folder_id IN (SELECT id FROM folders)
        ORDER BY created_at
    `)
}

// GetErrors returns recorded errors for folders that still exist.
func (s *SQLiteStore) GetErrors() ([]*models.SyncInfoDetail, error) {
	return s.queryDetails(detailSelect + `
        WHERE is_error = 1
          AND folder_id IN (SELECT id FROM folders)
        ORDER BY created_at
    `)
}

func (s *SQLiteStore) queryDetails(query string) ([]*models.SyncInfoDetail, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query details: %w", err)
	}
	defer rows.Close()

	var details []*models.SyncInfoDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// AppendHistory adds a pass summary.
func (s *SQLiteStore) AppendHistory(entry *models.SyncHistory) error {
	res, err := s.db.Exec(`
        INSERT INTO sync_history (folder_id, started_at, finished_at, applied, conflicted, errored)
        VALUES (?, ?, ?, ?, ?, ?)
    `, entry.FolderID, timeToUnix(entry.StartedAt), timeToUnix(entry.FinishedAt),
		entry.Applied, entry.Conflicted, entry.Errored)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// GetHistory lists pass summaries, newest first. Empty folderID means all.
func (s *SQLiteStore) GetHistory(folderID string) ([]*models.SyncHistory, error) {
	query := `
        SELECT id, folder_id, started_at, finished_at, applied, conflicted, errored
        FROM sync_history
    `
	var args []interface{}
	if folderID != "" {
		query += ` WHERE folder_id = ?`
		args = append(args, folderID)
	}
	query += ` ORDER BY finished_at DESC, id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*models.SyncHistory
	for rows.Next() {
		var e models.SyncHistory
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.FolderID, &started, &finished, &e.Applied, &e.Conflicted, &e.Errored); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.StartedAt = unixToTime(started)
		e.FinishedAt = unixToTime(finished)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ClearHistory removes pass summaries. Empty folderID clears everything.
func (s *SQLiteStore) ClearHistory(folderID string) error {
	var err error
	if folderID == "" {
		_, err = s.db.Exec(`DELETE FROM sync_history`)
	} else {
		_, err = s.db.Exec(`DELETE FROM sync_history WHERE folder_id = ?`, folderID)
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const detailSelect = `
    SELECT id, folder_id, path, conflict_type, solution, message, is_error, resolved, created_at, resolved_at
    FROM sync_details`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*models.FolderSyncInfo, error) {
	var f models.FolderSyncInfo
	var lastRun sql.NullInt64
	var status string

	err := row.Scan(&f.ID, &f.LocalPath, &f.RemotePath, &f.Enabled, &lastRun, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrFolderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan folder: %w", err)
	}

	if lastRun.Valid {
		f.LastRun = unixToTime(lastRun.Int64)
	}
	f.Status = models.SyncStatus(status)
	return &f, nil
}

func scanDetail(row rowScanner) (*models.SyncInfoDetail, error) {
	var d models.SyncInfoDetail
	var ct, solution string
	var createdAt int64
	var resolvedAt sql.NullInt64

	err := row.Scan(&d.ID, &d.FolderID, &d.Path, &ct, &solution, &d.Message,
		&d.IsError, &d.Resolved, &createdAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	d.Type = models.ConflictType(ct)
	d.Solution = models.ConflictSolution(solution)
	d.CreatedAt = unixToTime(createdAt)
	if resolvedAt.Valid {
		d.ResolvedAt = unixToTime(resolvedAt.Int64)
	}
	return &d, nil
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

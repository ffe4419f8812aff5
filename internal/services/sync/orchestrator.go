package sync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/TheMichaelB/nextsync/internal/config"
	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/internal/notify"
	"github.com/TheMichaelB/nextsync/internal/state"
	"github.com/TheMichaelB/nextsync/internal/storage"
	"github.com/TheMichaelB/nextsync/internal/transport"
)

// ConnectionChecker reports whether the current connection is unmetered.
// The unmetered_only network policy consults it before scheduled passes.
type ConnectionChecker interface {
	Unmetered() bool
}

// AlwaysUnmetered is the default checker for environments without
// connection metadata.
type AlwaysUnmetered struct{}

func (AlwaysUnmetered) Unmetered() bool { return true }

// Orchestrator owns the configured folder pairs. It schedules concurrent
// passes bounded by the worker limit, gates scheduled passes by network
// policy, exposes the manual control surface, and aggregates counts for the
// notification layer.
type Orchestrator struct {
	cfg      config.SyncConfig
	store    state.Store
	remote   transport.Client
	local    storage.Accessor
	notifier notify.Notifier
	conn     ConnectionChecker
	logger   *events.Logger

	sem *semaphore.Weighted

	mu      sync.Mutex
	runners map[string]*Runner
	locks   map[string]*sync.Mutex
	cancels map[string]context.CancelFunc
	passes  int

	stopOnce sync.Once
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewOrchestrator wires the engine together. All collaborators are passed
// explicitly; nothing is resolved from ambient state.
func NewOrchestrator(cfg config.SyncConfig, store state.Store, remote transport.Client, local storage.Accessor, notifier notify.Notifier, conn ConnectionChecker, logger *events.Logger) *Orchestrator {
	if conn == nil {
		conn = AlwaysUnmetered{}
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	limit := cfg.WorkerLimit
	if limit <= 0 {
		limit = 1
	}

	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		remote:   remote,
		local:    local,
		notifier: notifier,
		conn:     conn,
		logger:   logger.WithField("component", "orchestrator"),
		sem:      semaphore.NewWeighted(int64(limit)),
		runners:  make(map[string]*Runner),
		locks:    make(map[string]*sync.Mutex),
		cancels:  make(map[string]context.CancelFunc),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler loop. Scheduled passes honor the network
// policy; manual passes do not.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	ticker := time.NewTicker(o.cfg.ScanInterval)

	go func() {
		defer ticker.Stop()
		defer close(o.done)

		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stop:
				return
			case <-ticker.C:
				if !o.scheduledPassAllowed() {
					o.logger.Debug("Scheduled pass skipped by network policy")
					continue
				}
				if err := o.SyncAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
					o.logger.WithError(err).Error("Scheduled sync failed")
				}
			}
		}
	}()
}

// Stop terminates the scheduler loop. In-flight passes run to their next
// cancellation point.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })

	o.mu.Lock()
	started := o.started
	o.mu.Unlock()
	if started {
		<-o.done
	}
}

func (o *Orchestrator) scheduledPassAllowed() bool {
	switch o.cfg.NetworkPolicy {
	case config.PolicyNever:
		return false
	case config.PolicyUnmeteredOnly:
		return o.conn.Unmetered()
	default:
		return true
	}
}

// SyncAll runs one pass for every enabled folder, bounded by the worker
// limit. Individual pass failures are recorded per folder and do not abort
// sibling folders.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	folders, err := o.store.ListFolders()
	if err != nil {
		return fmt.Errorf("list folders: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, folder := range folders {
		if !folder.Enabled {
			continue
		}
		folder := folder
		g.Go(func() error {
			if err := o.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer o.sem.Release(1)

			if _, err := o.runPass(ctx, folder); err != nil && !errors.Is(err, models.ErrSyncInProgress) {
				o.logger.WithError(err).WithField("folder_id", folder.ID).Warn("Folder pass failed")
			}
			return nil
		})
	}
	return g.Wait()
}

// ForceResync runs an immediate pass for one folder, bypassing the schedule
// and the network policy.
func (o *Orchestrator) ForceResync(ctx context.Context, folderID string) (*models.SyncHistory, error) {
	folder, err := o.store.GetFolder(folderID)
	if err != nil {
		return nil, err
	}
	return o.runPass(ctx, folder)
}

// Cancel stops the in-flight pass for a folder, if any. Cancellation is
// cooperative: the current item operation finishes first.
func (o *Orchestrator) Cancel(folderID string) {
	o.mu.Lock()
	cancel := o.cancels[folderID]
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// runPass executes one pass for a folder, serialized against resolutions on
// the same folder, and maintains the folder's status fields.
func (o *Orchestrator) runPass(ctx context.Context, folder *models.FolderSyncInfo) (*models.SyncHistory, error) {
	runner := o.runnerFor(folder.ID)
	if runner.Running() {
		return nil, models.ErrSyncInProgress
	}

	lock := o.folderLock(folder.ID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[folder.ID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.cancels, folder.ID)
		o.mu.Unlock()
	}()

	folder.Status = models.StatusRunning
	if err := o.store.UpdateFolder(folder); err != nil {
		return nil, fmt.Errorf("mark folder running: %w", err)
	}

	entry, runErr := runner.Run(ctx, folder)

	folder.LastRun = time.Now().UTC()
	folder.Status = models.StatusIdle
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, models.ErrSyncInProgress) {
		folder.Status = models.StatusError
	}
	if err := o.store.UpdateFolder(folder); err != nil {
		o.logger.WithError(err).WithField("folder_id", folder.ID).Error("Failed to update folder status")
	}

	if runErr == nil {
		o.mu.Lock()
		o.passes++
		o.mu.Unlock()
	}
	o.publishCounts()

	return entry, runErr
}

// runnerFor returns the folder's runner, creating it on first use.
func (o *Orchestrator) runnerFor(folderID string) *Runner {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r, ok := o.runners[folderID]; ok {
		return r
	}
	r := NewRunner(o.store, o.remote, o.local, o.cfg.MtimeTolerance, models.ConflictSolution(o.cfg.DefaultSolution), o.logger)
	o.runners[folderID] = r
	return r
}

func (o *Orchestrator) folderLock(folderID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	if l, ok := o.locks[folderID]; ok {
		return l
	}
	l := &sync.Mutex{}
	o.locks[folderID] = l
	return l
}

// ApplyResolution applies a solution to one persisted conflict. Re-applying
// the same solution to an already resolved detail is a no-op; a different
// solution is rejected. On success the detail leaves the active conflict
// view and both snapshots are refreshed so the next pass does not re-detect
// the converged path.
func (o *Orchestrator) ApplyResolution(ctx context.Context, detailID string, solution models.ConflictSolution) error {
	detail, err := o.store.GetDetail(detailID)
	if err != nil {
		return err
	}
	if detail.IsError {
		return fmt.Errorf("%w: detail %s is an error record", models.ErrInvalidResolution, detailID)
	}
	if detail.Resolved {
		if detail.Solution == solution {
			return nil
		}
		return fmt.Errorf("%w: detail %s already resolved as %s", models.ErrInvalidResolution, detailID, detail.Solution)
	}

	folder, err := o.store.GetFolder(detail.FolderID)
	if err != nil {
		return err
	}

	ops, err := Resolve(detail.Type, solution, detail.Path, time.Now().UTC())
	if err != nil {
		return err
	}

	lock := o.folderLock(folder.ID)
	lock.Lock()
	defer lock.Unlock()

	runner := o.runnerFor(folder.ID)
	currLocal, currRemote, err := runner.list(ctx, folder)
	if err != nil {
		return fmt.Errorf("list for resolution: %w", err)
	}

	for _, op := range ops {
		if err := runner.applyOp(ctx, folder, op, currLocal, currRemote); err != nil {
			runner.recordItemError(folder, detail.Path, op, err)
			o.publishCounts()
			return err
		}
	}

	// Refresh both snapshots so the converged state becomes the baseline.
	finalLocal, finalRemote, err := runner.list(ctx, folder)
	if err == nil {
		err = o.store.SaveSnapshots(folder.ID, finalLocal, finalRemote)
	}
	if err != nil {
		o.logger.WithError(err).WithField("folder_id", folder.ID).Warn("Snapshot refresh after resolution failed")
	}

	detail.Solution = solution
	detail.Resolved = true
	detail.ResolvedAt = time.Now().UTC()
	if err := o.store.SaveDetail(detail); err != nil {
		return fmt.Errorf("persist resolution: %w", err)
	}

	o.logger.WithFields(map[string]interface{}{
		"detail_id": detailID,
		"path":      detail.Path,
		"solution":  string(solution),
	}).Info("Conflict resolved")

	o.publishCounts()
	return nil
}

// ApplyResolutions applies one solution to a set of conflict details, such
// as a multi-selection from a UI list. Items the solution cannot legally
// resolve are skipped and reported; the rest are still applied. Returns the
// number resolved.
func (o *Orchestrator) ApplyResolutions(ctx context.Context, detailIDs []string, solution models.ConflictSolution) (int, error) {
	var (
		resolved int
		errs     []error
	)
	for _, id := range detailIDs {
		if err := o.ApplyResolution(ctx, id, solution); err != nil {
			errs = append(errs, fmt.Errorf("detail %s: %w", id, err))
			continue
		}
		resolved++
	}
	return resolved, errors.Join(errs...)
}

// Counts aggregates the pending-conflict and error totals for the
// notification layer.
func (o *Orchestrator) Counts() (notify.Counts, error) {
	conflicts, err := o.store.GetConflicts()
	if err != nil {
		return notify.Counts{}, err
	}
	errs, err := o.store.GetErrors()
	if err != nil {
		return notify.Counts{}, err
	}

	o.mu.Lock()
	passes := o.passes
	o.mu.Unlock()

	return notify.Counts{
		PendingConflicts: len(conflicts),
		RecentErrors:     len(errs),
		PassesCompleted:  passes,
	}, nil
}

func (o *Orchestrator) publishCounts() {
	counts, err := o.Counts()
	if err != nil {
		o.logger.WithError(err).Error("Failed to aggregate counts")
		return
	}
	o.notifier.Notify(counts)
}

// AddFolder configures a new folder pair.
func (o *Orchestrator) AddFolder(localPath, remotePath string) (*models.FolderSyncInfo, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("resolve local path: %w", err)
	}
	remotePath = strings.Trim(strings.ReplaceAll(remotePath, "\\", "/"), "/")

	folder := models.NewFolderSyncInfo(abs, remotePath)
	if err := folder.Validate(); err != nil {
		return nil, err
	}
	if err := o.store.CreateFolder(folder); err != nil {
		return nil, err
	}

	o.logger.WithFields(map[string]interface{}{
		"folder_id":   folder.ID,
		"local_path":  abs,
		"remote_path": remotePath,
	}).Info("Folder pair added")

	return folder, nil
}

// RemoveFolder deletes a folder pair. An in-flight pass is cancelled first;
// the folder's resolved details stay in history but leave the active views.
func (o *Orchestrator) RemoveFolder(folderID string) error {
	o.Cancel(folderID)

	lock := o.folderLock(folderID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.store.DeleteFolder(folderID); err != nil {
		return err
	}

	o.mu.Lock()
	delete(o.runners, folderID)
	o.mu.Unlock()

	o.publishCounts()
	return nil
}

// SetFolderEnabled toggles whether a folder participates in passes.
func (o *Orchestrator) SetFolderEnabled(folderID string, enabled bool) error {
	folder, err := o.store.GetFolder(folderID)
	if err != nil {
		return err
	}
	folder.Enabled = enabled
	return o.store.UpdateFolder(folder)
}

// ListFolders returns all configured folder pairs.
func (o *Orchestrator) ListFolders() ([]*models.FolderSyncInfo, error) {
	return o.store.ListFolders()
}

// GetFolder returns one folder pair.
func (o *Orchestrator) GetFolder(folderID string) (*models.FolderSyncInfo, error) {
	return o.store.GetFolder(folderID)
}

// Conflicts returns the pending conflicts across all active folders.
func (o *Orchestrator) Conflicts() ([]*models.SyncInfoDetail, error) {
	return o.store.GetConflicts()
}

// Errors returns the recorded errors across all active folders.
func (o *Orchestrator) Errors() ([]*models.SyncInfoDetail, error) {
	return o.store.GetErrors()
}

// History returns pass history, newest first. Empty folderID means all
// folders.
func (o *Orchestrator) History(folderID string) ([]*models.SyncHistory, error) {
	return o.store.GetHistory(folderID)
}

// ClearHistory removes history entries. Empty folderID clears everything.
func (o *Orchestrator) ClearHistory(folderID string) error {
	return o.store.ClearHistory(folderID)
}

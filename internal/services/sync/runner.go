package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/internal/state"
	"github.com/TheMichaelB/nextsync/internal/storage"
	"github.com/TheMichaelB/nextsync/internal/transport"
)

// Phase names a stage of a pass, used in logs and pass-level errors.
type Phase string

const (
	PhaseListing     Phase = "listing"
	PhaseDetecting   Phase = "detecting"
	PhaseClassifying Phase = "classifying"
	PhaseApplying    Phase = "applying"
	PhasePersisting  Phase = "persisting"
)

// Runner drives one folder pair through a single pass: list both sides,
// detect deltas, classify, apply convergent operations, record conflicts,
// persist the resulting snapshots and a history entry. A runner owns its
// folder's snapshots; at most one pass runs at a time.
type Runner struct {
	store  state.Store
	remote transport.Client
	local  storage.Accessor
	exec   *executor
	logger *events.Logger

	tolerance       time.Duration
	defaultSolution models.ConflictSolution

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner for one folder pair. defaultSolution, when not
// Unresolved, is applied to fresh conflicts automatically; conflicts it
// cannot legally resolve stay pending.
func NewRunner(store state.Store, remote transport.Client, local storage.Accessor, tolerance time.Duration, defaultSolution models.ConflictSolution, logger *events.Logger) *Runner {
	if defaultSolution == "" {
		defaultSolution = models.SolutionUnresolved
	}
	return &Runner{
		store:           store,
		remote:          remote,
		local:           local,
		exec:            newExecutor(remote, local, logger),
		logger:          logger.WithField("component", "runner"),
		tolerance:       tolerance,
		defaultSolution: defaultSolution,
	}
}

// Running reports whether a pass is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one pass. Returns the appended history entry on completion.
// A second call while a pass is in flight fails with ErrSyncInProgress. A
// cancelled pass stops between items and leaves the prior snapshots intact.
func (r *Runner) Run(ctx context.Context, folder *models.FolderSyncInfo) (*models.SyncHistory, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, models.ErrSyncInProgress
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if !folder.Enabled {
		return nil, models.ErrFolderDisabled
	}

	log := r.logger.WithField("folder_id", folder.ID)
	started := time.Now().UTC()

	prevLocal, err := r.loadSnapshot(folder.ID, models.SideLocal)
	if err != nil {
		return nil, r.passError(folder, PhaseDetecting, err)
	}
	prevRemote, err := r.loadSnapshot(folder.ID, models.SideRemote)
	if err != nil {
		return nil, r.passError(folder, PhaseDetecting, err)
	}

	currLocal, currRemote, err := r.list(ctx, folder)
	if err != nil {
		return nil, r.passError(folder, PhaseListing, err)
	}

	localIdx := deltaIndex(Detect(prevLocal, currLocal, r.tolerance))
	remoteIdx := deltaIndex(Detect(prevRemote, currRemote, r.tolerance))

	paths := changedPaths(localIdx, remoteIdx)
	log.WithFields(map[string]interface{}{
		"local_changes":  len(localIdx),
		"remote_changes": len(remoteIdx),
	}).Info("Pass computed deltas")

	var applied, conflicted, errored int

	// Paths whose divergence was not converged this pass keep their
	// previous snapshot entries so the next pass re-detects them.
	unsettled := make(map[string]struct{})

	for _, p := range paths {
		if ctx.Err() != nil {
			log.Info("Pass cancelled")
			return nil, &models.PassError{FolderID: folder.ID, Phase: string(PhaseApplying), Err: ctx.Err()}
		}

		localDelta := deltaOrUnchanged(localIdx, p)
		remoteDelta := deltaOrUnchanged(remoteIdx, p)
		outcome := Classify(localDelta, remoteDelta)

		if outcome.IsConflict() && bothSidesConverged(outcome.Conflict, currLocal, currRemote, p, r.tolerance) {
			// Both sides independently arrived at the same state; nothing
			// to converge and nothing to report.
			continue
		}

		if !outcome.IsConflict() {
			for _, op := range operationForAction(outcome.Action, p) {
				if err := r.applyOp(ctx, folder, op, currLocal, currRemote); err != nil {
					errored++
					unsettled[p] = struct{}{}
					r.recordItemError(folder, p, op, err)
				} else {
					applied++
				}
			}
			continue
		}

		conflicted++
		detail, err := r.openConflict(folder, p, outcome.Conflict)
		if err != nil {
			errored++
			log.WithError(err).WithField("path", p).Error("Failed to record conflict")
			continue
		}

		if n, ok := r.autoResolve(ctx, folder, detail, outcome.Conflict, currLocal, currRemote); ok {
			applied += n
			continue
		}
		unsettled[p] = struct{}{}
	}

	finalLocal, finalRemote, err := r.list(ctx, folder)
	if err != nil {
		return nil, r.passError(folder, PhasePersisting, err)
	}
	for p := range unsettled {
		revertEntry(finalLocal, prevLocal, p)
		revertEntry(finalRemote, prevRemote, p)
	}

	if err := r.store.SaveSnapshots(folder.ID, finalLocal, finalRemote); err != nil {
		return nil, r.passError(folder, PhasePersisting, err)
	}

	entry := &models.SyncHistory{
		FolderID:   folder.ID,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
		Applied:    applied,
		Conflicted: conflicted,
		Errored:    errored,
	}
	if err := r.store.AppendHistory(entry); err != nil {
		log.WithError(err).Error("Failed to append history")
	}

	log.WithFields(map[string]interface{}{
		"applied":    applied,
		"conflicted": conflicted,
		"errored":    errored,
	}).Info("Pass complete")

	return entry, nil
}

// loadSnapshot returns the stored snapshot for one side, or an empty one on
// the first pass.
func (r *Runner) loadSnapshot(folderID string, side models.Side) (models.Snapshot, error) {
	snap, err := r.store.LoadSnapshot(folderID, side)
	if errors.Is(err, models.ErrSnapshotNotFound) {
		return models.NewSnapshot(), nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// list obtains fresh snapshots of both sides.
func (r *Runner) list(ctx context.Context, folder *models.FolderSyncInfo) (models.Snapshot, models.Snapshot, error) {
	localItems, err := r.local.List(folder.LocalPath)
	if err != nil {
		return nil, nil, fmt.Errorf("list local: %w", err)
	}
	currLocal, err := models.SnapshotFromItems(localItems)
	if err != nil {
		return nil, nil, err
	}

	remoteItems, err := r.remote.List(ctx, folder.RemotePath)
	if err != nil {
		return nil, nil, fmt.Errorf("list remote: %w", err)
	}
	currRemote, err := models.SnapshotFromItems(remoteItems)
	if err != nil {
		return nil, nil, err
	}

	return currLocal, currRemote, nil
}

// applyOp executes one operation, treating a remote delete of an already
// missing item as success.
func (r *Runner) applyOp(ctx context.Context, folder *models.FolderSyncInfo, op Operation, currLocal, currRemote models.Snapshot) error {
	err := r.exec.apply(ctx, folder, op, currLocal, currRemote)
	if err == nil {
		return nil
	}

	if op.Kind == OpDeleteRemote {
		var terr *models.TransportError
		if errors.As(err, &terr) && terr.Kind == models.TransportNotFound {
			return nil
		}
	}
	return err
}

// openConflict finds the open conflict detail for a path or records a new
// one.
func (r *Runner) openConflict(folder *models.FolderSyncInfo, p string, ct models.ConflictType) (*models.SyncInfoDetail, error) {
	detail, err := r.store.FindOpenConflict(folder.ID, p)
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, models.ErrDetailNotFound) {
		return nil, err
	}

	detail = models.NewConflictDetail(folder.ID, p, ct)
	if err := r.store.SaveDetail(detail); err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"folder_id": folder.ID,
		"path":      p,
		"type":      string(ct),
	}).Info("Conflict recorded")

	return detail, nil
}

// autoResolve applies the configured default solution to a conflict. It
// reports how many operations were applied and whether the conflict was
// settled.
func (r *Runner) autoResolve(ctx context.Context, folder *models.FolderSyncInfo, detail *models.SyncInfoDetail, ct models.ConflictType, currLocal, currRemote models.Snapshot) (int, bool) {
	if r.defaultSolution == models.SolutionUnresolved {
		return 0, false
	}

	ops, err := Resolve(ct, r.defaultSolution, detail.Path, time.Now().UTC())
	if err != nil {
		// The policy does not fit this conflict type; leave it pending.
		return 0, false
	}

	applied := 0
	for _, op := range ops {
		if err := r.applyOp(ctx, folder, op, currLocal, currRemote); err != nil {
			r.recordItemError(folder, detail.Path, op, err)
			return applied, false
		}
		applied++
	}

	detail.Solution = r.defaultSolution
	detail.Resolved = true
	detail.ResolvedAt = time.Now().UTC()
	if err := r.store.SaveDetail(detail); err != nil {
		r.logger.WithError(err).WithField("path", detail.Path).Error("Failed to mark conflict resolved")
	}

	return applied, true
}

// recordItemError persists an ItemOperationFailed detail; the pass continues
// with the remaining items.
func (r *Runner) recordItemError(folder *models.FolderSyncInfo, p string, op Operation, err error) {
	opErr := &models.ItemOpError{FolderID: folder.ID, Path: p, Op: string(op.Kind), Err: err}
	r.logger.WithError(opErr).Warn("Item operation failed")

	detail := models.NewErrorDetail(folder.ID, p, opErr.Error())
	if saveErr := r.store.SaveDetail(detail); saveErr != nil {
		r.logger.WithError(saveErr).WithField("path", p).Error("Failed to record item error")
	}
}

// passError records a collaborator-boundary failure and wraps it. The
// snapshots are left untouched.
func (r *Runner) passError(folder *models.FolderSyncInfo, phase Phase, err error) error {
	perr := &models.PassError{FolderID: folder.ID, Phase: string(phase), Err: err}
	r.logger.WithError(perr).Error("Pass failed")

	detail := models.NewErrorDetail(folder.ID, "", perr.Error())
	if saveErr := r.store.SaveDetail(detail); saveErr != nil {
		r.logger.WithError(saveErr).Error("Failed to record pass error")
	}
	return perr
}

// changedPaths returns the sorted union of paths changed on either side.
func changedPaths(localIdx, remoteIdx map[string]models.Delta) []string {
	set := make(map[string]struct{}, len(localIdx)+len(remoteIdx))
	for p := range localIdx {
		set[p] = struct{}{}
	}
	for p := range remoteIdx {
		set[p] = struct{}{}
	}

	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func deltaOrUnchanged(idx map[string]models.Delta, p string) models.Delta {
	if d, ok := idx[p]; ok {
		return d
	}
	return models.DeltaUnchanged
}

// bothSidesConverged reports whether a BothNew or BothChanged pair already
// holds identical content, as on a first pass over two pre-populated trees.
func bothSidesConverged(ct models.ConflictType, currLocal, currRemote models.Snapshot, p string, tolerance time.Duration) bool {
	if ct != models.ConflictBothNew && ct != models.ConflictBothChanged {
		return false
	}
	l, lok := currLocal.Get(p)
	rm, rok := currRemote.Get(p)
	return lok && rok && l.SameIdentity(rm, tolerance)
}

// revertEntry restores the previous snapshot entry for one path.
func revertEntry(final, prev models.Snapshot, p string) {
	if item, ok := prev.Get(p); ok {
		final[p] = item
		return
	}
	delete(final, p)
}

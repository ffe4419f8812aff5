package sync

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// OpKind identifies a concrete item operation the executor knows how to
// apply.
type OpKind string

const (
	OpUpload       OpKind = "upload"
	OpDownload     OpKind = "download"
	OpDeleteLocal  OpKind = "delete_local"
	OpDeleteRemote OpKind = "delete_remote"
	OpRenameRemote OpKind = "rename_remote"
	OpMkdirLocal   OpKind = "mkdir_local"
	OpMkdirRemote  OpKind = "mkdir_remote"
)

// Operation is one unit of work against the local tree or the remote store.
// NewPath is only set for renames.
type Operation struct {
	Kind    OpKind
	Path    string
	NewPath string
}

func (o Operation) String() string {
	if o.NewPath != "" {
		return fmt.Sprintf("%s %s -> %s", o.Kind, o.Path, o.NewPath)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.Path)
}

// operationForAction maps a convergent classification to its operation.
// ActionNone yields no operation.
func operationForAction(a Action, p string) []Operation {
	switch a {
	case ActionUpload:
		return []Operation{{Kind: OpUpload, Path: p}}
	case ActionDownload:
		return []Operation{{Kind: OpDownload, Path: p}}
	case ActionDeleteLocal:
		return []Operation{{Kind: OpDeleteLocal, Path: p}}
	case ActionDeleteRemote:
		return []Operation{{Kind: OpDeleteRemote, Path: p}}
	default:
		return nil
	}
}

// Resolve converts a chosen solution for a conflict into the operations that
// converge both sides. An Unresolved solution yields no operations and no
// error: the conflict stays queued. KeepAsIs is only legal where both sides
// still carry content; elsewhere it returns ErrInvalidResolution.
func Resolve(ct models.ConflictType, solution models.ConflictSolution, p string, now time.Time) ([]Operation, error) {
	if solution == models.SolutionUnresolved {
		return nil, nil
	}

	if solution == models.SolutionKeepAsIs {
		if !ct.AllowsKeepAsIs() {
			return nil, fmt.Errorf("%w: keep-as-is on %s", models.ErrInvalidResolution, ct)
		}
		// The remote copy is renamed aside and fetched; the local item is
		// never touched, so both versions end up present.
		copyName := ConflictedCopyName(p, now)
		return []Operation{
			{Kind: OpRenameRemote, Path: p, NewPath: copyName},
			{Kind: OpDownload, Path: copyName},
		}, nil
	}

	preferLocal := solution == models.SolutionPreferLocal

	switch ct {
	case models.ConflictBothChanged, models.ConflictBothNew:
		if preferLocal {
			return []Operation{{Kind: OpUpload, Path: p}}, nil
		}
		return []Operation{{Kind: OpDownload, Path: p}}, nil

	case models.ConflictBothDeleted:
		// Both sides already converged on absence.
		return nil, nil

	case models.ConflictLocalDeletedRemoteChanged:
		if preferLocal {
			return []Operation{{Kind: OpDeleteRemote, Path: p}}, nil
		}
		return []Operation{{Kind: OpDownload, Path: p}}, nil

	case models.ConflictRemoteDeletedLocalChanged:
		if preferLocal {
			return []Operation{{Kind: OpUpload, Path: p}}, nil
		}
		return []Operation{{Kind: OpDeleteLocal, Path: p}}, nil

	case models.ConflictLocalOnly:
		// The item exists only locally; preferring the remote side means
		// accepting its absence.
		if preferLocal {
			return []Operation{{Kind: OpUpload, Path: p}}, nil
		}
		return []Operation{{Kind: OpDeleteLocal, Path: p}}, nil

	case models.ConflictRemoteOnly:
		if preferLocal {
			return []Operation{{Kind: OpDeleteRemote, Path: p}}, nil
		}
		return []Operation{{Kind: OpDownload, Path: p}}, nil

	default:
		return nil, fmt.Errorf("%w: unknown conflict type %q", models.ErrInvalidResolution, ct)
	}
}

// ConflictedCopyName derives the sibling name used when both versions of an
// item are kept: "report (conflicted copy 2026-08-28).txt".
func ConflictedCopyName(p string, now time.Time) string {
	dir := path.Dir(p)
	base := path.Base(p)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := fmt.Sprintf("%s (conflicted copy %s)%s", stem, now.UTC().Format("2006-01-02"), ext)
	if dir == "." {
		return name
	}
	return path.Join(dir, name)
}

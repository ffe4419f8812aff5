package models

import (
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ItemState is the known state of one file or directory on one side of a
// folder pair. Identity is the ETag when the listing carries one, otherwise
// size plus modification time.
type ItemState struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	ETag    string    `json:"etag,omitempty"`
	IsDir   bool      `json:"is_dir"`
	Deleted bool      `json:"deleted,omitempty"`
}

// SameIdentity reports whether two states describe the same content.
// Modification times closer than tolerance count as equal so filesystem
// timestamp resolution and clock skew do not surface as modifications.
func (i ItemState) SameIdentity(other ItemState, tolerance time.Duration) bool {
	if i.IsDir || other.IsDir {
		return i.IsDir == other.IsDir
	}

	if i.ETag != "" && other.ETag != "" {
		return i.ETag == other.ETag
	}

	if i.Size != other.Size {
		return false
	}

	diff := i.ModTime.Sub(other.ModTime)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// NormalizePath cleans a relative item path: forward slashes, no leading
// slash, NFC form so composed and decomposed encodings of the same name
// (macOS vs server) compare equal.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	return norm.NFC.String(p)
}

// Snapshot maps relative paths to their last-known item states for one side
// of a folder pair. Paths are unique by construction.
type Snapshot map[string]ItemState

// NewSnapshot creates an empty snapshot.
func NewSnapshot() Snapshot {
	return make(Snapshot)
}

// Set inserts an item state. Duplicate paths indicate a programming error in
// the listing layer and are rejected loudly.
func (s Snapshot) Set(item ItemState) error {
	key := NormalizePath(item.Path)
	if _, exists := s[key]; exists {
		return fmt.Errorf("%w: duplicate path %q", ErrSnapshotCorrupt, key)
	}
	item.Path = key
	s[key] = item
	return nil
}

// Get returns the item state for a path.
func (s Snapshot) Get(p string) (ItemState, bool) {
	item, ok := s[NormalizePath(p)]
	return item, ok
}

// Clone creates a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	clone := make(Snapshot, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// SnapshotFromItems builds a snapshot from a fresh listing.
func SnapshotFromItems(items []ItemState) (Snapshot, error) {
	snap := make(Snapshot, len(items))
	for _, item := range items {
		if err := snap.Set(item); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Side distinguishes the two snapshots of a folder pair.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)

package storage

import (
	"time"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// Accessor is the local filesystem collaborator. It mirrors the shape of
// the remote transport client so the resolution engine can treat both sides
// symmetrically. root is the absolute local folder of a sync pair; all other
// paths are relative to it and must not escape it.
type Accessor interface {
	// List enumerates all items below root recursively.
	List(root string) ([]models.ItemState, error)

	// Read retrieves file contents.
	Read(root, rel string) ([]byte, error)

	// Write saves file contents atomically and sets the modification time.
	Write(root, rel string, data []byte, modTime time.Time) error

	// Delete removes a file or directory tree.
	Delete(root, rel string) error

	// Rename moves an item within the same root.
	Rename(root, rel, newRel string) error

	// Mkdir creates a directory and any missing parents.
	Mkdir(root, rel string) error
}

package transport

import (
	"context"
	"io"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// Client is the remote content-store collaborator. Paths are relative to
// the account root, forward-slash separated. List returns every item below
// the given path with identity metadata; failures carry a
// *models.TransportError so callers can tell missing items from transient
// network trouble and server rejections.
type Client interface {
	// List enumerates all items below remotePath recursively.
	List(ctx context.Context, remotePath string) ([]models.ItemState, error)

	// Download retrieves file content. The caller closes the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Upload stores file content, overwriting any existing item.
	Upload(ctx context.Context, path string, data io.Reader) error

	// Delete removes a file or collection.
	Delete(ctx context.Context, path string) error

	// Rename moves an item to a new path on the same store.
	Rename(ctx context.Context, path, newPath string) error

	// Mkdir creates a collection, including missing parents. Creating an
	// existing collection is not an error.
	Mkdir(ctx context.Context, path string) error

	// Close releases connections.
	Close() error
}

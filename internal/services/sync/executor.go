package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
	"github.com/TheMichaelB/nextsync/internal/storage"
	"github.com/TheMichaelB/nextsync/internal/transport"
)

// executor applies item operations against one folder pair. It consults the
// current snapshots so directories are mirrored as directories rather than
// copied as content.
type executor struct {
	remote transport.Client
	local  storage.Accessor
	logger *events.Logger
}

func newExecutor(remote transport.Client, local storage.Accessor, logger *events.Logger) *executor {
	return &executor{
		remote: remote,
		local:  local,
		logger: logger.WithField("component", "executor"),
	}
}

// remotePath maps a relative item path onto the folder's remote root.
func remotePath(folder *models.FolderSyncInfo, rel string) string {
	return path.Join(folder.RemotePath, rel)
}

// apply performs one operation. localSnap and remoteSnap are the fresh
// listings for the current pass; they decide whether an item is a directory.
func (e *executor) apply(ctx context.Context, folder *models.FolderSyncInfo, op Operation, localSnap, remoteSnap models.Snapshot) error {
	e.logger.WithFields(map[string]interface{}{
		"folder_id": folder.ID,
		"op":        op.String(),
	}).Debug("Applying operation")

	switch op.Kind {
	case OpUpload:
		return e.upload(ctx, folder, op.Path, localSnap)
	case OpDownload:
		return e.download(ctx, folder, op.Path, remoteSnap)
	case OpDeleteLocal:
		return e.local.Delete(folder.LocalPath, op.Path)
	case OpDeleteRemote:
		return e.remote.Delete(ctx, remotePath(folder, op.Path))
	case OpRenameRemote:
		return e.remote.Rename(ctx, remotePath(folder, op.Path), remotePath(folder, op.NewPath))
	case OpMkdirLocal:
		return e.local.Mkdir(folder.LocalPath, op.Path)
	case OpMkdirRemote:
		return e.remote.Mkdir(ctx, remotePath(folder, op.Path))
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (e *executor) upload(ctx context.Context, folder *models.FolderSyncInfo, rel string, localSnap models.Snapshot) error {
	if item, ok := localSnap.Get(rel); ok && item.IsDir {
		return e.remote.Mkdir(ctx, remotePath(folder, rel))
	}

	data, err := e.local.Read(folder.LocalPath, rel)
	if err != nil {
		return fmt.Errorf("read local file: %w", err)
	}
	return e.remote.Upload(ctx, remotePath(folder, rel), bytes.NewReader(data))
}

func (e *executor) download(ctx context.Context, folder *models.FolderSyncInfo, rel string, remoteSnap models.Snapshot) error {
	item, ok := remoteSnap.Get(rel)
	if ok && item.IsDir {
		return e.local.Mkdir(folder.LocalPath, rel)
	}

	body, err := e.remote.Download(ctx, remotePath(folder, rel))
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read download body: %w", err)
	}
	return e.local.Write(folder.LocalPath, rel, data, item.ModTime)
}

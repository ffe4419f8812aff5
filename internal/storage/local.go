package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/nextsync/internal/events"
	"github.com/TheMichaelB/nextsync/internal/models"
)

// LocalStore implements Accessor on the operating system filesystem.
type LocalStore struct {
	logger *events.Logger
}

// NewLocalStore creates a local filesystem accessor.
func NewLocalStore(logger *events.Logger) *LocalStore {
	return &LocalStore{
		logger: logger.WithField("component", "local_store"),
	}
}

// resolve joins root and rel, rejecting traversal outside root. The raw
// path is checked before normalization so ".." segments cannot be cleaned
// away silently.
func (s *LocalStore) resolve(root, rel string) (string, error) {
	raw := strings.ReplaceAll(rel, "\\", "/")
	if filepath.IsAbs(rel) || strings.HasPrefix(raw, "/") {
		return "", fmt.Errorf("path escapes folder root: %q", rel)
	}
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path escapes folder root: %q", rel)
		}
	}

	rel = models.NormalizePath(rel)
	if rel == "" || rel == "." {
		return "", fmt.Errorf("empty relative path")
	}

	full := filepath.Join(root, filepath.FromSlash(rel))

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if absFull != absRoot && !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes folder root: %q", rel)
	}

	return full, nil
}

// List walks root and returns every item below it.
func (s *LocalStore) List(root string) ([]models.ItemState, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat folder root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("folder root %s is not a directory", root)
	}

	var items []models.ItemState
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		// Symlinks are skipped: following them can escape the root.
		if d.Type()&fs.ModeSymlink != 0 {
			s.logger.WithField("path", p).Debug("Skipping symlink")
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		item := models.ItemState{
			Path:  models.NormalizePath(filepath.ToSlash(rel)),
			IsDir: d.IsDir(),
		}
		if !d.IsDir() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			item.Size = fi.Size()
			item.ModTime = fi.ModTime().UTC()
		}

		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return items, nil
}

// Read retrieves file contents.
func (s *LocalStore) Read(root, rel string) ([]byte, error) {
	full, err := s.resolve(root, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Write saves data through a temp file and rename so a crash never leaves a
// half-written file, then applies the modification time.
func (s *LocalStore) Write(root, rel string, data []byte, modTime time.Time) error {
	full, err := s.resolve(root, rel)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".nextsync-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}

	if !modTime.IsZero() {
		if err := os.Chtimes(full, modTime, modTime); err != nil {
			s.logger.WithError(err).WithField("path", rel).Warn("Failed to set modification time")
		}
	}

	return nil
}

// Delete removes a file or directory tree.
func (s *LocalStore) Delete(root, rel string) error {
	full, err := s.resolve(root, rel)
	if err != nil {
		return err
	}
	return os.RemoveAll(full)
}

// Mkdir creates a directory and any missing parents.
func (s *LocalStore) Mkdir(root, rel string) error {
	full, err := s.resolve(root, rel)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0755)
}

// Rename moves an item within the same root.
func (s *LocalStore) Rename(root, rel, newRel string) error {
	from, err := s.resolve(root, rel)
	if err != nil {
		return err
	}
	to, err := s.resolve(root, newRel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	return os.Rename(from, to)
}

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TheMichaelB/nextsync/internal/models"
)

// MockClient is an in-memory Client for tests. Errors can be injected per
// operation name ("list", "download", "upload", "delete", "rename",
// "mkdir").
type MockClient struct {
	mu    sync.Mutex
	files map[string]mockFile
	fail  map[string]error

	// Ops records every mutation in call order, e.g. "upload:/docs/a.txt".
	Ops []string
}

type mockFile struct {
	data    []byte
	modTime time.Time
	etag    string
	isDir   bool
}

// NewMockClient creates an empty mock remote store.
func NewMockClient() *MockClient {
	return &MockClient{
		files: make(map[string]mockFile),
		fail:  make(map[string]error),
	}
}

// PutFile seeds a remote file.
func (m *MockClient) PutFile(p string, data []byte, modTime time.Time, etag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normKey(p)] = mockFile{data: data, modTime: modTime, etag: etag}
}

// PutDir seeds a remote collection.
func (m *MockClient) PutDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normKey(p)] = mockFile{isDir: true}
}

// FailWith makes the named operation return err.
func (m *MockClient) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

// Content returns the stored bytes for a path.
func (m *MockClient) Content(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[normKey(p)]
	if !ok || f.isDir {
		return nil, false
	}
	return f.data, true
}

// Exists reports whether a path is present.
func (m *MockClient) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[normKey(p)]
	return ok
}

func (m *MockClient) List(ctx context.Context, remotePath string) ([]models.ItemState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["list"]; err != nil {
		return nil, err
	}

	root := normKey(remotePath)
	var items []models.ItemState
	for p, f := range m.files {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if p == root || (root != "" && !strings.HasPrefix(p, root+"/")) {
			continue
		}
		items = append(items, models.ItemState{
			Path:    rel,
			Size:    int64(len(f.data)),
			ModTime: f.modTime,
			ETag:    f.etag,
			IsDir:   f.isDir,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

func (m *MockClient) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["download"]; err != nil {
		return nil, err
	}

	f, ok := m.files[normKey(p)]
	if !ok || f.isDir {
		return nil, &models.TransportError{Kind: models.TransportNotFound, Op: "download", Path: p, Err: fmt.Errorf("no such file")}
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (m *MockClient) Upload(ctx context.Context, p string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["upload"]; err != nil {
		return err
	}

	key := normKey(p)
	m.ensureParents(key)
	m.files[key] = mockFile{data: content, modTime: time.Now().UTC(), etag: fmt.Sprintf("etag-%d", len(m.Ops))}
	m.Ops = append(m.Ops, "upload:"+key)
	return nil
}

func (m *MockClient) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["delete"]; err != nil {
		return err
	}

	key := normKey(p)
	if _, ok := m.files[key]; !ok {
		return &models.TransportError{Kind: models.TransportNotFound, Op: "delete", Path: p, Err: fmt.Errorf("no such file")}
	}

	for existing := range m.files {
		if existing == key || strings.HasPrefix(existing, key+"/") {
			delete(m.files, existing)
		}
	}
	m.Ops = append(m.Ops, "delete:"+key)
	return nil
}

func (m *MockClient) Rename(ctx context.Context, p, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["rename"]; err != nil {
		return err
	}

	oldKey, newKey := normKey(p), normKey(newPath)
	f, ok := m.files[oldKey]
	if !ok {
		return &models.TransportError{Kind: models.TransportNotFound, Op: "rename", Path: p, Err: fmt.Errorf("no such file")}
	}

	delete(m.files, oldKey)
	m.ensureParents(newKey)
	m.files[newKey] = f
	m.Ops = append(m.Ops, "rename:"+oldKey+"->"+newKey)
	return nil
}

func (m *MockClient) Mkdir(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail["mkdir"]; err != nil {
		return err
	}

	key := normKey(p)
	m.ensureParents(key)
	if _, ok := m.files[key]; !ok {
		m.files[key] = mockFile{isDir: true}
	}
	m.Ops = append(m.Ops, "mkdir:"+key)
	return nil
}

func (m *MockClient) Close() error { return nil }

func (m *MockClient) ensureParents(key string) {
	dir := path.Dir(key)
	for dir != "." && dir != "/" && dir != "" {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = mockFile{isDir: true}
		}
		dir = path.Dir(dir)
	}
}

func normKey(p string) string {
	return strings.Trim(strings.ReplaceAll(p, "\\", "/"), "/")
}

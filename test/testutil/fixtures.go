package testutil

import (
	"path"
	"testing"
	"time"
)

// FileFixture is one file in a fixture tree.
type FileFixture struct {
	Path    string
	Content string
	ModTime time.Time
}

// BasicTree returns a small folder tree used by the integration tests.
func BasicTree() []FileFixture {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return []FileFixture{
		{Path: "readme.md", Content: "# Notes\n", ModTime: base},
		{Path: "docs/plan.txt", Content: "week one\n", ModTime: base.Add(time.Minute)},
		{Path: "docs/archive/old.txt", Content: "done\n", ModTime: base.Add(2 * time.Minute)},
	}
}

// SeedLocal writes a fixture tree under a local root.
func SeedLocal(t *testing.T, root string, files []FileFixture) {
	t.Helper()
	for _, f := range files {
		WriteFile(t, root, f.Path, f.Content, f.ModTime)
	}
}

// SeedServer stores a fixture tree on the test server below prefix.
func SeedServer(s *DavServer, prefix string, files []FileFixture) {
	for _, f := range files {
		s.Seed(path.Join(prefix, f.Path), f.Content, f.ModTime)
	}
}

// Package testutil builds temporary repository trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Repo is a throwaway repository rooted in a test temp directory.
type Repo struct {
	Root string
	t    *testing.T
}

// NewRepo creates an empty repository under t.TempDir.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	return &Repo{Root: t.TempDir(), t: t}
}

// WriteFile creates path (relative, slash-separated) with content,
// creating parent directories as needed, and returns the absolute path.
func (r *Repo) WriteFile(path, content string) string {
	r.t.Helper()

	abs := filepath.Join(r.Root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", path, err)
	}
	return abs
}

// Touch shifts the file's mtime by d so mtime-validated caches see a
// change without rewriting content.
func (r *Repo) Touch(path string, d time.Duration) {
	r.t.Helper()

	abs := filepath.Join(r.Root, filepath.FromSlash(path))
	info, err := os.Stat(abs)
	if err != nil {
		r.t.Fatalf("stat %s: %v", path, err)
	}
	when := info.ModTime().Add(d)
	if err := os.Chtimes(abs, when, when); err != nil {
		r.t.Fatalf("chtimes %s: %v", path, err)
	}
}

// Package discover finds rankable source files in a repository.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"repomap/internal/lang"
)

// FileEntry represents a discovered source file. Path is relative to the
// repository root and slash-separated regardless of platform.
type FileEntry struct {
	Path     string
	AbsPath  string
	Language string
	Size     int64
	Mtime    int64 // unix nanoseconds
}

// Options controls discovery.
type Options struct {
	// Excludes are doublestar globs matched against the relative path.
	Excludes []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
	// IncludeTests keeps test files in the result set.
	IncludeTests bool
	// Overrides maps file extensions to registered language names.
	Overrides map[string]string
}

var skipDirs = map[string]struct{}{
	"__pycache__":   {},
	"node_modules":  {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	"venv":          {},
	".venv":         {},
	"build":         {},
	"dist":          {},
	"target":        {},
	"vendor":        {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
}

// Files discovers source files with a registered language under root.
// Tracked files come from git when available; otherwise a filesystem walk
// honoring .gitignore is used. Results are sorted by path.
func Files(ctx context.Context, root string, opts Options) ([]FileEntry, error) {
	gitFiles := gitLsFiles(ctx, root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		if isExcluded(rel, opts.Excludes) {
			return nil
		}
		if !opts.IncludeTests && IsTestFile(rel) {
			return nil
		}

		language := lang.ForExtension(filepath.Ext(name), opts.Overrides)
		if language == nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			return nil
		}

		results = append(results, FileEntry{
			Path:     rel,
			AbsPath:  path,
			Language: language.Name,
			Size:     info.Size(),
			Mtime:    info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	return results, nil
}

func isExcluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		matched, err := doublestar.Match(pattern, rel)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// IsTestFile reports whether a relative path looks like a test file.
func IsTestFile(path string) bool {
	if strings.HasSuffix(path, "_test.go") {
		return true
	}

	if strings.HasSuffix(path, ".test.ts") ||
		strings.HasSuffix(path, ".test.js") ||
		strings.HasSuffix(path, ".spec.ts") ||
		strings.HasSuffix(path, ".spec.js") {
		return true
	}

	base := filepath.Base(path)
	if strings.HasSuffix(path, "_test.py") || strings.HasPrefix(base, "test_") {
		return true
	}
	if strings.HasSuffix(base, "_spec.rb") {
		return true
	}

	slashed := "/" + path
	if strings.Contains(slashed, "/test/") ||
		strings.Contains(slashed, "/tests/") ||
		strings.Contains(slashed, "/testdata/") ||
		strings.Contains(slashed, "/__tests__/") ||
		strings.Contains(slashed, "/spec/") {
		return true
	}

	return false
}

func gitLsFiles(ctx context.Context, root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

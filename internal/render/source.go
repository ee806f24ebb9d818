// Package render turns ranked definition tags into the repository map
// text and searches for the largest prefix that fits a token budget.
package render

import (
	"os"
	"path/filepath"
	"strings"
)

// SourceProvider returns the lines of a repo-relative file, or nil when
// the file cannot be read.
type SourceProvider interface {
	Lines(path string) []string
}

// FileSource reads source lines from disk under a repository root,
// memoizing per file. One FileSource serves one generation pass and is
// not safe for concurrent use.
type FileSource struct {
	root  string
	cache map[string][]string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root, cache: make(map[string][]string)}
}

func (s *FileSource) Lines(path string) []string {
	if lines, ok := s.cache[path]; ok {
		return lines
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		s.cache[path] = nil
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	s.cache[path] = lines
	return lines
}

// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars and their embedded tag query files.
package lang

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

//go:embed queries/*.scm
var queryFS embed.FS

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string

	// Priority breaks ties when two languages claim the same extension;
	// higher wins.
	Priority int

	// QueryFile overrides the query file name when a grammar shares
	// another language's tag queries (tsx reuses typescript's).
	QueryFile string

	lang      *sitter.Language
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// TagQuery returns the compiled tag query (safe to share across goroutines).
func (l *Language) TagQuery() (*sitter.Query, error) {
	l.queryOnce.Do(func() {
		name := l.QueryFile
		if name == "" {
			name = l.Name
		}
		data, err := queryFS.ReadFile(fmt.Sprintf("queries/%s.scm", name))
		if err != nil {
			l.queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, l.lang)
		if err != nil {
			l.queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		l.query = q
	})
	return l.query, l.queryErr
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		names := make([]string, 0, len(Languages))
		for name := range Languages {
			names = append(names, name)
		}
		// Deterministic registration order so priority ties resolve the
		// same way on every run.
		sort.Strings(names)
		for _, name := range names {
			l := Languages[name]
			for _, ext := range l.Extensions {
				if prev, ok := extensionMap[ext]; ok && Languages[prev].Priority >= l.Priority {
					continue
				}
				extensionMap[ext] = name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language for a file extension (".py"), or nil
// if none is registered. overrides maps extensions to language names and
// is consulted first.
func ForExtension(ext string, overrides map[string]string) *Language {
	ext = strings.ToLower(ext)
	if overrides != nil {
		if name, ok := overrides[ext]; ok {
			return Languages[name]
		}
	}
	name, ok := getExtensionMap()[ext]
	if !ok {
		return nil
	}
	return Languages[name]
}

// SupportedExtensions returns all registered extensions, sorted.
func SupportedExtensions() []string {
	m := getExtensionMap()
	exts := make([]string, 0, len(m))
	for ext := range m {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// NodeText returns the source text of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

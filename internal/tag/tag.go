// Package tag defines the symbol occurrence model produced by extraction
// and consumed by the dependency graph and renderer.
package tag

import (
	"sort"
	"strings"
	"unicode"
)

// Kind distinguishes definitions from references.
type Kind string

const (
	// Definition marks a symbol being defined at this location
	Definition Kind = "definition"
	// Reference marks a symbol being used at this location
	Reference Kind = "reference"
)

// Style classifies the identifier naming convention.
type Style string

const (
	// SnakeStyle for snake_case or kebab-case identifiers
	SnakeStyle Style = "snake"
	// CamelStyle for camelCase or PascalCase identifiers
	CamelStyle Style = "camel"
	// OtherStyle for everything else
	OtherStyle Style = "other"
)

// Visibility classifies a symbol as public or private.
type Visibility string

const (
	// Public symbols are part of a file's outward surface
	Public Visibility = "public"
	// Private symbols use a leading-underscore convention
	Private Visibility = "private"
)

// Tag is a single symbol occurrence in a source file.
// (FilePath, Name, Kind, LineStart) is unique within one extraction pass.
type Tag struct {
	FilePath   string     `json:"filePath"`
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Role       string     `json:"role,omitempty"` // "function", "method", "class", "type", "call", ...
	LineStart  int        `json:"lineStart"`      // 1-indexed
	LineEnd    int        `json:"lineEnd"`
	Style      Style      `json:"style"`
	Visibility Visibility `json:"visibility"`
}

// FileTags is the per-file extraction record persisted in the tag cache.
type FileTags struct {
	Path        string `json:"path"`
	Mtime       int64  `json:"mtime"` // unix nanoseconds
	ContentHash string `json:"contentHash,omitempty"`
	Language    string `json:"language"`
	Tags        []Tag  `json:"tags"`
}

// ClassifyStyle reports the naming convention of an identifier.
func ClassifyStyle(name string) Style {
	if name == "" {
		return OtherStyle
	}
	inner := strings.Trim(name, "_")
	if strings.ContainsAny(inner, "_-") {
		return SnakeStyle
	}
	var hasLower, hasUpper bool
	for _, r := range name {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if hasLower && hasUpper {
		return CamelStyle
	}
	return OtherStyle
}

// ClassifyVisibility applies the leading-underscore convention shared by
// the supported languages.
func ClassifyVisibility(name string) Visibility {
	if strings.HasPrefix(name, "_") {
		return Private
	}
	return Public
}

// longNameThreshold is the minimum length for a name to count as a
// deliberate, structured identifier.
const longNameThreshold = 8

// IsLongStructured reports whether name is long enough and styled enough
// (snake, kebab or camel) to suggest a meaningful project identifier.
func IsLongStructured(name string) bool {
	if len(name) < longNameThreshold {
		return false
	}
	return ClassifyStyle(name) != OtherStyle
}

// New builds a Tag, deriving Style and Visibility from the name.
func New(filePath, name string, kind Kind, role string, lineStart, lineEnd int) Tag {
	return Tag{
		FilePath:   filePath,
		Name:       name,
		Kind:       kind,
		Role:       role,
		LineStart:  lineStart,
		LineEnd:    lineEnd,
		Style:      ClassifyStyle(name),
		Visibility: ClassifyVisibility(name),
	}
}

// SortByLocation orders tags by (FilePath, LineStart, Name, Kind) for
// deterministic output.
func SortByLocation(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool {
		a, b := tags[i], tags[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Kind < b.Kind
	})
}

// Dedup removes tags sharing (FilePath, Name, Kind, LineStart), keeping
// the first occurrence. Input order is preserved.
func Dedup(tags []Tag) []Tag {
	type key struct {
		path string
		name string
		kind Kind
		line int
	}
	seen := make(map[key]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		k := key{t.FilePath, t.Name, t.Kind, t.LineStart}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Definitions filters tags to definitions only.
func Definitions(tags []Tag) []Tag {
	var defs []Tag
	for _, t := range tags {
		if t.Kind == Definition {
			defs = append(defs, t)
		}
	}
	return defs
}

// References filters tags to references only.
func References(tags []Tag) []Tag {
	var refs []Tag
	for _, t := range tags {
		if t.Kind == Reference {
			refs = append(refs, t)
		}
	}
	return refs
}

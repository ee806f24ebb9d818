package render

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"repomap/internal/graph"
)

const (
	mapHeader = "Repository Structure and Code Map:"
	// maxLineLength caps every rendered source line.
	maxLineLength = 100
	lineEllipsis  = "..."
)

// Renderer formats ranked tags into map text, pulling source lines from
// the provider.
type Renderer struct {
	src SourceProvider
}

func NewRenderer(src SourceProvider) *Renderer {
	return &Renderer{src: src}
}

// Render builds the map text for the selected tags. Tags group by file;
// groups order by summed score descending with path as tie-break, and
// each group lists its tags' source lines in a fenced block, line order
// (LineStart, Name), duplicate lines collapsed. An empty selection
// renders as the empty string. Output is deterministic for a fixed
// selection and source state.
func (r *Renderer) Render(selected []graph.RankedTag) string {
	if len(selected) == 0 {
		return ""
	}

	type group struct {
		path  string
		score float64
		tags  []graph.RankedTag
	}
	byFile := make(map[string]*group)
	var groups []*group
	for _, t := range selected {
		g := byFile[t.FilePath]
		if g == nil {
			g = &group{path: t.FilePath}
			byFile[t.FilePath] = g
			groups = append(groups, g)
		}
		g.score += t.Score
		g.tags = append(g.tags, t)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].score != groups[j].score {
			return groups[i].score > groups[j].score
		}
		return groups[i].path < groups[j].path
	})

	var b strings.Builder
	b.WriteString(mapHeader)
	b.WriteString("\n")
	for _, g := range groups {
		sort.Slice(g.tags, func(i, j int) bool {
			if g.tags[i].LineStart != g.tags[j].LineStart {
				return g.tags[i].LineStart < g.tags[j].LineStart
			}
			return g.tags[i].Name < g.tags[j].Name
		})

		fmt.Fprintf(&b, "\n### %s (score: %.2f)\n```\n", g.path, g.score)
		lines := r.src.Lines(g.path)
		lastLine := 0
		for _, t := range g.tags {
			if t.LineStart == lastLine {
				continue
			}
			lastLine = t.LineStart
			b.WriteString(truncateLine(sourceLine(lines, t)))
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	fmt.Fprintf(&b, "\n--- %d symbols from %d files ---\n", len(selected), len(groups))
	return b.String()
}

// sourceLine picks the tag's line from the file, falling back to the
// symbol name when the file is unreadable or the line is out of range.
func sourceLine(lines []string, t graph.RankedTag) string {
	idx := t.LineStart - 1
	if idx < 0 || idx >= len(lines) {
		return t.Name
	}
	return strings.TrimRight(lines[idx], " \t\r")
}

func truncateLine(s string) string {
	if len(s) <= maxLineLength {
		return s
	}
	cut := maxLineLength - len(lineEllipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + lineEllipsis
}

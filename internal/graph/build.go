package graph

import (
	"math"
	"sort"
	"strings"

	"repomap/internal/tag"
)

const (
	// chatFileBoost multiplies edges whose referencing file is in chat.
	chatFileBoost = 50.0
	// mentionedBoost multiplies edges for identifiers named in the prompt.
	mentionedBoost = 10.0
	// longNameBoost multiplies edges for long, deliberately styled names.
	longNameBoost = 10.0
	// privateFactor dampens leading-underscore identifiers.
	privateFactor = 0.1
	// commonThreshold is the definer count above which an identifier is
	// treated as too generic to signal a real dependency.
	commonThreshold = 5
	commonFactor    = 0.1
)

// Build constructs the reference graph from per-file tags. Every input
// file becomes a node. Each (referencing file, identifier) pair yields at
// most one edge: to the same-file definition when one exists (skipped as
// a self-loop), otherwise to the lexicographically smallest defining
// file, otherwise to SinkNode. Edge weight is the identifier multiplier
// times the chat boost times sqrt of the reference count, so heavily
// repeated references grow sublinearly.
func Build(files []tag.FileTags, opts Options) *Graph {
	chatSet := toSet(opts.ChatFiles)
	mentionedIdents := toSet(opts.MentionedIdents)

	nodes := make(map[string]bool, len(files))
	defines := make(map[string]map[string]bool)
	refCounts := make(map[string]map[string]int)

	for _, f := range files {
		nodes[f.Path] = true
		for _, t := range f.Tags {
			switch t.Kind {
			case tag.Definition:
				set := defines[t.Name]
				if set == nil {
					set = make(map[string]bool)
					defines[t.Name] = set
				}
				set[f.Path] = true
			case tag.Reference:
				counts := refCounts[t.Name]
				if counts == nil {
					counts = make(map[string]int)
					refCounts[t.Name] = counts
				}
				counts[f.Path]++
			}
		}
	}

	g := &Graph{}
	sawSink := false

	for ident, counts := range refCounts {
		definers := defines[ident]
		base := identMultiplier(ident, len(definers), mentionedIdents)

		var target string
		if len(definers) > 0 {
			for def := range definers {
				if target == "" || def < target {
					target = def
				}
			}
		}

		for refFile, n := range counts {
			to := target
			switch {
			case len(definers) == 0:
				to = SinkNode
				sawSink = true
			case definers[refFile]:
				// Same-file resolution wins and would self-loop.
				continue
			}
			weight := base * math.Sqrt(float64(n))
			if chatSet[refFile] {
				weight *= chatFileBoost
			}
			g.Edges = append(g.Edges, Edge{From: refFile, To: to, Ident: ident, Weight: weight})
		}
	}

	if sawSink {
		nodes[SinkNode] = true
	}
	g.Nodes = make([]string, 0, len(nodes))
	for n := range nodes {
		g.Nodes = append(g.Nodes, n)
	}
	sort.Strings(g.Nodes)
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Ident < b.Ident
	})
	return g
}

// identMultiplier scores how strongly a reference to ident should pull
// rank toward its definition.
func identMultiplier(ident string, definers int, mentioned map[string]bool) float64 {
	m := 1.0
	if mentioned[ident] {
		m *= mentionedBoost
	}
	if tag.IsLongStructured(ident) {
		m *= longNameBoost
	}
	if strings.HasPrefix(ident, "_") {
		m *= privateFactor
	}
	if definers > commonThreshold {
		m *= commonFactor
	}
	return m
}

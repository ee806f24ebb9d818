package graph

import (
	"sort"

	"repomap/internal/tag"
)

// RankedTag pairs a definition tag with its distributed score.
type RankedTag struct {
	tag.Tag
	Score float64
}

// DistributeToTags projects node scores onto definition tags. Two
// contributions combine per (defining file, identifier): each
// referencing node splits its rank across its outgoing edges in
// proportion to edge weight, and the defining file splits its own rank
// evenly across the identifiers it defines. The second term keeps a
// boosted file's definitions above an unreferenced peer's even when the
// referencing side looks identical. Definitions nothing references still
// appear, carrying only their file's slice. The result is ordered by
// score descending, then (FilePath, LineStart, Name) for stable output.
func DistributeToTags(g *Graph, scores map[string]float64, files []tag.FileTags) []RankedTag {
	type defKey struct {
		file  string
		ident string
	}

	outEdges := make(map[string][]Edge, len(g.Nodes))
	outWeight := make(map[string]float64, len(g.Nodes))
	for _, e := range g.Edges {
		outEdges[e.From] = append(outEdges[e.From], e)
		outWeight[e.From] += e.Weight
	}

	shares := make(map[defKey]float64)
	for _, node := range g.Nodes {
		rank := scores[node]
		total := outWeight[node]
		if rank == 0 || total == 0 {
			continue
		}
		for _, e := range outEdges[node] {
			shares[defKey{file: e.To, ident: e.Ident}] += rank * e.Weight / total
		}
	}

	definedIdents := make(map[string]map[string]bool, len(files))
	for _, f := range files {
		for _, t := range f.Tags {
			if t.Kind != tag.Definition {
				continue
			}
			set := definedIdents[t.FilePath]
			if set == nil {
				set = make(map[string]bool)
				definedIdents[t.FilePath] = set
			}
			set[t.Name] = true
		}
	}

	var ranked []RankedTag
	for _, f := range files {
		slice := 0.0
		if n := len(definedIdents[f.Path]); n > 0 {
			slice = scores[f.Path] / float64(n)
		}
		for _, t := range f.Tags {
			if t.Kind != tag.Definition {
				continue
			}
			ranked = append(ranked, RankedTag{
				Tag:   t,
				Score: shares[defKey{file: t.FilePath, ident: t.Name}] + slice,
			})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.Name < b.Name
	})
	return ranked
}

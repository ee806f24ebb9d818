// Package graph builds a weighted reference graph over source files and
// ranks them with personalized PageRank. Nodes are repo-relative file
// paths; edges point from a referencing file to the file defining the
// referenced symbol.
package graph

// SinkNode collects references that resolve to no known definition.
// Routing them here instead of dropping them keeps rank mass flowing
// through the iteration.
const SinkNode = "(unresolved)"

// Edge is a weighted reference from one file to another, attributed to a
// single identifier. At most one edge exists per (From, To, Ident).
type Edge struct {
	From   string
	To     string
	Ident  string
	Weight float64
}

// Graph is a directed weighted multigraph over file paths. Nodes and
// Edges are sorted, so two builds over the same input are identical.
type Graph struct {
	Nodes []string
	Edges []Edge
}

// Options carries the request context that shapes edge weights and the
// personalization vector. Paths must be repo-relative slash paths,
// matching tag file paths.
type Options struct {
	ChatFiles       []string
	MentionedFiles  []string
	MentionedIdents []string
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

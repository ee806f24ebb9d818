package graph

import (
	"path"
	"strings"

	"repomap/internal/tag"
)

// personalizationCap bounds the per-node product before normalization.
// Stacked boosts can reach 50*10*10 otherwise, which drowns the rest of
// the vector after normalizing.
const personalizationCap = 1000.0

// Personalization maps node to teleport weight, normalized to sum 1.
type Personalization map[string]float64

// NewPersonalization builds the teleport vector for the given nodes.
// Every node starts at 1 and is scaled multiplicatively: chat membership
// x50, a mention of the file or of an identifier matching one of its
// path components x10, a long structured base name x10, a leading
// underscore x0.1. Products are capped, then the vector is normalized.
func NewPersonalization(nodes []string, opts Options) Personalization {
	if len(nodes) == 0 {
		return Personalization{}
	}
	chatSet := toSet(opts.ChatFiles)
	mentionedFiles := toSet(opts.MentionedFiles)
	mentionedIdents := toSet(opts.MentionedIdents)

	pers := make(Personalization, len(nodes))
	total := 0.0
	for _, node := range nodes {
		w := 1.0
		if chatSet[node] {
			w *= chatFileBoost
		}
		if mentionedFiles[node] || pathMatchesIdent(node, mentionedIdents) {
			w *= mentionedBoost
		}
		base := strings.TrimSuffix(path.Base(node), path.Ext(node))
		if tag.IsLongStructured(base) {
			w *= longNameBoost
		}
		if strings.HasPrefix(base, "_") {
			w *= privateFactor
		}
		if w > personalizationCap {
			w = personalizationCap
		}
		pers[node] = w
		total += w
	}
	for node := range pers {
		pers[node] /= total
	}
	return pers
}

// pathMatchesIdent reports whether any path component of node, or its
// base name with or without extension, is a mentioned identifier.
func pathMatchesIdent(node string, idents map[string]bool) bool {
	if len(idents) == 0 {
		return false
	}
	for _, part := range strings.Split(node, "/") {
		if idents[part] {
			return true
		}
	}
	base := path.Base(node)
	return idents[base] || idents[strings.TrimSuffix(base, path.Ext(base))]
}

// Package extract turns source files into definition and reference tags.
package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"repomap/internal/errors"
	"repomap/internal/lang"
	"repomap/internal/tag"
)

// File parses source with the language's tag query and returns its tags.
// Definitions carry the enclosing declaration's line span. Languages whose
// queries produce definitions but no references get lexical reference
// backfill so their files still participate in the dependency graph.
func File(ctx context.Context, relPath string, source []byte, language *lang.Language) ([]tag.Tag, error) {
	if len(source) == 0 {
		return nil, nil
	}

	query, err := language.TagQuery()
	if err != nil {
		return nil, errors.New(errors.ParseFailed, "tag query for "+language.Name, err).WithPath(relPath)
	}

	parser := language.NewParser()
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.New(errors.ParseFailed, "parse "+language.Name+" source", err).WithPath(relPath)
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var tags []tag.Tag
	sawDef := false
	sawRef := false

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		// Each pattern captures the symbol name as @name.<kind>.<role> and
		// optionally the enclosing declaration as @<kind>.<role>.
		var nameNode *sitter.Node
		var spanNode *sitter.Node
		var kind tag.Kind
		var role string

		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			switch {
			case strings.HasPrefix(cname, "name.definition."):
				nameNode = c.Node
				kind = tag.Definition
				role = strings.TrimPrefix(cname, "name.definition.")
			case strings.HasPrefix(cname, "name.reference."):
				nameNode = c.Node
				kind = tag.Reference
				role = strings.TrimPrefix(cname, "name.reference.")
			case strings.HasPrefix(cname, "definition.") || strings.HasPrefix(cname, "reference."):
				spanNode = c.Node
			}
		}

		if nameNode == nil {
			continue
		}
		if spanNode == nil {
			spanNode = nameNode
		}

		name := lang.NodeText(nameNode, source)
		if name == "" {
			continue
		}

		switch kind {
		case tag.Definition:
			sawDef = true
		case tag.Reference:
			sawRef = true
		}

		lineStart := int(nameNode.StartPoint().Row) + 1
		lineEnd := int(spanNode.EndPoint().Row) + 1
		tags = append(tags, tag.New(relPath, name, kind, role, lineStart, lineEnd))
	}

	if sawDef && !sawRef {
		tags = append(tags, lexicalReferences(relPath, source)...)
	}

	return tag.Dedup(tags), nil
}

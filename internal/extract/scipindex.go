package extract

import (
	"os"
	"path/filepath"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"repomap/internal/errors"
	"repomap/internal/tag"
)

// SCIPIndex is a loaded SCIP protobuf index reorganized for per-file tag
// lookup. Files covered by the index skip tree-sitter parsing entirely.
type SCIPIndex struct {
	byPath map[string][]tag.Tag
}

// LoadSCIPIndex reads and decodes a SCIP index file.
func LoadSCIPIndex(path string) (*SCIPIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.Internal, "read SCIP index", err).WithPath(path)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.New(errors.CacheCorruption, "decode SCIP index", err).WithPath(path)
	}

	idx := &SCIPIndex{byPath: make(map[string][]tag.Tag, len(index.Documents))}
	for _, doc := range index.Documents {
		idx.byPath[doc.RelativePath] = documentTags(doc)
	}
	return idx, nil
}

// TagsFor returns the tags recorded for a repository-relative path.
func (x *SCIPIndex) TagsFor(relPath string) ([]tag.Tag, bool) {
	tags, ok := x.byPath[relPath]
	return tags, ok
}

// Len returns the number of indexed documents.
func (x *SCIPIndex) Len() int {
	return len(x.byPath)
}

func documentTags(doc *scippb.Document) []tag.Tag {
	names := make(map[string]string, len(doc.Symbols))
	for _, sym := range doc.Symbols {
		if sym.DisplayName != "" {
			names[sym.Symbol] = sym.DisplayName
		}
	}

	var tags []tag.Tag
	for _, occ := range doc.Occurrences {
		if strings.HasPrefix(occ.Symbol, "local ") {
			continue
		}

		name := names[occ.Symbol]
		role := "symbol"
		if parsed, err := scippb.ParseSymbol(occ.Symbol); err == nil && len(parsed.Descriptors) > 0 {
			last := parsed.Descriptors[len(parsed.Descriptors)-1]
			if name == "" {
				name = last.Name
			}
			role = descriptorRole(last.Suffix)
		}
		if name == "" {
			continue
		}

		kind := tag.Reference
		if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
			kind = tag.Definition
		}

		lineStart, lineEnd := rangeLines(occ.Range)
		tags = append(tags, tag.New(doc.RelativePath, name, kind, role, lineStart, lineEnd))
	}

	return tag.Dedup(tags)
}

func descriptorRole(suffix scippb.Descriptor_Suffix) string {
	switch suffix {
	case scippb.Descriptor_Method:
		return "function"
	case scippb.Descriptor_Type:
		return "class"
	case scippb.Descriptor_Term:
		return "variable"
	case scippb.Descriptor_Macro:
		return "macro"
	default:
		return "symbol"
	}
}

// rangeLines interprets a SCIP occurrence range. Three elements encode
// [line, startChar, endChar] on a single line; four encode
// [startLine, startChar, endLine, endChar]. SCIP lines are zero-based.
func rangeLines(r []int32) (int, int) {
	switch {
	case len(r) == 3:
		return int(r[0]) + 1, int(r[0]) + 1
	case len(r) >= 4:
		return int(r[0]) + 1, int(r[2]) + 1
	default:
		return 1, 1
	}
}

// IndexPath resolves a configured index path against the repository root.
func IndexPath(repoRoot, configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(repoRoot, configPath)
}

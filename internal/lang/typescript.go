package lang

import (
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func init() {
	Languages["typescript"] = &Language{
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		Priority:   20,
		lang:       typescript.GetLanguage(),
	}
	// The tsx grammar is a superset; it shares typescript's tag queries.
	Languages["tsx"] = &Language{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		Priority:   20,
		QueryFile:  "typescript",
		lang:       tsx.GetLanguage(),
	}
}

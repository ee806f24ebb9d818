package extract

import (
	"regexp"
	"strings"

	"repomap/internal/tag"
)

var identRe = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\b`)

// lexicalKeywords are identifier-shaped words that carry no reference
// signal in any supported language.
var lexicalKeywords = map[string]struct{}{
	"async": {}, "await": {}, "begin": {}, "break": {}, "case": {},
	"catch": {}, "class": {}, "const": {}, "continue": {}, "default": {},
	"defer": {}, "elif": {}, "else": {}, "elsif": {}, "ensure": {},
	"enum": {}, "export": {}, "extends": {}, "false": {}, "final": {},
	"finally": {}, "float": {}, "func": {}, "function": {}, "import": {},
	"impl": {}, "interface": {}, "lambda": {}, "loop": {}, "match": {},
	"module": {}, "none": {}, "null": {}, "package": {}, "pass": {},
	"print": {}, "private": {}, "public": {}, "raise": {}, "range": {},
	"rescue": {}, "return": {}, "self": {}, "static": {}, "struct": {},
	"super": {}, "switch": {}, "this": {}, "throw": {}, "trait": {},
	"true": {}, "type": {}, "unless": {}, "until": {}, "void": {},
	"while": {}, "yield": {},
}

// Lexical is the degraded extractor for files without a registered
// grammar. It cannot tell definitions from references, so every
// identifier becomes a reference tag and the file contributes edges but
// no rankable definitions.
func Lexical(relPath string, source []byte) []tag.Tag {
	return tag.Dedup(lexicalReferences(relPath, source))
}

// lexicalReferences scans source line by line for identifier-shaped words
// and emits them as reference tags. Used when a language's query yields
// definitions only, so those files still contribute graph edges.
func lexicalReferences(relPath string, source []byte) []tag.Tag {
	var tags []tag.Tag

	for i, line := range strings.Split(string(source), "\n") {
		for _, name := range identRe.FindAllString(line, -1) {
			if len(name) <= 3 {
				continue
			}
			if _, skip := lexicalKeywords[strings.ToLower(name)]; skip {
				continue
			}
			tags = append(tags, tag.New(relPath, name, tag.Reference, "ident", i+1, i+1))
		}
	}

	return tags
}

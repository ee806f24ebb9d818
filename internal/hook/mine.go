package hook

import (
	"path/filepath"
	"regexp"
	"strings"

	"repomap/internal/lang"
)

var (
	pathLikeRe = regexp.MustCompile(`[\w./-]+\.[A-Za-z0-9]+`)
	identRe    = regexp.MustCompile(`\b[a-z][A-Za-z0-9_]{3,}\b`)
)

// minePaths pulls path-looking tokens with a registered source extension
// out of the prompt, in order of first appearance.
func minePaths(prompt string) []string {
	if prompt == "" {
		return nil
	}

	var paths []string
	seen := make(map[string]bool)
	for _, token := range pathLikeRe.FindAllString(prompt, -1) {
		ext := strings.ToLower(filepath.Ext(token))
		if lang.ForExtension(ext, nil) == nil {
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		paths = append(paths, token)
	}
	return paths
}

// mineIdents pulls identifier-looking words out of the prompt: longer
// than three characters, starting lowercase, in order of first
// appearance. Short words and capitalized sentence starts drop out.
func mineIdents(prompt string) []string {
	if prompt == "" {
		return nil
	}

	var idents []string
	seen := make(map[string]bool)
	for _, word := range identRe.FindAllString(prompt, -1) {
		if seen[word] {
			continue
		}
		seen[word] = true
		idents = append(idents, word)
	}
	return idents
}

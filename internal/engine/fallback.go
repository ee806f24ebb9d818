package engine

import (
	"fmt"
	"sort"
	"strings"

	"repomap/internal/discover"
)

// fallbackKeyFiles caps the discovered section of the fallback map.
const fallbackKeyFiles = 10

// fallbackMap is the minimal map served when ranking produced no
// definitions at all: the chat files, the mentioned files and the first
// discovered files, each group sorted.
func fallbackMap(req Request, files []discover.FileEntry) string {
	if len(req.ChatFiles) == 0 && len(req.MentionedFiles) == 0 && len(files) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Repository Map (Fallback Mode):\n\n")

	if len(req.ChatFiles) > 0 {
		b.WriteString("Files in current chat context:\n")
		for _, p := range sortedUnique(req.ChatFiles) {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(req.MentionedFiles) > 0 {
		b.WriteString("Recently mentioned files:\n")
		for _, p := range sortedUnique(req.MentionedFiles) {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(files) > 0 {
		fmt.Fprintf(&b, "Discovered %d source files in project.\n", len(files))
		b.WriteString("Key files:\n")
		for i, f := range files {
			if i >= fallbackKeyFiles {
				break
			}
			b.WriteString("- ")
			b.WriteString(f.Path)
			b.WriteByte('\n')
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

package engine

import (
	"sort"
	"strconv"
	"strings"

	"repomap/internal/cache"
)

// mapCacheVersion invalidates stored maps when ranking or rendering
// semantics change between releases.
const mapCacheVersion = 1

// requestSignature derives the map cache key from the request. Two calls
// with the same files, budget and mentions share one signature; list
// order never matters.
func requestSignature(req Request, maxTokens int) string {
	var b strings.Builder
	b.WriteString("chat=")
	b.WriteString(joinSorted(req.ChatFiles))
	b.WriteString("|other=")
	b.WriteString(joinSorted(req.OtherFiles))
	b.WriteString("|tokens=")
	b.WriteString(strconv.Itoa(maxTokens))
	b.WriteString("|fnames=")
	b.WriteString(joinSorted(req.MentionedFiles))
	b.WriteString("|idents=")
	b.WriteString(joinSorted(req.MentionedIdents))
	b.WriteString("|v=")
	b.WriteString(strconv.Itoa(mapCacheVersion))
	return cache.Signature(b.String())
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Package tokens estimates language-model token counts for rendered text.
// The estimate approximates a BPE tokenizer with word, newline and bracket
// counts; exact counting is the caller's concern if it needs one.
package tokens

import (
	"crypto/sha256"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Counter counts tokens in a text. The render optimizer accepts any
// Counter so tests can substitute exact counts.
type Counter interface {
	Count(text string) int
}

// estimatorCacheSize bounds the memo of repeated renderings seen during
// one binary search.
const estimatorCacheSize = 512

// Estimator is a heuristic Counter with memoization.
type Estimator struct {
	cache *lru.Cache[[32]byte, int]
}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator {
	cache, err := lru.New[[32]byte, int](estimatorCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &Estimator{cache: cache}
}

// Count estimates the token count of text.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}

	key := sha256.Sum256([]byte(text))
	if n, ok := e.cache.Get(key); ok {
		return n
	}

	n := estimate(text)
	e.cache.Add(key, n)
	return n
}

// estimate counts words, then adjusts for line breaks and brackets, which
// typical BPE vocabularies emit as separate tokens.
func estimate(text string) int {
	n := len(strings.Fields(text))
	n += strings.Count(text, "\n") / 4
	n += strings.Count(text, "{") + strings.Count(text, "}")
	n += strings.Count(text, "(") + strings.Count(text, ")")
	return n
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(text string) int

// Count implements Counter.
func (f CounterFunc) Count(text string) int {
	return f(text)
}

package render

import (
	"context"

	"repomap/internal/graph"
	"repomap/internal/tokens"
)

const (
	// budgetTolerance is the under-budget band that ends the search
	// early: a candidate within 15% of the budget is close enough.
	budgetTolerance = 0.15
	// tokensPerTagGuess seeds the first probe from the budget.
	tokensPerTagGuess = 25
	// safeTagLimit bounds the fallback prefix used when the context is
	// already gone and no search can run.
	safeTagLimit = 64
)

// Optimize binary-searches prefix lengths of ranked for the largest one
// whose rendering stays within maxTokens, counting with counter. Only
// fitting candidates are accepted, so growing the budget never shrinks
// the result. The search ends early once a candidate lands within the
// tolerance band under the budget. When nothing non-empty fits the
// result is 0. An expired context returns the best prefix found so far,
// or a fixed safe prefix when the search never ran.
func (r *Renderer) Optimize(ctx context.Context, ranked []graph.RankedTag, maxTokens int, counter tokens.Counter) int {
	lo, hi := 0, len(ranked)
	mid := maxTokens / tokensPerTagGuess
	if mid > hi {
		mid = hi
	}
	if mid < 0 {
		mid = 0
	}

	best, bestTokens := 0, 0
	for lo <= hi {
		if ctx.Err() != nil {
			if best > 0 {
				return best
			}
			return safePrefix(len(ranked))
		}

		n := counter.Count(r.Render(ranked[:mid]))
		if n <= maxTokens {
			if n > bestTokens || (n == bestTokens && mid > best) {
				best, bestTokens = mid, n
			}
			if float64(n) >= (1-budgetTolerance)*float64(maxTokens) {
				break
			}
			lo = mid + 1
		} else {
			hi = mid - 1
		}
		mid = (lo + hi) / 2
	}
	return best
}

func safePrefix(n int) int {
	if n > safeTagLimit {
		return safeTagLimit
	}
	return n
}

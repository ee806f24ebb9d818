package graph

import (
	"context"
	"math"
)

const (
	defaultDamping   = 0.85
	defaultMaxIter   = 100
	defaultTolerance = 1e-6
)

// RankOptions tunes the PageRank iteration. Zero values select the
// defaults.
type RankOptions struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// Rank runs personalized PageRank over g and returns a score per node.
// The teleport term follows pers; when pers is empty or sums to zero the
// teleport is uniform. Dangling nodes hand their mass out uniformly
// across all nodes each iteration, which keeps the total at 1. The loop
// stops after MaxIterations, when the L1 delta between iterations drops
// below Tolerance, or early when ctx expires, in which case the current
// vector is returned as a best effort.
func Rank(ctx context.Context, g *Graph, pers Personalization, opts RankOptions) map[string]float64 {
	damping := opts.Damping
	if damping == 0 {
		damping = defaultDamping
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = defaultMaxIter
	}
	tolerance := opts.Tolerance
	if tolerance == 0 {
		tolerance = defaultTolerance
	}

	n := len(g.Nodes)
	if n == 0 {
		return map[string]float64{}
	}

	idx := make(map[string]int, n)
	for i, node := range g.Nodes {
		idx[node] = i
	}

	teleport := make([]float64, n)
	total := 0.0
	for i, node := range g.Nodes {
		teleport[i] = pers[node]
		total += teleport[i]
	}
	if total <= 0 {
		for i := range teleport {
			teleport[i] = 1.0 / float64(n)
		}
	} else {
		for i := range teleport {
			teleport[i] /= total
		}
	}

	type outEdge struct {
		to     int
		weight float64
	}
	outEdges := make([][]outEdge, n)
	outWeight := make([]float64, n)
	for _, e := range g.Edges {
		from, okF := idx[e.From]
		to, okT := idx[e.To]
		if !okF || !okT || e.Weight <= 0 {
			continue
		}
		outEdges[from] = append(outEdges[from], outEdge{to: to, weight: e.Weight})
		outWeight[from] += e.Weight
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		if ctx.Err() != nil {
			break
		}

		danglingSum := 0.0
		for i := 0; i < n; i++ {
			if outWeight[i] == 0 {
				danglingSum += rank[i]
			}
		}
		base := damping * danglingSum / float64(n)
		for i := range next {
			next[i] = (1.0-damping)*teleport[i] + base
		}

		for i := 0; i < n; i++ {
			if outWeight[i] == 0 {
				continue
			}
			scale := damping * rank[i] / outWeight[i]
			for _, e := range outEdges[i] {
				next[e.to] += scale * e.weight
			}
		}

		diff := 0.0
		for i := range rank {
			diff += math.Abs(next[i] - rank[i])
		}
		copy(rank, next)
		if diff < tolerance {
			break
		}
	}

	scores := make(map[string]float64, n)
	for i, node := range g.Nodes {
		scores[node] = rank[i]
	}
	return scores
}

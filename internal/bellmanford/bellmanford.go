// Package bellmanford is the external collaborator spec §1 describes:
// it supplies a per-edge loop body and calls parallel_for with the
// default cutoff and complexity (range length) — it never reaches into
// the core's internals. It
// exists to exercise cstmt/fork2/parallel_for end-to-end (scenario S4)
// and is not a general relaxation-algorithm library.
package bellmanford

import (
	"context"
	"math"

	"go.uber.org/atomic"

	"granparallel/internal/granularity"
	"granparallel/internal/graph"
	"granparallel/internal/policy"
)

// ShortestPaths runs |V|-1 rounds of edge relaxation over g, each round
// driven through a single parallel_for so the chosen policy governs
// whether a round's edges are split across workers or walked in one
// sequential leaf. Distances are held as lock-free atomics and updated
// with a compare-and-swap retry loop, making every edge relaxation
// commutative with respect to concurrent relaxations of the same target
// vertex — required because parallel_for visits edges in no guaranteed
// order (spec §5 "Ordering").
func ShortestPaths(ctx context.Context, rt *granularity.Runtime, pol policy.Policy, g *graph.Graph, source int) []float64 {
	dist := make([]atomic.Float64, g.Vertices())
	for i := range dist {
		dist[i].Store(math.Inf(1))
	}
	dist[source].Store(0)

	edges := g.Edges()
	relax := func(_ context.Context, i int) {
		e := edges[i]
		for {
			du := dist[e.From].Load()
			if math.IsInf(du, 1) {
				return
			}
			candidate := du + e.Weight
			dv := dist[e.To].Load()
			if candidate >= dv {
				return
			}
			if dist[e.To].CompareAndSwap(dv, candidate) {
				return
			}
			// lost the race to a concurrent relaxation of the same
			// target; reload and retry with the new dv
		}
	}

	rounds := g.Vertices() - 1
	for round := 0; round < rounds; round++ {
		rt.ParallelForDefault(ctx, pol, 0, len(edges), relax)
	}

	out := make([]float64, g.Vertices())
	for i := range out {
		out[i] = dist[i].Load()
	}
	return out
}

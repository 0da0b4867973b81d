package granularity

import (
	"context"

	"granparallel/internal/cmeasure"
	"granparallel/internal/policy"
)

// DefaultLoopCutoff is the cutoff applied by ParallelForDefault: its cutoff
// predicate holds for ranges of 10000 or fewer indices. The predicate is
// handed to the loop policy, so only the cutoff shapes act on it.
const DefaultLoopCutoff = 10000

// ParallelFor recursively splits [lo, hi) at its midpoint, eagerly (the
// split happens before either half does any work) and binary (midpoint
// only). A leaf of fewer than two indices runs body linearly; once a leaf
// is committed sequential, the §4.2 combinator prevents any nested site
// from re-entering parallel. loopCutoff is consulted only by the two
// cutoff policy shapes; by-prediction instead always evaluates
// loopComplexity (see ParallelForByComplexity), and the two force shapes
// consult neither.
func (r *Runtime) ParallelFor(
	ctx context.Context,
	loopPolicy policy.Policy,
	loopCutoff func(lo, hi int) bool,
	loopComplexity func(lo, hi int) cmeasure.M,
	lo, hi int,
	body func(ctx context.Context, i int),
) {
	var rec func(ctx context.Context, lo, hi int)
	rec = func(ctx context.Context, lo, hi int) {
		if hi-lo < 2 {
			runRange(ctx, lo, hi, body)
			return
		}
		mid := lo + (hi-lo)/2
		r.Cstmt(ctx, Site{
			Policy: loopPolicy,
			Cutoff: func() bool { return loopCutoff(lo, hi) },
			Complexity: func() cmeasure.M {
				return loopComplexity(lo, hi)
			},
			Par: func(ctx context.Context) {
				r.Fork2(ctx,
					func(ctx context.Context) { rec(ctx, lo, mid) },
					func(ctx context.Context) { rec(ctx, mid, hi) },
				)
			},
			Seq: func(ctx context.Context) { runRange(ctx, lo, hi, body) },
		})
	}
	rec(ctx, lo, hi)
}

// ParallelForByComplexity omits the cutoff predicate: loopPolicy must be
// one that never consults it (by-prediction). This is the "complexity
// function only" convenience overload of spec §4.5.
func (r *Runtime) ParallelForByComplexity(
	ctx context.Context,
	loopPolicy policy.Policy,
	loopComplexity func(lo, hi int) cmeasure.M,
	lo, hi int,
	body func(ctx context.Context, i int),
) {
	noCutoff := func(lo, hi int) bool {
		panic("granularity: this policy requires a loop cutoff predicate")
	}
	r.ParallelFor(ctx, loopPolicy, noCutoff, loopComplexity, lo, hi, body)
}

// ParallelForDefault applies the spec's defaults: cutoff = hi-lo <=
// DefaultLoopCutoff, complexity = hi-lo.
func (r *Runtime) ParallelForDefault(
	ctx context.Context,
	loopPolicy policy.Policy,
	lo, hi int,
	body func(ctx context.Context, i int),
) {
	cutoff := func(lo, hi int) bool { return hi-lo <= DefaultLoopCutoff }
	complexity := func(lo, hi int) cmeasure.M { return cmeasure.Of(float64(hi - lo)) }
	r.ParallelFor(ctx, loopPolicy, cutoff, complexity, lo, hi, body)
}

func runRange(ctx context.Context, lo, hi int, body func(ctx context.Context, i int)) {
	for i := lo; i < hi; i++ {
		body(ctx, i)
	}
}

package granularity

import (
	"context"

	"github.com/sourcegraph/conc"

	"granparallel/internal/execmode"
)

// Fork2 runs f1 and f2 to completion before returning. Under Sequential or
// ForceSequential, or with sequential elision on, both run in the caller,
// in order. Otherwise f2 is
// submitted to the runtime's admission-controlled pool while f1 runs
// locally; if the pool has no free capacity, f2 also runs inline rather
// than blocking the caller on a slot (graceful degradation under
// saturation, matching the go-highway workerpool pattern of falling back
// to inline execution).
//
// Both children execute under a fresh push of the inherited mode, so
// nested decision sites combine against the correct caller mode. A panic
// in either body is caught, the sibling is still joined, and one panic is
// re-raised at the join point (f2's, when both bodies panic).
func (r *Runtime) Fork2(ctx context.Context, f1, f2 func(ctx context.Context)) {
	mode := execmode.Current(ctx)
	child := execmode.Push(ctx, mode)

	if r.sequentialElision || mode == execmode.Sequential || mode == execmode.ForceSequential {
		f1(child)
		f2(child)
		return
	}

	if !r.sem.TryAcquire(1) {
		f1(child)
		f2(child)
		return
	}

	r.forkedTasks.Inc()
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		defer r.sem.Release(1)
		f2(child)
	})
	// Deferred so a panic unwinding out of f1 still joins f2 before
	// propagating — the sibling must never be left running unjoined.
	defer wg.Wait() // re-panics with the child's panic, if any, after joining it
	f1(child)
}

// Package granularity is the decision site: it combines a policy object
// with the caller's execution mode to pick a body, threads the resulting
// mode through fork2 and parallel_for, and reports sequential-leaf timing
// back to the policy's estimator.
package granularity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"granparallel/internal/cmeasure"
	"granparallel/internal/estimator"
	"granparallel/internal/execmode"
	"granparallel/internal/policy"
)

// Runtime owns the resources a decision site needs beyond the policy
// object itself: the admission-control semaphore standing in for a
// work-stealing deque's capacity, the kappa threshold, the two build-mode
// toggles, and a logger for fatal configuration/invariant diagnostics.
type Runtime struct {
	sem *semaphore.Weighted

	kappa              time.Duration
	sequentialBaseline bool
	sequentialElision  bool

	logger *zap.SugaredLogger

	forkedTasks atomic.Int64 // diagnostic counter, surfaced by Stats
	leafLatency latencyStat  // diagnostic only; never consulted by cstmt
}

// Option configures a Runtime at construction time.
type Option func(*Runtime)

// WithKappa sets the kappa threshold used by by-prediction sites.
func WithKappa(kappa time.Duration) Option {
	return func(r *Runtime) { r.kappa = kappa }
}

// WithSequentialBaseline forces every cstmt (policies 3-5) to run its
// sequential body unconditionally, with no mode manipulation, matching
// the source's SEQUENTIAL_BASELINE build flag realized as a runtime
// toggle (spec §9).
func WithSequentialBaseline(on bool) Option {
	return func(r *Runtime) { r.sequentialBaseline = on }
}

// WithSequentialElision forces fork2 to run both children in the caller,
// in call order, without ever spawning — the SEQUENTIAL_ELISION toggle.
func WithSequentialElision(on bool) Option {
	return func(r *Runtime) { r.sequentialElision = on }
}

// WithLogger attaches a logger for fatal diagnostics. Defaults to a
// no-op logger if omitted.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runtime) { r.logger = l }
}

// NewRuntime builds a Runtime with a worker pool sized to proc (the
// number of concurrently in-flight fork2 right children; proc<=0 is
// clamped to 1).
func NewRuntime(proc int, opts ...Option) *Runtime {
	if proc <= 0 {
		proc = 1
	}
	r := &Runtime{
		sem:    semaphore.NewWeighted(int64(proc)),
		kappa:  defaultKappa,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const defaultKappa = 100 * time.Microsecond

// RootContext returns a context carrying the initial (Parallel, depth 0)
// execution mode, for use as the top-level ctx passed into the first
// cstmt/fork2/parallel_for call of a run.
func RootContext(parent context.Context) context.Context {
	return execmode.Root(parent)
}

// fatalf reports a configuration or runtime-invariant error: it is logged
// and returned as an error for the caller to surface. The core never
// os.Exit's on its own; that decision belongs to the host entry point.
func (r *Runtime) fatalf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	r.logger.Errorw("granularity: fatal", "detail", msg)
	return fmt.Errorf("granularity: %s", msg)
}

// Site bundles the inputs to a single cstmt decision (§4.3): a policy
// object, an optional cutoff predicate and complexity function, a
// parallel body, and an optional sequential body (defaults to the
// parallel body when nil). Go has no overload resolution on closure
// shape, so the source's six cstmt overloads collapse to this one
// struct-typed entry point, matched by a type switch on Policy.
type Site struct {
	Policy     policy.Policy
	Cutoff     func() bool
	Complexity func() cmeasure.M
	Par        func(ctx context.Context)
	Seq        func(ctx context.Context)
}

func (s Site) seqOrPar() func(ctx context.Context) {
	if s.Seq != nil {
		return s.Seq
	}
	return s.Par
}

// Cstmt is the central decision site. It never returns an error for a
// well-formed Site; missing Cutoff/Complexity required by the chosen
// policy is a runtime-invariant violation and panics, consistent with
// spec §7 treating programmer errors as unrecoverable aborts rather than
// values threaded back through algorithm code.
func (r *Runtime) Cstmt(ctx context.Context, s Site) {
	seq := s.seqOrPar()
	caller := execmode.Current(ctx)

	switch p := s.Policy.(type) {
	case *policy.ForceParallel:
		r.runAt(ctx, caller, execmode.ForceParallel, s.Par)

	case *policy.ForceSequential:
		r.runAt(ctx, caller, execmode.ForceSequential, seq)

	case *policy.CutoffWithoutReporting:
		if r.sequentialBaseline {
			seq(ctx)
			return
		}
		if s.Cutoff() {
			r.runAt(ctx, caller, execmode.Sequential, seq)
		} else {
			r.runAt(ctx, caller, execmode.Parallel, s.Par)
		}

	case *policy.CutoffWithReporting:
		if r.sequentialBaseline {
			seq(ctx)
			return
		}
		if s.Cutoff() {
			m := s.Complexity()
			r.runSequentialWithReporting(ctx, caller, p.Estimator, m, seq)
		} else {
			r.runAt(ctx, caller, execmode.Parallel, s.Par)
		}

	case *policy.ByPrediction:
		if r.sequentialBaseline {
			seq(ctx)
			return
		}
		m := s.Complexity()
		switch {
		case m.IsTiny():
			r.runSequentialWithReporting(ctx, caller, p.Estimator, m, seq)
		case m.IsUndefined():
			// Preserved verbatim per spec §9's open question: undefined
			// complexity always goes parallel, regardless of prior samples.
			r.runAt(ctx, caller, execmode.Parallel, s.Par)
		default:
			if p.Estimator.Predict(m) <= r.kappa {
				r.runSequentialWithReporting(ctx, caller, p.Estimator, m, seq)
			} else {
				r.runAt(ctx, caller, execmode.Parallel, s.Par)
			}
		}

	case *policy.ByCmdline:
		r.cstmtByCmdline(ctx, p, s)

	default:
		panic(fmt.Sprintf("granularity: unknown policy type %T", s.Policy))
	}
}

func (r *Runtime) cstmtByCmdline(ctx context.Context, p *policy.ByCmdline, s Site) {
	switch p.Get() {
	case policy.SelectorForceParallel:
		r.Cstmt(ctx, Site{Policy: p.ForceParallel, Par: s.Par, Seq: s.Seq})
	case policy.SelectorForceSequential:
		r.Cstmt(ctx, Site{Policy: p.ForceSequential, Par: s.Par, Seq: s.Seq})
	case policy.SelectorCutoffWithoutReporting:
		r.Cstmt(ctx, Site{Policy: p.CutoffWithoutReporting, Cutoff: s.Cutoff, Par: s.Par, Seq: s.Seq})
	case policy.SelectorCutoffWithReporting:
		r.Cstmt(ctx, Site{Policy: p.CutoffWithReporting, Cutoff: s.Cutoff, Complexity: s.Complexity, Par: s.Par, Seq: s.Seq})
	case policy.SelectorByPrediction:
		r.Cstmt(ctx, Site{Policy: p.ByPrediction, Complexity: s.Complexity, Par: s.Par, Seq: s.Seq})
	default:
		panic(fmt.Sprintf("granularity: bogus by-cmdline selector %q", p.Get()))
	}
}

func (r *Runtime) runAt(ctx context.Context, caller, requested execmode.Mode, body func(context.Context)) {
	e := execmode.Combine(caller, requested)
	body(execmode.Push(ctx, e))
}

func (r *Runtime) runSequentialWithReporting(ctx context.Context, caller execmode.Mode, est *estimator.Estimator, m cmeasure.M, seq func(context.Context)) {
	e := execmode.Combine(caller, execmode.Sequential)
	child := execmode.Push(ctx, e)
	start := time.Now()
	seq(child)
	elapsed := time.Since(start)
	est.Report(m, elapsed)
	r.leafLatency.add(float64(elapsed.Microseconds()))
}

// Package estimator maintains the online linear cost model that a
// reporting policy consults at each decision site: predicted time = K *
// complexity. K is a single shared constant, refined by exponential
// smoothing on every sequential-leaf sample and read with relaxed atomics
// — exactness is not required, convergence is (spec §5).
package estimator

import (
	"math"
	"time"

	"go.uber.org/atomic"

	"granparallel/internal/cmeasure"
)

// decay is the exponential-smoothing weight given to each new sample.
// Chosen at the middle of the [0.1, 0.3] range the specification leaves
// open (§9); it is the only free parameter in the update rule.
const decay = 0.2

// epsilon is the floor applied to a measured elapsed time of zero or
// negative duration (clock skew, coalesced timer ticks) before it is fed
// to the smoothing update, per the "timing anomaly" clause of the error
// handling design: clamp, never fail.
const epsilon = time.Nanosecond

// Estimator owns one shared constant K (seconds per unit of complexity).
// Safe for concurrent use; Report and Predict take no lock.
type Estimator struct {
	k           atomic.Float64
	initialized atomic.Bool
}

// New returns an Estimator with K uninitialized.
func New() *Estimator {
	return &Estimator{}
}

// Initialize seeds K directly, as if from a first sample with ratio c.
// Equivalent to SetInitConstant; both names are kept because the external
// interface (§4.1) exposes the operation under either spelling depending
// on call site (policy construction vs. explicit seeding).
func (e *Estimator) Initialize(c float64) {
	e.k.Store(c)
	e.initialized.Store(true)
}

// SetInitConstant is an alias of Initialize.
func (e *Estimator) SetInitConstant(c float64) { e.Initialize(c) }

// Report feeds a measured sample (complexity m, elapsed time t) into the
// smoothing update. Samples with m <= 0 cannot refine K (division by
// zero) and are silently ignored, per §4.1's "division by zero replaced
// by the current K".
func (e *Estimator) Report(m cmeasure.M, elapsed time.Duration) {
	if m.IsUndefined() {
		return
	}
	v := m.Value()
	if v <= 0 {
		return
	}
	if elapsed <= 0 {
		elapsed = epsilon
	}
	sample := elapsed.Seconds() / v
	if !e.initialized.CompareAndSwap(false, true) {
		prev := e.k.Load()
		e.k.Store(prev*(1-decay) + sample*decay)
		return
	}
	e.k.Store(sample)
}

// Predict returns K*m. If K has not yet been seeded by Initialize or a
// report sample, Predict returns +Inf for any finite positive m, which
// drives by-prediction sites to parallel until the first sample lands.
func (e *Estimator) Predict(m cmeasure.M) time.Duration {
	v := m.Value()
	if v <= 0 {
		return 0
	}
	if !e.initialized.Load() {
		return time.Duration(math.MaxInt64)
	}
	seconds := e.k.Load() * v
	if seconds >= float64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}

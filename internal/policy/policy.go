// Package policy implements the five granularity-control policy shapes
// (§4.6) plus the runtime-selectable multiplexer. Each shape is a distinct
// Go type rather than a single struct with a discriminant, so cstmt can
// dispatch by a type switch — the language-neutral rendering of the
// source's overload-resolution-on-lambda-shape design (spec §9).
package policy

import (
	"fmt"
	"sync"

	"granparallel/internal/estimator"
)

// Policy is the common handle every shape satisfies; it carries nothing
// the hot path needs (cstmt dispatches by concrete type), only the
// configuration-time operations every shape shares.
type Policy interface {
	// Name returns the diagnostic label the policy was constructed with.
	Name() string
}

// ForceParallel always requests the ForceParallel mode and runs the
// parallel body.
type ForceParallel struct{ name string }

func NewForceParallel(name string) *ForceParallel { return &ForceParallel{name: name} }
func (p *ForceParallel) Name() string             { return p.name }
func (p *ForceParallel) Initialize(float64)       {} // no estimator to seed

// ForceSequential always requests the ForceSequential mode and runs the
// sequential body.
type ForceSequential struct{ name string }

func NewForceSequential(name string) *ForceSequential { return &ForceSequential{name: name} }
func (p *ForceSequential) Name() string               { return p.name }
func (p *ForceSequential) Initialize(float64)         {}

// CutoffWithoutReporting picks sequential or parallel from a cutoff
// predicate alone; it owns no estimator and never reports a sample.
type CutoffWithoutReporting struct{ name string }

func NewCutoffWithoutReporting(name string) *CutoffWithoutReporting {
	return &CutoffWithoutReporting{name: name}
}
func (p *CutoffWithoutReporting) Name() string       { return p.name }
func (p *CutoffWithoutReporting) Initialize(float64) {}

// CutoffWithReporting picks sequential or parallel from a cutoff
// predicate, and on the sequential path times the body and reports the
// sample against its own estimator.
type CutoffWithReporting struct {
	name      string
	Estimator *estimator.Estimator
}

func NewCutoffWithReporting(name string) *CutoffWithReporting {
	return &CutoffWithReporting{name: name, Estimator: estimator.New()}
}
func (p *CutoffWithReporting) Name() string { return p.name }
func (p *CutoffWithReporting) Initialize(initCst float64) {
	p.Estimator.Initialize(initCst)
}

// ByPrediction compares the estimator's prediction for the site's
// complexity against the global kappa threshold.
type ByPrediction struct {
	name      string
	Estimator *estimator.Estimator
}

func NewByPrediction(name string) *ByPrediction {
	return &ByPrediction{name: name, Estimator: estimator.New()}
}
func (p *ByPrediction) Name() string { return p.name }
func (p *ByPrediction) Initialize(initCst float64) {
	p.Estimator.Initialize(initCst)
}

// Allowed selector strings for ByCmdline.Set, per spec §6.
const (
	SelectorForceParallel          = "by_force_parallel"
	SelectorForceSequential        = "by_force_sequential"
	SelectorCutoffWithoutReporting = "by_cutoff_without_reporting"
	SelectorCutoffWithReporting    = "by_cutoff_with_reporting"
	SelectorByPrediction           = "by_prediction"
)

// ByCmdline owns one instance of each of the five other shapes (two of
// them, CutoffWithReporting and ByPrediction, own an estimator), and a
// selector mutated only
// during policy configuration — never from a cstmt hot path.
type ByCmdline struct {
	name string

	mu       sync.RWMutex
	selector string

	ForceParallel          *ForceParallel
	ForceSequential        *ForceSequential
	CutoffWithoutReporting *CutoffWithoutReporting
	CutoffWithReporting    *CutoffWithReporting
	ByPrediction           *ByPrediction
}

// NewByCmdline constructs a multiplexer defaulting to by_prediction,
// matching the original control_by_cmdline's default constructor.
func NewByCmdline(name string) *ByCmdline {
	return &ByCmdline{
		name:                   name,
		selector:               SelectorByPrediction,
		ForceParallel:          NewForceParallel(name),
		ForceSequential:        NewForceSequential(name),
		CutoffWithoutReporting: NewCutoffWithoutReporting(name),
		CutoffWithReporting:    NewCutoffWithReporting(name),
		ByPrediction:           NewByPrediction(name),
	}
}

func (p *ByCmdline) Name() string { return p.name }

// Initialize seeds the two estimator-owning sub-policies, matching the
// original's control_by_cmdline::initialize.
func (p *ByCmdline) Initialize(initCst float64) {
	p.CutoffWithReporting.Initialize(initCst)
	p.ByPrediction.Initialize(initCst)
}

// Set reconfigures the active selector. Any value outside the enumerated
// set is a configuration error (fatal, per spec §7), reported before the
// worker pool starts rather than panicking from a hot path.
func (p *ByCmdline) Set(name string) error {
	switch name {
	case SelectorForceParallel, SelectorForceSequential,
		SelectorCutoffWithoutReporting, SelectorCutoffWithReporting,
		SelectorByPrediction:
		p.mu.Lock()
		p.selector = name
		p.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("policy: bogus policy %q", name)
	}
}

// Get returns the current selector.
func (p *ByCmdline) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selector
}

// SPDX-License-Identifier: MIT
// Package flash: functional configuration for the refinement loop.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - No dead switches: each knob impacts behavior and is covered by tests.
//   - Safe by construction: panic only on invalid parameters (programmer error).
//   - Options fields are unexported; public APIs consume ...Option.

package flash

import (
	"math"

	"github.com/katalvlaran/ebmf/ebnm"
)

// DEFAULTS - single source of truth for zero-value behavior.
const (
	// DefaultTol is the absolute objective-improvement threshold below which
	// an inner loop (and, per pass, the outer loop) stops.
	DefaultTol = 1e-6

	// DefaultMaxIter caps the number of outer passes over the selected terms.
	DefaultMaxIter = 100

	// DefaultMaxIterSingle caps the inner iterations spent on one term per
	// outer pass when Sequential mode is off.
	DefaultMaxIterSingle = 50

	// DefaultVarType assumes a single shared noise precision.
	DefaultVarType = VarConst
)

// Internal panic messages (no magic strings).
const (
	panicTolInvalid     = "flash: WithTol: tol must be finite, non-negative"
	panicIterInvalid    = "flash: WithMaxIter: cap must be positive"
	panicIterSglInvalid = "flash: WithMaxIterSingle: cap must be positive"
	panicSolverNil      = "flash: WithSolver: solver must be non-nil"
	panicTraceNil       = "flash: WithObjectiveTrace: destination must be non-nil"
)

// Option mutates internal options. Safe to apply repeatedly (last-writer-wins).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
// It is intentionally unexported-fields-only; public entry points accept
// ...Option and resolve them via gatherOptions.
type Options struct {
	kset       []int
	ksetSet    bool // distinguishes "default: all terms" from an explicit empty set
	varType    VarType
	tol        float64
	maxIter    int
	maxIterSgl int
	sequential bool
	solver     ebnm.Solver
	params     ebnm.Params
	trace      *[]float64
}

// WithKSet restricts refinement to the given term indices, in the given
// order. Indices are validated against the state inside Refine (not here,
// since the option does not know K). An explicitly empty set makes Refine a
// no-op; omitting the option selects all terms.
func WithKSet(kset ...int) Option {
	ks := append([]int(nil), kset...)

	return func(o *Options) {
		o.kset = ks
		o.ksetSet = true
	}
}

// WithVarType selects the residual variance structure (VarConst default).
func WithVarType(v VarType) Option {
	return func(o *Options) { o.varType = v }
}

// WithTol sets the absolute objective-improvement threshold.
// Panics when tol is negative, NaN or ±Inf (programmer error).
func WithTol(tol float64) Option {
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		panic(panicTolInvalid)
	}

	return func(o *Options) { o.tol = tol }
}

// WithMaxIter caps the outer passes. Panics on non-positive caps.
func WithMaxIter(n int) Option {
	if n <= 0 {
		panic(panicIterInvalid)
	}

	return func(o *Options) { o.maxIter = n }
}

// WithMaxIterSingle caps the inner iterations per term per pass.
// Ignored in Sequential mode. Panics on non-positive caps.
func WithMaxIterSingle(n int) Option {
	if n <= 0 {
		panic(panicIterSglInvalid)
	}

	return func(o *Options) { o.maxIterSgl = n }
}

// WithSequential updates every selected term exactly once per outer pass
// instead of iterating each term to its own fixed point first.
func WithSequential() Option {
	return func(o *Options) { o.sequential = true }
}

// WithSolver plugs a normal-means solver capability into the loop.
// Panics on nil (programmer error).
func WithSolver(s ebnm.Solver) Option {
	if s == nil {
		panic(panicSolverNil)
	}

	return func(o *Options) { o.solver = s }
}

// WithSolverParams forwards parameters to every solver invocation.
func WithSolverParams(p ebnm.Params) Option {
	return func(o *Options) { o.params = p }
}

// WithObjectiveTrace appends every inner-iteration objective value to *dst,
// in evaluation order. Intended for convergence assessment and tests.
// Panics on nil destination (programmer error).
func WithObjectiveTrace(dst *[]float64) Option {
	if dst == nil {
		panic(panicTraceNil)
	}

	return func(o *Options) { o.trace = dst }
}

// defaultOptions returns the documented defaults (single source of truth).
func defaultOptions() Options {
	return Options{
		varType:    DefaultVarType,
		tol:        DefaultTol,
		maxIter:    DefaultMaxIter,
		maxIterSgl: DefaultMaxIterSingle,
		solver:     ebnm.SolvePointNormal,
		params:     ebnm.DefaultParams(),
	}
}

// gatherOptions applies user-provided setters on top of defaults.
// Last-writer-wins; no derived invariants beyond the defaults themselves.
func gatherOptions(user ...Option) Options {
	o := defaultOptions()
	for _, set := range user {
		set(&o)
	}

	return o
}

// SPDX-License-Identifier: MIT
// Package ebnm: solver capability type, Result/Prior/Params records and
// documented defaults (single source of truth).

package ebnm

// Family identifies the parametric prior family fitted by a solver.
type Family int

const (
	// FamilyNormal is a zero-mean normal prior N(0, s²).
	FamilyNormal Family = iota

	// FamilyPointNormal is a spike-and-slab prior π0·δ0 + (1−π0)·N(0, s²).
	FamilyPointNormal
)

// String returns the canonical family name.
func (f Family) String() string {
	switch f {
	case FamilyNormal:
		return "normal"
	case FamilyPointNormal:
		return "point_normal"
	default:
		return "unknown"
	}
}

// Prior is the prior fitted by a solver. Consumers that only orchestrate
// solves (package flash) treat it as an opaque tagged value: they persist it
// in their state but never inspect its fields.
type Prior struct {
	// Family tags which parametric family the parameters belong to.
	Family Family

	// Pi0 is the point-mass weight at zero. Always 0 for FamilyNormal.
	Pi0 float64

	// SD is the slab standard deviation.
	SD float64
}

// Result is the output of one normal-means solve.
type Result struct {
	// PosteriorMean holds E[θ_j | x, g], one entry per observation.
	PosteriorMean []float64

	// PosteriorSecondMoment holds E[θ_j² | x, g], one entry per observation.
	PosteriorSecondMoment []float64

	// Prior is the fitted prior g.
	Prior Prior

	// LogLik is the penalized marginal log-likelihood log p(x | ĝ).
	LogLik float64
}

// Solver is the pluggable normal-means capability consumed by package flash.
// Implementations must be deterministic and side-effect-free.
type Solver func(obs, se []float64, p Params) (Result, error)

// Documented defaults for Params (single source of truth).
const (
	// DefaultOptTol is the absolute tolerance of the golden-section searches
	// used to fit prior parameters.
	DefaultOptTol = 1e-8

	// DefaultOptMaxIter caps every golden-section search.
	DefaultOptMaxIter = 200
)

// Params configures prior fitting. The zero value is NOT usable; obtain a
// baseline via DefaultParams and override selectively.
type Params struct {
	// OptTol is the absolute convergence tolerance of parameter searches.
	OptTol float64

	// OptMaxIter caps the iterations of every parameter search.
	OptMaxIter int

	// FixSD pins the slab standard deviation instead of fitting it when > 0.
	// Useful for benchmarking against a known generative model.
	FixSD float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		OptTol:     DefaultOptTol,
		OptMaxIter: DefaultOptMaxIter,
	}
}

// normalized returns p with zero-valued knobs replaced by defaults, so that a
// caller passing a partially filled Params still gets sane behavior.
func (p Params) normalized() Params {
	if p.OptTol <= 0 {
		p.OptTol = DefaultOptTol
	}
	if p.OptMaxIter <= 0 {
		p.OptMaxIter = DefaultOptMaxIter
	}

	return p
}

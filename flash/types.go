// SPDX-License-Identifier: MIT
// Package flash: factorization state records.
//
// The state is an explicit record-of-vectors per rank-1 term. Refine takes
// exclusive mutable access to the terms selected by WithKSet for the duration
// of one call; terms outside the selection are read-only background whose
// contribution is folded into the residual matrices. K, n and p are fixed for
// the lifetime of a State: Refine only re-estimates existing terms, it never
// creates or destroys them.

package flash

import (
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/ebmf/ebnm"
)

// VarType selects the residual variance structure used when re-estimating
// the noise precision from the expected squared residuals.
type VarType int

const (
	// VarConst assumes one shared precision across the whole matrix.
	VarConst VarType = iota

	// VarByColumn assumes one precision per column.
	VarByColumn
)

// String returns the canonical variance-structure name.
func (v VarType) String() string {
	switch v {
	case VarConst:
		return "constant"
	case VarByColumn:
		return "by_column"
	default:
		return "unknown"
	}
}

// Term is one rank-1 component of the factorization: the outer product of a
// loading (length n, indexes rows) and a factor (length p, indexes columns),
// each carried as a posterior mean plus posterior second moment.
type Term struct {
	// L and L2 are the loading posterior mean and second moment (length n).
	L, L2 []float64

	// F and F2 are the factor posterior mean and second moment (length p).
	F, F2 []float64

	// FixedL and FixedF mark entries excluded from re-estimation. A nil mask
	// means every entry is free. Fixed entries are never overwritten.
	FixedL, FixedF []bool

	// KLL and KLF are the KL-divergence corrections of the loading and
	// factor posteriors, accumulated into the global objective.
	KLL, KLF float64

	// PriorL and PriorF are the fitted priors of the two sides. flash stores
	// whatever the solver returned and never inspects them.
	PriorL, PriorF ebnm.Prior
}

// NewTerm allocates a zero term of the given shape with no fixed entries.
// Second moments start at zero too: callers initializing from a coarse fit
// should set L2 = L⊙L and F2 = F⊙F (see package chunk).
func NewTerm(n, p int) *Term {
	return &Term{
		L:  make([]float64, n),
		L2: make([]float64, n),
		F:  make([]float64, p),
		F2: make([]float64, p),
	}
}

// Clone returns a deep copy of the term.
func (t *Term) Clone() *Term {
	if t == nil {
		return nil
	}
	c := &Term{KLL: t.KLL, KLF: t.KLF, PriorL: t.PriorL, PriorF: t.PriorF}
	c.L = append([]float64(nil), t.L...)
	c.L2 = append([]float64(nil), t.L2...)
	c.F = append([]float64(nil), t.F...)
	c.F2 = append([]float64(nil), t.F2...)
	if t.FixedL != nil {
		c.FixedL = append([]bool(nil), t.FixedL...)
	}
	if t.FixedF != nil {
		c.FixedF = append([]bool(nil), t.FixedF...)
	}

	return c
}

// State is the full factorization state handed to Refine: the K rank-1 terms
// plus the artifacts of the last refinement (final precision and the solver
// configuration that produced the posteriors).
type State struct {
	// Terms holds the K rank-1 components, index 0..K-1.
	Terms []*Term

	// Tau is the n×p noise precision stored by the last Refine call
	// (zero at missing entries). Nil until Refine has run.
	Tau *mat.Dense

	// Var is the variance structure used by the last Refine call.
	Var VarType

	// Solver and Params record the EB-solver configuration used by the last
	// Refine call.
	Solver ebnm.Solver
	Params ebnm.Params
}

// NewState assembles a State from pre-initialized terms.
func NewState(terms ...*Term) *State {
	return &State{Terms: terms}
}

// Clone returns a deep copy of the state. Tau is copied when present; the
// Solver reference is shared (solvers are stateless by contract).
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{Var: s.Var, Solver: s.Solver, Params: s.Params}
	c.Terms = make([]*Term, len(s.Terms))
	for k, t := range s.Terms {
		c.Terms[k] = t.Clone()
	}
	if s.Tau != nil {
		c.Tau = mat.DenseCopyOf(s.Tau)
	}

	return c
}

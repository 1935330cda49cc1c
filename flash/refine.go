// SPDX-License-Identifier: MIT
// Package flash: the multi-factor refinement loop (block-coordinate
// variational ascent).
//
// Algorithm outline:
//  1. Build the working residuals: R2 (expected squared residuals over the
//     full fit) and Rk (mean residual excluding the first selected term),
//     and seed the KL total from the terms' stored corrections.
//  2. Outer loop over passes, while the previous pass changed at least one
//     term AND improved the objective by more than tol AND the pass cap
//     is not exhausted. For each selected term k in order:
//     a. Shift Rk so it excludes k instead of the previously visited term
//     (exact rank-1 identity, no recomputation).
//     b. Inner loop (once in Sequential mode, else until the objective stops
//     improving by more than tol or the per-term cap is hit):
//     – re-estimate the precision from R2;
//     – solve the factor side, then the loading side, each as a
//     normal-means problem built from Rk and the precision;
//     – fold the old→new change of term k into R2 (rank-1 identity);
//     – recompute the objective (KL total + expected log-likelihood).
//  3. Store the final precision and solver configuration into the state.
//
// Bootstrapping rule: the very first post-update objective has no trusted
// predecessor, so its inner-loop difference is treated as +Inf (the first
// term always gets a second look) and never feeds the outer continuation
// test. The pass deltas themselves compare against the true objective of the
// incoming state, evaluated once before the outer loop, so pass 1 is graded
// on real improvement like every later pass.

package flash

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/ebmf/ebnm"
)

// side selects which half of a term an update touches.
type side int

const (
	sideFactor side = iota
	sideLoading
)

// Refine runs the multi-factor refinement loop on st in place.
//
// Inputs:
//   - y:       observed n×p matrix. Never mutated.
//   - missing: row-major n·p mask, true = missing; nil = fully observed.
//     Never mutated.
//   - st:      initialized factorization state; the terms selected by
//     WithKSet are refined, the rest are read-only background.
//   - opts:    WithKSet, WithVarType, WithTol, WithMaxIter,
//     WithMaxIterSingle, WithSequential, WithSolver,
//     WithSolverParams, WithObjectiveTrace.
//
// Behavior highlights:
//   - Deterministic for a deterministic solver; no sampling anywhere.
//   - Fixed entries are never overwritten; a side whose update set is empty
//     or whose posterior variances all degenerate is skipped silently.
//   - Exhausting the iteration caps is NOT an error: the best state reached
//     is returned and convergence assessment is left to the caller.
//
// Errors:
//   - ErrNilMatrix / ErrNilState / ErrNoTerms / ErrDimensionMismatch /
//     ErrTermOutOfRange on precondition violations (fail fast, state
//     untouched).
//   - ErrSolverFailure (wrapping the cause) if the pluggable solver errors.
//
// Complexity: O(maxiter · |kset| · maxiter_single_fl · n·p) time,
// O(n·p) extra space.
func Refine(y *mat.Dense, missing []bool, st *State, opts ...Option) error {
	o := gatherOptions(opts...)
	if err := validateInputs(y, missing, st, o.kset); err != nil {
		return flashErrorf(opRefine, err)
	}

	kset := o.kset
	if !o.ksetSet {
		kset = make([]int, len(st.Terms))
		for k := range kset {
			kset[k] = k
		}
	}
	if len(kset) == 0 {
		// Explicit empty selection: the call is a no-op by contract.
		return nil
	}

	n, p := y.Dims()
	yw := observedCopy(y, missing)
	r2 := recomputeR2(yw, st, n, p)
	rk := residualExcluding(yw, st, kset[0], n, p)
	kl := klTotal(st)

	// Snapshot buffers reused across inner iterations.
	oldL := make([]float64, n)
	oldL2 := make([]float64, n)
	oldF := make([]float64, p)
	oldF2 := make([]float64, p)

	// The objective of the incoming state is the baseline the first pass is
	// graded against.
	tau := estimateTau(r2, missing, n, p, o.varType)
	obj := kl + expectedLogLik(r2, missing, tau, n, p)
	bootstrapped := false
	changed := true
	passDelta := math.Inf(1)

	// prev persists across passes: at the top of pass ≥ 2 the exclusion must
	// shift from the previous pass's last term to the new pass's first term.
	prev := -1
	for iter := 0; iter < o.maxIter && changed && passDelta > o.tol; iter++ {
		changed = false
		passStart := obj

		for _, k := range kset {
			if prev >= 0 && prev != k {
				shiftExcluded(rk, st.Terms[prev], st.Terms[k], n, p)
			}

			innerCap := o.maxIterSgl
			if o.sequential {
				innerCap = 1
			}

			t := st.Terms[k]
			innerPrev := obj
			for it := 0; it < innerCap; it++ {
				tau = estimateTau(r2, missing, n, p, o.varType)

				copy(oldL, t.L)
				copy(oldL2, t.L2)
				copy(oldF, t.F)
				copy(oldF2, t.F2)

				chF, dKLF, err := updateSide(t, sideFactor, rk, &tau, missing, n, p, &o)
				if err != nil {
					return flashErrorf(opRefine, err)
				}
				chL, dKLL, err := updateSide(t, sideLoading, rk, &tau, missing, n, p, &o)
				if err != nil {
					return flashErrorf(opRefine, err)
				}

				if chF || chL {
					changed = true
					kl += dKLF + dKLL
					applyRankOneR2(r2, rk, oldL, oldL2, oldF, oldF2, t, n, p)
				}

				newObj := kl + expectedLogLik(r2, missing, tau, n, p)
				if o.trace != nil {
					*o.trace = append(*o.trace, newObj)
				}

				diff := newObj - innerPrev
				if !bootstrapped {
					// The very first comparison is exempt by convention: the
					// difference counts as infinite so the term gets a second
					// look, without ever reaching the outer continuation test.
					diff = math.Inf(1)
					bootstrapped = true
				}
				innerPrev = newObj
				obj = newObj

				if diff <= o.tol {
					break
				}
			}
			prev = k
		}
		passDelta = obj - passStart
	}

	st.Tau = expandTau(tau, missing, n, p)
	st.Var = o.varType
	st.Solver = o.solver
	st.Params = o.params

	return nil
}

// updateSide re-solves one side of a term as a normal-means problem.
//
// For the factor side the pseudo-observations follow the closed-form
// Bayesian-regression sufficient statistics (loading side is symmetric):
//
//	s²_j = 1 / Σ_i L2[i]·tau_ij
//	x_j  = s²_j · Σ_i L[i]·Rk_ij·tau_ij
//
// restricted to non-fixed entries with a finite positive s². If the
// restriction is empty (all entries fixed, or every posterior variance
// degenerate) the side is skipped and stored values stay in place.
//
// Returns whether the side changed, the KL-total delta it contributed, and
// a wrapped ErrSolverFailure if the pluggable solver errored.
func updateSide(t *Term, s side, rk []float64, tau *precisionField, missing []bool, n, p int, o *Options) (bool, float64, error) {
	var (
		mean, second []float64
		fixed        []bool
		size         int
	)
	if s == sideFactor {
		mean, second, fixed, size = t.F, t.F2, t.FixedF, p
	} else {
		mean, second, fixed, size = t.L, t.L2, t.FixedL, n
	}

	num, denom := sideStats(rk, tau, missing, n, p, t, s)

	idxs := make([]int, 0, size)
	obs := make([]float64, 0, size)
	ses := make([]float64, 0, size)
	for j := 0; j < size; j++ {
		if fixed != nil && fixed[j] {
			continue
		}
		d := denom[j]
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		s2 := 1 / d
		if math.IsInf(s2, 0) {
			continue
		}
		idxs = append(idxs, j)
		obs = append(obs, num[j]*s2)
		ses = append(ses, math.Sqrt(s2))
	}
	if len(idxs) == 0 {
		return false, 0, nil
	}

	res, err := o.solver(obs, ses, o.params)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %w", ErrSolverFailure, err)
	}
	ell, err := ebnm.ExpectedLogLik(obs, ses, res.PosteriorMean, res.PosteriorSecondMoment)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %w", ErrSolverFailure, err)
	}
	newKL := res.LogLik - ell

	for i, j := range idxs {
		mean[j] = res.PosteriorMean[i]
		second[j] = res.PosteriorSecondMoment[i]
	}

	var dKL float64
	if s == sideFactor {
		dKL = newKL - t.KLF
		t.KLF = newKL
		t.PriorF = res.Prior
	} else {
		dKL = newKL - t.KLL
		t.KLL = newKL
		t.PriorL = res.Prior
	}

	return true, dKL, nil
}

// sideStats accumulates both sides' sufficient statistics with a single
// row-major sweep over Rk: one orientation of the loop body serves the
// factor update directly and the loading update by swapping the roles of
// the row and column indices (no transposed copy is materialized).
func sideStats(rk []float64, tau *precisionField, missing []bool, n, p int, t *Term, s side) (num, denom []float64) {
	size := p
	othMean, othSecond := t.L, t.L2
	if s == sideLoading {
		size = n
		othMean, othSecond = t.F, t.F2
	}
	num = make([]float64, size)
	denom = make([]float64, size)

	for i := 0; i < n; i++ {
		base := i * p
		for j := 0; j < p; j++ {
			idx := base + j
			if missing != nil && missing[idx] {
				continue
			}
			w := tau.at(j)
			if w == 0 {
				continue
			}
			if s == sideFactor {
				denom[j] += othSecond[i] * w
				num[j] += othMean[i] * rk[idx] * w
			} else {
				denom[i] += othSecond[j] * w
				num[i] += othMean[j] * rk[idx] * w
			}
		}
	}

	return num, denom
}

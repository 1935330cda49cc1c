// SPDX-License-Identifier: MIT
// Package flash: residual bookkeeping.
//
// Two residual matrices are maintained during refinement, both flat
// row-major buffers of length n·p:
//
//	R2  — expected squared residuals under the CURRENT posteriors:
//	      R2_ij = (Y_ij − Σ_k L_k[i]·F_k[j])² + Σ_k (L2_k[i]·F2_k[j] − (L_k[i]·F_k[j])²)
//	Rk  — the mean residual with one term excluded:
//	      Rk_ij = Y_ij − Σ_{m≠k} L_m[i]·F_m[j]
//
// Inside the loop both are updated by exact rank-1 algebraic identities
// (shiftExcluded, applyRankOneR2); the from-scratch paths below serve
// initialization and the consistency tests. Missing entries of Y are zeroed
// in the working copy; they never contribute because their precision is zero.

package flash

import "gonum.org/v1/gonum/mat"

// observedCopy flattens y row-major and zeroes missing entries, so residual
// algebra never reads unobserved data.
func observedCopy(y *mat.Dense, missing []bool) []float64 {
	n, p := y.Dims()
	raw := y.RawMatrix()
	yw := make([]float64, n*p)
	for i := 0; i < n; i++ {
		copy(yw[i*p:(i+1)*p], raw.Data[i*raw.Stride:i*raw.Stride+p])
	}
	if missing != nil {
		for idx, m := range missing {
			if m {
				yw[idx] = 0
			}
		}
	}

	return yw
}

// recomputeR2 builds the expected squared residual matrix from scratch.
// Reference path: O(K·n·p); the loop itself only ever uses rank-1 updates.
func recomputeR2(yw []float64, st *State, n, p int) []float64 {
	r2 := make([]float64, n*p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			idx := i*p + j
			mean := yw[idx]
			variance := 0.0
			for _, t := range st.Terms {
				a := t.L[i] * t.F[j]
				mean -= a
				variance += t.L2[i]*t.F2[j] - a*a
			}
			r2[idx] = mean*mean + variance
		}
	}

	return r2
}

// residualExcluding builds the mean residual with term excl left out.
func residualExcluding(yw []float64, st *State, excl, n, p int) []float64 {
	rk := make([]float64, n*p)
	copy(rk, yw)
	for k, t := range st.Terms {
		if k == excl {
			continue
		}
		for i := 0; i < n; i++ {
			li := t.L[i]
			if li == 0 {
				continue
			}
			row := rk[i*p : (i+1)*p]
			for j := 0; j < p; j++ {
				row[j] -= li * t.F[j]
			}
		}
	}

	return rk
}

// shiftExcluded moves the exclusion of rk from term prev to term next:
// Rk ← Rk − outer(L_prev, F_prev) + outer(L_next, F_next).
func shiftExcluded(rk []float64, prev, next *Term, n, p int) {
	for i := 0; i < n; i++ {
		lp, ln := prev.L[i], next.L[i]
		row := rk[i*p : (i+1)*p]
		for j := 0; j < p; j++ {
			row[j] += -lp*prev.F[j] + ln*next.F[j]
		}
	}
}

// applyRankOneR2 folds the old→new change of one term into R2 using the
// identity R2 = C + Rk² − 2·Rk⊙(L⊗F) + L2⊗F2 (C gathers the contributions
// of the unchanged terms):
//
//	R2 += 2·Rk⊙(L_old⊗F_old) − L2_old⊗F2_old − 2·Rk⊙(L_new⊗F_new) + L2_new⊗F2_new
//
// rk must be the residual excluding this very term, which is exactly the
// state the loop maintains when the update fires.
func applyRankOneR2(r2, rk []float64, oldL, oldL2, oldF, oldF2 []float64, t *Term, n, p int) {
	for i := 0; i < n; i++ {
		lo, lo2 := oldL[i], oldL2[i]
		ln, ln2 := t.L[i], t.L2[i]
		base := i * p
		for j := 0; j < p; j++ {
			idx := base + j
			r2[idx] += 2*rk[idx]*(lo*oldF[j]-ln*t.F[j]) - lo2*oldF2[j] + ln2*t.F2[j]
		}
	}
}

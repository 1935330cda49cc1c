// SPDX-License-Identifier: MIT
// Package flash: the variational objective.
//
// F_obj = Σ_k (KL_k^loading + KL_k^factor) + E[log p(Y | fit, tau)]
//
// The expected data log-likelihood runs over observed entries only:
//
//	−½ · Σ_(i,j observed) ( log(2π / tau_ij) + tau_ij · R2_ij )
//
// Entries whose precision degenerated to zero contribute nothing, which also
// covers the fully-missing matrix: the likelihood term is exactly 0 and the
// objective reduces to the KL total.

package flash

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// expectedLogLik evaluates the data term of the objective for the current
// expected squared residuals and precision field.
func expectedLogLik(r2 []float64, missing []bool, tau precisionField, n, p int) float64 {
	var ll float64
	for i := 0; i < n; i++ {
		base := i * p
		for j := 0; j < p; j++ {
			idx := base + j
			if missing != nil && missing[idx] {
				continue
			}
			tij := tau.at(j)
			if tij <= 0 {
				continue
			}
			ll += -0.5 * (math.Log(2*math.Pi/tij) + tij*r2[idx])
		}
	}

	return ll
}

// klTotal sums the stored KL corrections across all K terms.
func klTotal(st *State) float64 {
	var kl float64
	for _, t := range st.Terms {
		kl += t.KLL + t.KLF
	}

	return kl
}

// Objective evaluates the variational objective of the state as it stands,
// recomputing residuals from scratch and re-estimating the precision (only
// WithVarType among the options is consulted). It is the reference value a
// caller compares across Refine invocations when assessing convergence.
//
// Errors: the shared fail-fast taxonomy (ErrNilMatrix, ErrNilState,
// ErrNoTerms, ErrDimensionMismatch), wrapped with the operation tag.
func Objective(y *mat.Dense, missing []bool, st *State, opts ...Option) (float64, error) {
	o := gatherOptions(opts...)
	if err := validateInputs(y, missing, st, nil); err != nil {
		return 0, flashErrorf(opObjective, err)
	}

	n, p := y.Dims()
	yw := observedCopy(y, missing)
	r2 := recomputeR2(yw, st, n, p)
	tau := estimateTau(r2, missing, n, p, o.varType)

	return klTotal(st) + expectedLogLik(r2, missing, tau, n, p), nil
}

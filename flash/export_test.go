// SPDX-License-Identifier: MIT
// Test-bridge (white-box) for private kernels.
//
// Exposes the from-scratch residual paths to the external flash_test package
// so the incremental bookkeeping can be audited against the reference
// recomputation without widening the production API.

package flash

// RecomputeR2ForTest rebuilds the expected squared residuals from scratch
// for the given observed data (missing entries zeroed by the caller contract
// of observedCopy).
func RecomputeR2ForTest(yw []float64, st *State, n, p int) []float64 {
	return recomputeR2(yw, st, n, p)
}

// ObservedCopyForTest exposes the missing-aware flattening of Y.
var ObservedCopyForTest = observedCopy

// ResidualExcludingForTest exposes the from-scratch term-excluded residual.
func ResidualExcludingForTest(yw []float64, st *State, excl, n, p int) []float64 {
	return residualExcluding(yw, st, excl, n, p)
}

// EstimateTauConstForTest exposes the shared-precision estimate.
func EstimateTauConstForTest(r2 []float64, missing []bool, n, p int) float64 {
	return estimateTau(r2, missing, n, p, VarConst).all
}

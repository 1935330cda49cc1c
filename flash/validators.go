// SPDX-License-Identifier: MIT
// Package flash: canonical fail-fast validation.
//
// Purpose:
//   - Provide a single source of truth for shape/nil checks shared by the
//     public entry points.
//   - Return plain sentinel errors (no wrapping) so call sites can wrap
//     uniformly with flashErrorf.
//
// Note:
//   - Composite validators follow a fixed sequence (nil → shape → terms →
//     kset) so error priority is deterministic and testable.

package flash

import "gonum.org/v1/gonum/mat"

// validateInputs checks Y, the missing mask, every term's vectors and the
// requested kset against each other. It assumes nothing about prior calls.
func validateInputs(y *mat.Dense, missing []bool, st *State, kset []int) error {
	if y == nil {
		return ErrNilMatrix
	}
	if st == nil {
		return ErrNilState
	}
	if len(st.Terms) == 0 {
		return ErrNoTerms
	}

	n, p := y.Dims()
	if missing != nil && len(missing) != n*p {
		return ErrDimensionMismatch
	}

	for _, t := range st.Terms {
		if t == nil {
			return ErrNilState
		}
		if len(t.L) != n || len(t.L2) != n || len(t.F) != p || len(t.F2) != p {
			return ErrDimensionMismatch
		}
		if t.FixedL != nil && len(t.FixedL) != n {
			return ErrDimensionMismatch
		}
		if t.FixedF != nil && len(t.FixedF) != p {
			return ErrDimensionMismatch
		}
	}

	for _, k := range kset {
		if k < 0 || k >= len(st.Terms) {
			return ErrTermOutOfRange
		}
	}

	return nil
}

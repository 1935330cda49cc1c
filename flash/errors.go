// SPDX-License-Identifier: MIT
// Package flash: sentinel error set (unified, consistent).
// This file defines ONLY package-level sentinel errors used across the flash
// package. All entry points MUST return these sentinels and tests MUST check
// them via errors.Is. No routine panics on user-triggered error conditions;
// panics are reserved for programmer errors in option constructors.

package flash

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "flash: ..." for consistency and easy
// grepping. Do not %w-wrap these sentinels when returning directly; wrap at
// the facade with flashErrorf so callers still match via errors.Is.
//
// ERROR PRIORITY (enforced in validators and tests):
// nil inputs -> shape mismatch -> term shape -> kset bounds -> solver failure.

var (
	// ErrNilMatrix indicates a nil observed matrix was passed to Refine.
	ErrNilMatrix = errors.New("flash: observed matrix is nil")

	// ErrNilState indicates a nil *State (or a State with a nil term).
	ErrNilState = errors.New("flash: state is nil")

	// ErrNoTerms indicates a State carrying zero rank-1 terms.
	ErrNoTerms = errors.New("flash: state has no terms")

	// ErrDimensionMismatch indicates incompatible shapes between Y, the
	// missing mask and the per-term vectors (precondition violation; the
	// routine fails fast rather than truncating or broadcasting).
	ErrDimensionMismatch = errors.New("flash: dimension mismatch")

	// ErrTermOutOfRange indicates a kset index outside [0, K).
	ErrTermOutOfRange = errors.New("flash: term index out of range")

	// ErrSolverFailure wraps an error returned by the pluggable EB solver.
	ErrSolverFailure = errors.New("flash: eb solver failed")
)

// Operation name constants for unified error wrapping (no magic strings).
const (
	opRefine    = "Refine"
	opObjective = "Objective"
	opNewState  = "NewState"
)

// flashErrorf wraps err with an operation tag, preserving the original error
// via %w so errors.Is/As keep matching. Call only with err != nil.
func flashErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// SPDX-License-Identifier: MIT
// Package ebnm: sentinel error set.
// All solvers MUST return these sentinels and tests MUST check them via
// errors.Is. Panics are reserved for programmer errors in private helpers.

package ebnm

import "errors"

var (
	// ErrEmptyInput indicates that the observation vector is empty.
	ErrEmptyInput = errors.New("ebnm: observations must be non-empty")

	// ErrLengthMismatch indicates len(obs) != len(se).
	ErrLengthMismatch = errors.New("ebnm: observations and standard errors differ in length")

	// ErrBadStandardError indicates a standard error that is zero, negative,
	// NaN or ±Inf. Callers are expected to subset such entries out before
	// invoking a solver.
	ErrBadStandardError = errors.New("ebnm: standard errors must be finite and positive")

	// ErrBadPrior indicates a Prior whose family or parameters are outside
	// the supported domain (e.g. LFSR on a non-point-normal prior).
	ErrBadPrior = errors.New("ebnm: unsupported or malformed prior")
)

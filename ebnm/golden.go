// SPDX-License-Identifier: MIT
// Package ebnm: deterministic bounded maximization used for prior fitting.

package ebnm

import "math"

// invPhi is the inverse golden ratio (≈0.618), the fixed bracket-shrink
// factor of golden-section search.
var invPhi = (math.Sqrt(5) - 1) / 2

// goldenMax locates the maximizer of a unimodal function f on [lo, hi] via
// golden-section search. The bracket shrinks by invPhi per iteration, so the
// result is within tol of the true maximizer after at most maxIter steps.
// Fully deterministic: fixed evaluation points, no randomness.
func goldenMax(f func(float64) float64, lo, hi, tol float64, maxIter int) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}

	a, b := lo, hi
	x1 := b - invPhi*(b-a)
	x2 := a + invPhi*(b-a)
	f1, f2 := f(x1), f(x2)

	for iter := 0; iter < maxIter && b-a > tol; iter++ {
		if f1 >= f2 {
			// Maximizer lies in [a, x2]; reuse x1 as the new upper probe.
			b, x2, f2 = x2, x1, f1
			x1 = b - invPhi*(b-a)
			f1 = f(x1)
		} else {
			// Maximizer lies in [x1, b]; reuse x2 as the new lower probe.
			a, x1, f1 = x1, x2, f2
			x2 = a + invPhi*(b-a)
			f2 = f(x2)
		}
	}

	return (a + b) / 2
}

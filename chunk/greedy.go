// SPDX-License-Identifier: MIT
// Package chunk: deterministic greedy rank-1 initialization.
// Each term is fitted to the current residual by alternating least squares
// seeded from the residual column of largest norm, then subtracted out.
// Second moments start as squared means (a point-mass posterior) and the
// first Refine pass replaces them with genuine posterior moments.

package chunk

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/ebmf/flash"
)

// greedyInit builds k rank-1 terms for the n×p observed matrix. Missing
// entries (true in the row-major mask, which may be nil) contribute nothing
// to either side's least-squares statistics. The result is deterministic.
func greedyInit(y *mat.Dense, missing []bool, k int) []*flash.Term {
	n, p := y.Dims()

	// Working residual with missing entries zeroed; the mask keeps them out
	// of the normal equations so the zeros never bias the fit.
	resid := make([]float64, n*p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			if missing != nil && missing[i*p+j] {
				continue
			}
			resid[i*p+j] = y.At(i, j)
		}
	}

	terms := make([]*flash.Term, k)
	for t := 0; t < k; t++ {
		l, f := rankOneLS(resid, missing, n, p)
		term := flash.NewTerm(n, p)
		copy(term.L, l)
		copy(term.F, f)
		for i := range l {
			term.L2[i] = l[i] * l[i]
		}
		for j := range f {
			term.F2[j] = f[j] * f[j]
		}
		terms[t] = term

		// Peel the fitted component off the residual.
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				resid[i*p+j] -= l[i] * f[j]
			}
		}
	}

	return terms
}

// rankOneLS fits a single rank-1 component to resid by alternating least
// squares. The factor is seeded from the observed column with the largest
// sum of squares; if the residual is exhausted (all zero) both sides come
// back zero and callers get a vacuous term.
func rankOneLS(resid []float64, missing []bool, n, p int) (l, f []float64) {
	l = make([]float64, n)
	f = make([]float64, p)

	// Seed: unit vector in the direction of the heaviest column.
	best, bestSS := -1, 0.0
	for j := 0; j < p; j++ {
		var ss float64
		for i := 0; i < n; i++ {
			if missing != nil && missing[i*p+j] {
				continue
			}
			v := resid[i*p+j]
			ss += v * v
		}
		if ss > bestSS {
			best, bestSS = j, ss
		}
	}
	if best < 0 {
		return l, f
	}
	norm := math.Sqrt(bestSS)
	for i := 0; i < n; i++ {
		if missing != nil && missing[i*p+best] {
			continue
		}
		l[i] = resid[i*p+best] / norm
	}

	for sweep := 0; sweep < DefaultGreedyIter; sweep++ {
		// Factor given loading: f_j = Σ_i r_ij·l_i / Σ_i l_i².
		for j := 0; j < p; j++ {
			var num, den float64
			for i := 0; i < n; i++ {
				if missing != nil && missing[i*p+j] {
					continue
				}
				num += resid[i*p+j] * l[i]
				den += l[i] * l[i]
			}
			f[j] = safeRatio(num, den)
		}

		// Loading given factor, normalized to unit length to fix the scale
		// ambiguity of the pair.
		var maxShift float64
		var ssl float64
		for i := 0; i < n; i++ {
			var num, den float64
			for j := 0; j < p; j++ {
				if missing != nil && missing[i*p+j] {
					continue
				}
				num += resid[i*p+j] * f[j]
				den += f[j] * f[j]
			}
			next := safeRatio(num, den)
			if d := math.Abs(next - l[i]); d > maxShift {
				maxShift = d
			}
			l[i] = next
			ssl += next * next
		}
		if ssl > 0 {
			inv := 1 / math.Sqrt(ssl)
			for i := range l {
				l[i] *= inv
			}
		}
		if maxShift < 1e-10 {
			break
		}
	}

	return l, f
}

// safeRatio returns num/den, or 0 when the denominator is degenerate (a row
// or column that is entirely missing, or a zeroed counterpart vector).
func safeRatio(num, den float64) float64 {
	if den <= 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}

	return num / den
}

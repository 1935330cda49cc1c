// SPDX-License-Identifier: MIT
// Package flash: noise precision estimation.
//
// The precision is the maximum-likelihood estimate implied by the current
// expected squared residuals: tau = 1 / mean(R2) over observed entries,
// either one shared value (VarConst) or one per column (VarByColumn).
// Columns (or matrices) with no observed entries, or with a degenerate
// residual mean, get precision zero — such entries are excluded from the
// likelihood and from every sufficient statistic, exactly like missing data.

package flash

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// precisionField is the broadcastable noise precision: one shared value or
// one value per column. Missing entries are handled by the callers (their
// effective precision is always zero).
type precisionField struct {
	mode VarType
	all  float64
	col  []float64
}

// at returns the precision of column j (row-independent by construction).
func (t *precisionField) at(j int) float64 {
	if t.mode == VarByColumn {
		return t.col[j]
	}

	return t.all
}

// estimateTau recomputes the precision field from the current R2.
func estimateTau(r2 []float64, missing []bool, n, p int, mode VarType) precisionField {
	if mode == VarByColumn {
		sums := make([]float64, p)
		counts := make([]int, p)
		for i := 0; i < n; i++ {
			base := i * p
			for j := 0; j < p; j++ {
				idx := base + j
				if missing != nil && missing[idx] {
					continue
				}
				sums[j] += r2[idx]
				counts[j]++
			}
		}
		col := make([]float64, p)
		for j := 0; j < p; j++ {
			col[j] = invMean(sums[j], counts[j])
		}

		return precisionField{mode: VarByColumn, col: col}
	}

	var sum float64
	var count int
	for idx := 0; idx < n*p; idx++ {
		if missing != nil && missing[idx] {
			continue
		}
		sum += r2[idx]
		count++
	}

	return precisionField{mode: VarConst, all: invMean(sum, count)}
}

// invMean returns count/sum with degenerate-estimate guards: no observations
// or a non-positive / non-finite residual mean yield precision zero.
func invMean(sum float64, count int) float64 {
	if count == 0 || sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0
	}

	return float64(count) / sum
}

// expandTau materializes the precision field as an n×p matrix with zeros at
// missing entries, the shape stored into State.Tau for the caller.
func expandTau(t precisionField, missing []bool, n, p int) *mat.Dense {
	out := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			if missing != nil && missing[i*p+j] {
				continue
			}
			out.Set(i, j, t.at(j))
		}
	}

	return out
}

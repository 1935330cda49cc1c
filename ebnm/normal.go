// SPDX-License-Identifier: MIT
// Package ebnm: zero-mean normal prior solver.
//
// Model:
//   θ_j ~ N(0, s²),  x_j | θ_j ~ N(θ_j, se_j²)
// so marginally x_j ~ N(0, s² + se_j²). The prior variance s² is fitted by
// maximizing the marginal log-likelihood; the posterior of each θ_j is the
// usual conjugate-normal (ridge) posterior:
//   E[θ_j | x]   = x_j · s² / (s² + se_j²)
//   Var[θ_j | x] = s² · se_j² / (s² + se_j²)

package ebnm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SolveNormal fits a zero-mean normal prior to (obs, se) and returns the
// posterior summaries under the fitted prior. It is a Solver.
//
// Errors:
//   - ErrEmptyInput        — len(obs) == 0.
//   - ErrLengthMismatch    — len(obs) != len(se).
//   - ErrBadStandardError  — any se_j is non-finite or ≤ 0.
//
// Complexity: O(n · OptMaxIter) time, O(n) space.
func SolveNormal(obs, se []float64, p Params) (Result, error) {
	if err := validateInput(obs, se); err != nil {
		return Result{}, err
	}
	p = p.normalized()

	// Fit s² by marginal MLE, unless pinned by the caller.
	var s2 float64
	if p.FixSD > 0 {
		s2 = p.FixSD * p.FixSD
	} else {
		s2 = goldenMax(func(v float64) float64 {
			return normalMarginalLogLik(obs, se, v)
		}, 0, normalSearchUpper(obs), p.OptTol, p.OptMaxIter)
	}

	// Conjugate posterior per entry.
	n := len(obs)
	pm := make([]float64, n)
	pm2 := make([]float64, n)
	for j := 0; j < n; j++ {
		tot := s2 + se[j]*se[j]
		if tot == 0 {
			// s²=0 and se=0 cannot happen (se>0 validated); s²=0 alone
			// yields a degenerate prior: posterior collapses to zero.
			continue
		}
		mean := obs[j] * s2 / tot
		variance := s2 * se[j] * se[j] / tot
		pm[j] = mean
		pm2[j] = variance + mean*mean
	}

	return Result{
		PosteriorMean:         pm,
		PosteriorSecondMoment: pm2,
		Prior:                 Prior{Family: FamilyNormal, SD: math.Sqrt(s2)},
		LogLik:                normalMarginalLogLik(obs, se, s2),
	}, nil
}

// normalMarginalLogLik evaluates Σ_j log N(obs_j; 0, s² + se_j²).
func normalMarginalLogLik(obs, se []float64, s2 float64) float64 {
	var ll float64
	for j := range obs {
		d := distuv.Normal{Mu: 0, Sigma: math.Sqrt(s2 + se[j]*se[j])}
		ll += d.LogProb(obs[j])
	}

	return ll
}

// normalSearchUpper returns an upper bracket for the prior-variance search:
// the largest squared observation bounds any sensible marginal-MLE variance.
func normalSearchUpper(obs []float64) float64 {
	ub := 0.0
	for _, x := range obs {
		if x*x > ub {
			ub = x * x
		}
	}
	if ub == 0 {
		ub = 1 // all-zero observations: any tiny bracket works
	}

	return ub
}

// validateInput performs the shared fail-fast checks of every solver.
func validateInput(obs, se []float64) error {
	if len(obs) == 0 {
		return ErrEmptyInput
	}
	if len(obs) != len(se) {
		return ErrLengthMismatch
	}
	for _, s := range se {
		if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
			return ErrBadStandardError
		}
	}

	return nil
}

// SPDX-License-Identifier: MIT
// Package ebnm: point-normal (spike-and-slab) prior solver.
//
// Model:
//   θ_j ~ π0·δ0 + (1−π0)·N(0, s²),  x_j | θ_j ~ N(θ_j, se_j²)
// so marginally x_j ~ π0·N(0, se_j²) + (1−π0)·N(0, s² + se_j²).
// Both π0 and s² are fitted by maximizing the marginal log-likelihood with a
// nested golden-section search (outer over s², inner profile over π0). The
// per-entry posterior is a two-component mixture: the spike at zero with
// weight 1−w_j and the conjugate slab posterior with weight w_j, where w_j is
// the slab responsibility of observation j.

package ebnm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SolvePointNormal fits a point-normal prior to (obs, se) and returns the
// posterior summaries under the fitted prior. It is a Solver.
//
// Errors: same taxonomy as SolveNormal (ErrEmptyInput, ErrLengthMismatch,
// ErrBadStandardError).
//
// Complexity: O(n · OptMaxIter²) time for the nested search, O(n) space.
func SolvePointNormal(obs, se []float64, p Params) (Result, error) {
	if err := validateInput(obs, se); err != nil {
		return Result{}, err
	}
	p = p.normalized()

	ub := normalSearchUpper(obs)

	// profilePi0 returns the best point-mass weight for a fixed slab
	// variance. The profile likelihood is concave in π0, so golden-section
	// search is exact up to tolerance.
	profilePi0 := func(s2 float64) float64 {
		return goldenMax(func(pi0 float64) float64 {
			return pointNormalLogLik(obs, se, pi0, s2)
		}, 0, 1, p.OptTol, p.OptMaxIter)
	}

	var s2 float64
	if p.FixSD > 0 {
		s2 = p.FixSD * p.FixSD
	} else {
		s2 = goldenMax(func(v float64) float64 {
			return pointNormalLogLik(obs, se, profilePi0(v), v)
		}, 0, ub, p.OptTol, p.OptMaxIter)
	}
	pi0 := profilePi0(s2)

	n := len(obs)
	pm := make([]float64, n)
	pm2 := make([]float64, n)
	for j := 0; j < n; j++ {
		w, m1, v1 := slabPosterior(obs[j], se[j], pi0, s2)
		pm[j] = w * m1
		pm2[j] = w * (v1 + m1*m1)
	}

	return Result{
		PosteriorMean:         pm,
		PosteriorSecondMoment: pm2,
		Prior:                 Prior{Family: FamilyPointNormal, Pi0: pi0, SD: math.Sqrt(s2)},
		LogLik:                pointNormalLogLik(obs, se, pi0, s2),
	}, nil
}

// pointNormalLogLik evaluates the marginal log-likelihood of (π0, s²).
// Each term is computed in log space via logSumExp to stay finite for
// observations far in the tails.
func pointNormalLogLik(obs, se []float64, pi0, s2 float64) float64 {
	var ll float64
	for j := range obs {
		spike := distuv.Normal{Mu: 0, Sigma: se[j]}
		slab := distuv.Normal{Mu: 0, Sigma: math.Sqrt(s2 + se[j]*se[j])}
		ll += logSumExp(
			math.Log(pi0)+spike.LogProb(obs[j]),
			math.Log(1-pi0)+slab.LogProb(obs[j]),
		)
	}

	return ll
}

// slabPosterior returns the slab responsibility w and the conjugate slab
// posterior mean/variance (m1, v1) for one observation.
func slabPosterior(x, se, pi0, s2 float64) (w, m1, v1 float64) {
	tot := s2 + se*se
	if tot > 0 {
		m1 = x * s2 / tot
		v1 = s2 * se * se / tot
	}

	switch {
	case pi0 <= 0:
		w = 1
	case pi0 >= 1 || s2 == 0:
		w = 0
	default:
		spike := distuv.Normal{Mu: 0, Sigma: se}
		slab := distuv.Normal{Mu: 0, Sigma: math.Sqrt(tot)}
		la := math.Log(pi0) + spike.LogProb(x)
		lb := math.Log(1-pi0) + slab.LogProb(x)
		w = math.Exp(lb - logSumExp(la, lb))
	}

	return w, m1, v1
}

// logSumExp computes log(exp(a)+exp(b)) without overflow.
func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	m := math.Max(a, b)

	return m + math.Log(math.Exp(a-m)+math.Exp(b-m))
}

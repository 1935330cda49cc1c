// SPDX-License-Identifier: MIT
// Package ebnm: expected complete-data log-likelihood and the local false
// sign rate. Both are consumed by callers downstream of a solve: the former
// turns a penalized log-likelihood into a KL correction, the latter grades
// the confidence in effect signs.

package ebnm

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedLogLik evaluates E_q[ Σ_j log N(obs_j; θ_j, se_j²) ] where q is the
// per-entry posterior summarized by its mean and second moment:
//
//	Σ_j −½·( log(2π·se_j²) + (obs_j² − 2·obs_j·E[θ_j] + E[θ_j²]) / se_j² )
//
// The KL correction of a variational term is then
// Result.LogLik − ExpectedLogLik(obs, se, pm, pm2).
//
// Errors:
//   - ErrEmptyInput       — len(obs) == 0.
//   - ErrLengthMismatch   — any argument length differs from len(obs).
//   - ErrBadStandardError — any se_j non-finite or ≤ 0.
func ExpectedLogLik(obs, se, postMean, postSecondMoment []float64) (float64, error) {
	if err := validateInput(obs, se); err != nil {
		return 0, err
	}
	if len(postMean) != len(obs) || len(postSecondMoment) != len(obs) {
		return 0, ErrLengthMismatch
	}

	var ell float64
	for j := range obs {
		v := se[j] * se[j]
		ell += -0.5 * (math.Log(2*math.Pi*v) + (obs[j]*obs[j]-2*obs[j]*postMean[j]+postSecondMoment[j])/v)
	}

	return ell, nil
}

// LFSR computes the local false sign rate of each effect under a fitted
// point-normal prior: the posterior probability that the sign of θ_j is the
// opposite of (or different from) its most probable sign. The point mass at
// zero counts against both signs, so lfsr_j ≥ Pr(θ_j = 0 | x_j).
//
// Errors: ErrBadPrior for non-point-normal priors, plus the shared input
// taxonomy of the solvers.
func LFSR(obs, se []float64, prior Prior) ([]float64, error) {
	if prior.Family != FamilyPointNormal || prior.Pi0 < 0 || prior.Pi0 > 1 || prior.SD < 0 {
		return nil, ErrBadPrior
	}
	if err := validateInput(obs, se); err != nil {
		return nil, err
	}

	s2 := prior.SD * prior.SD
	out := make([]float64, len(obs))
	for j := range obs {
		w, m1, v1 := slabPosterior(obs[j], se[j], prior.Pi0, s2)
		p0 := 1 - w

		var pNeg, pPos float64
		if w > 0 && v1 > 0 {
			slab := distuv.Normal{Mu: m1, Sigma: math.Sqrt(v1)}
			pNeg = w * slab.CDF(0)
			pPos = w * (1 - slab.CDF(0))
		} else if w > 0 {
			// Degenerate slab posterior: all mass at m1.
			if m1 < 0 {
				pNeg = w
			} else if m1 > 0 {
				pPos = w
			} else {
				p0 += w
			}
		}

		out[j] = math.Min(p0+pNeg, p0+pPos)
	}

	return out, nil
}

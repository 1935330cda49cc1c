// Package ebnm solves the empirical-Bayes normal-means problem: given noisy
// observations x_j = θ_j + ε_j with ε_j ~ N(0, se_j²) and known standard
// errors se_j, it fits a prior g over the θ_j by maximizing the marginal
// likelihood, then reports the posterior mean and posterior second moment of
// every θ_j under the fitted prior.
//
// 🚀 What is it for?
//
//	The normal-means subproblem is the inner step of variational
//	empirical-Bayes matrix factorization: each loading and factor update in
//	package flash reduces to exactly one ebnm solve. The same machinery is
//	useful on its own for adaptive shrinkage of any vector of estimates with
//	per-entry standard errors.
//
// ✨ Key features:
//   - Solver capability type: any func(obs, se, Params) (Result, error) can
//     be plugged into flash; the two built-in families cover the common cases
//   - SolveNormal — zero-mean normal prior, variance fitted by marginal MLE
//   - SolvePointNormal — spike-and-slab π0·δ0 + (1−π0)·N(0, s²), both
//     parameters fitted by nested golden-section search (fully deterministic)
//   - ExpectedLogLik — expected complete-data log-likelihood under a
//     posterior, used by callers to turn penalized log-likelihoods into KL
//     corrections
//   - LFSR — local false sign rate under a fitted point-normal prior
//
// ⚙️ Usage:
//
//	import "github.com/katalvlaran/ebmf/ebnm"
//
//	res, err := ebnm.SolvePointNormal(obs, se, ebnm.DefaultParams())
//	if err != nil { ... }
//	shrunk := res.PosteriorMean
//
// All solvers are deterministic and side-effect-free: identical inputs yield
// identical outputs, with no global state and no randomness.
package ebnm

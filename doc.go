// Package ebmf fits empirical-Bayes matrix factorizations: Y ≈ Σ L_k ⊗ F_k
// with per-entry posteriors, adaptive priors and a noise precision that is
// re-estimated as the fit evolves.
//
// 🚀 What is ebmf?
//
//	A library and experiment toolkit built around one kernel — the
//	block-coordinate variational refinement loop — plus everything needed
//	to feed and grade it:
//		• Refinement: flash.Refine updates each rank-1 term's loading and
//		  factor as empirical-Bayes normal-means subproblems
//		• Solvers: normal and point-normal priors with marginal MLE
//		• Acceleration: chunk.Fit refines column chunks in parallel and
//		  merges them for a final joint pass
//		• Simulation: synthetic low-rank datasets with noise, sparsity and
//		  missingness, deterministic per seed
//		• Grading: MSE, factor correlation, CI coverage, local false sign
//		  rates and their summaries
//
// ✨ Why choose ebmf?
//
//   - Exact bookkeeping – residual moments maintained by rank-1 identities,
//     never recomputed inside the loop
//   - Honest uncertainty – every loading and factor coordinate carries a
//     posterior mean and second moment, not just a point estimate
//   - Missing data welcome – masked entries drop out of every statistic
//   - Deterministic – no sampling in the fit, reproducible simulations
//
// Everything is organized under six subpackages:
//
//	flash/   — the refinement kernel: states, terms, residuals, objective
//	ebnm/    — empirical-Bayes normal-means solvers (normal, point-normal)
//	chunk/   — chunk-then-merge parallel fitting
//	sim/     — synthetic dataset generation
//	metrics/ — fit assessment and summaries
//	cmd/     — the ebmf-sim experiment runner
//
// Quick sketch:
//
//	    Y (n×p)  ≈  L₁⊗F₁ + L₂⊗F₂ + ⋯ + L_K⊗F_K
//
//	each term refined in turn against the residual that excludes it.
//
//	go get github.com/katalvlaran/ebmf
package ebmf

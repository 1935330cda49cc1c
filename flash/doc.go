// Package flash refines empirical-Bayes matrix factorizations: it takes an
// observed n×p matrix Y (possibly with missing entries), an initialized
// collection of K rank-1 "loading × factor" terms, and iteratively re-solves
// each term's loading and factor as normal-means subproblems until the
// variational objective stops improving.
//
// 🚀 What does it compute?
//
//	Y ≈ Σ_k L_k ⊗ F_k with per-entry posteriors on every loading and factor
//	coordinate, fitted priors per term and side, and a noise precision that
//	is re-estimated from the residuals as the fit evolves. The objective is
//	the variational lower bound: expected data log-likelihood over observed
//	entries plus the accumulated KL corrections of all terms.
//
// ✨ Key features:
//   - block-coordinate ascent: terms are visited in order, each side solved
//     by a pluggable ebnm.Solver (normal or point-normal built in)
//   - incremental residual bookkeeping: the expected squared residual matrix
//     R2 and the term-excluded residual Rk are maintained by exact rank-1
//     algebraic identities, never recomputed from scratch inside the loop
//   - missing entries are excluded from likelihood and sufficient statistics
//   - fixed-entry masks pin a prescribed sparsity pattern on either side of
//     any term while letting the free entries move
//   - constant or per-column noise precision (VarConst / VarByColumn)
//   - deterministic: no sampling, no global state
//
// ⚙️ Usage:
//
//	import "github.com/katalvlaran/ebmf/flash"
//
//	st := flash.NewState(terms...)
//	err := flash.Refine(y, missing, st,
//	    flash.WithVarType(flash.VarByColumn),
//	    flash.WithTol(1e-7),
//	)
//
// Refine mutates the state in place and leaves convergence assessment to the
// caller: exhausting the iteration caps is not an error. Use Objective (or
// WithObjectiveTrace during the run) to inspect the trajectory.
//
// Concurrency: Refine is single-threaded and must own its *State for the
// duration of the call. Y and the missing mask are only read, so disjoint
// states may be refined in parallel against the same Y (see package chunk).
package flash

// Package chunk accelerates large factorizations by fitting column chunks in
// parallel and merging the results: it splits the columns of Y into groups,
// greedily initializes and refines each group's sub-matrix on an independent
// flash.State, merges the per-chunk terms into one full-width state, and
// finishes with a single joint refinement over the whole matrix.
//
// ✨ Key features:
//   - contiguous planning (Plan) or correlation-driven grouping
//     (ClusterColumns: single-linkage agglomeration on 1−|corr|)
//   - bounded worker parallelism via errgroup; cancellation is honored
//     between refinements, never inside the kernel
//   - deterministic greedy rank-1 initialization (alternating least squares
//     on the running residual)
//   - sign-aligned merge: chunk loadings are reconciled up to the joint
//     sign flip that rank-1 terms are identified by
//   - optional zerolog progress events
//
// ⚙️ Usage:
//
//	st, err := chunk.Fit(ctx, y, missing, 3, 4,
//	    chunk.WithClusteredGrouping(),
//	    chunk.WithParallelism(4),
//	)
//
// The returned state is globally consistent: its precision, priors and KL
// corrections come from the final joint pass, not from the per-chunk fits.
package chunk

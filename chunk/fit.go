// SPDX-License-Identifier: MIT
// Package chunk: the chunk-then-merge fit.
// Columns are grouped, each group's sub-matrix is initialized greedily and
// refined on an independent state, the per-chunk results are merged into one
// full-width state, and a final joint refinement reconciles the loadings
// across chunks. Cancellation is honored between refinements only: the
// kernel itself never checks the context.

package chunk

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/ebmf/flash"
)

// Fit factorizes the n×p matrix y into k rank-1 terms using chunks column
// groups refined in parallel. The missing mask is row-major (true = missing)
// and may be nil. The returned state has passed a final joint flash.Refine
// over the full matrix, so its Tau, priors and KL corrections are globally
// consistent.
//
// Returns ErrNilMatrix, ErrBadRank, ErrBadChunkCount, ErrDimensionMismatch
// or ErrBadGrouping on invalid inputs, ErrRefineFailure (wrapping the cause)
// if any refinement fails, and the context error if ctx is canceled between
// refinements.
func Fit(ctx context.Context, y *mat.Dense, missing []bool, k, chunks int, opts ...Option) (*flash.State, error) {
	if y == nil {
		return nil, chunkErrorf(opFit, ErrNilMatrix)
	}
	n, p := y.Dims()
	if k < 1 {
		return nil, chunkErrorf(opFit, ErrBadRank)
	}
	if missing != nil && len(missing) != n*p {
		return nil, chunkErrorf(opFit, ErrDimensionMismatch)
	}

	o := gatherOptions(opts...)
	groups, err := resolveGrouping(y, p, chunks, &o)
	if err != nil {
		return nil, chunkErrorf(opFit, err)
	}

	o.logger.Debug().
		Int("rows", n).Int("cols", p).
		Int("rank", k).Int("chunks", len(groups)).
		Msg("starting chunked fit")

	// Refine every chunk on its own state. Workers share y read-only and
	// write disjoint slots of states, so no further synchronization is
	// needed beyond the group wait.
	states := make([]*flash.State, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for c, group := range groups {
		g.Go(func() error {
			// Cancellation is honored between refinements only: a chunk that
			// has started refining runs to completion.
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			ysub, msub := subMatrix(y, missing, group)
			st := flash.NewState(greedyInit(ysub, msub, k)...)
			if err := flash.Refine(ysub, msub, st, o.refineOpts...); err != nil {
				return fmt.Errorf("chunk %d: %w: %w", c, ErrRefineFailure, err)
			}
			states[c] = st
			o.logger.Debug().
				Int("chunk", c).Int("columns", len(group)).
				Dur("elapsed", time.Since(start)).
				Msg("chunk refined")

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, chunkErrorf(opFit, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, chunkErrorf(opFit, err)
	}

	merged := mergeStates(states, groups, n, p, k)

	// The merge leaves point-mass moments and stale loadings; one joint pass
	// over the full matrix turns them back into a coherent variational fit.
	if err := flash.Refine(y, missing, merged, o.refineOpts...); err != nil {
		return nil, chunkErrorf(opFit, fmt.Errorf("%w: %w", ErrRefineFailure, err))
	}
	o.logger.Debug().Msg("joint refinement finished")

	return merged, nil
}

// resolveGrouping picks the column grouping: explicit > clustered > contiguous.
func resolveGrouping(y *mat.Dense, p, chunks int, o *Options) ([][]int, error) {
	if o.grouping != nil {
		if err := validateGrouping(o.grouping, p); err != nil {
			return nil, err
		}

		return o.grouping, nil
	}
	if chunks < 1 || chunks > p {
		return nil, ErrBadChunkCount
	}
	if o.clustered {
		return ClusterColumns(y, chunks)
	}

	return Plan(p, chunks)
}

// subMatrix extracts the columns of y named by group, with the matching
// slice of the missing mask (nil in, nil out).
func subMatrix(y *mat.Dense, missing []bool, group []int) (*mat.Dense, []bool) {
	n, p := y.Dims()
	m := len(group)
	sub := mat.NewDense(n, m, nil)
	var msub []bool
	if missing != nil {
		msub = make([]bool, n*m)
	}
	for i := 0; i < n; i++ {
		for c, j := range group {
			sub.Set(i, c, y.At(i, j))
			if missing != nil {
				msub[i*m+c] = missing[i*p+j]
			}
		}
	}

	return sub, msub
}

// mergeStates combines per-chunk states into one full-width state: for each
// term, chunk factors are scattered back to their column positions and chunk
// loadings are sign-aligned to the first chunk and averaged with weights
// proportional to chunk width. Moments collapse to squared means and KL
// corrections reset; the joint refinement re-derives both.
func mergeStates(states []*flash.State, groups [][]int, n, p, k int) *flash.State {
	terms := make([]*flash.Term, k)
	for t := 0; t < k; t++ {
		term := flash.NewTerm(n, p)
		ref := states[0].Terms[t].L
		var wsum float64
		for c, st := range states {
			src := st.Terms[t]
			w := float64(len(groups[c]))
			s := alignSign(src.L, ref)
			for i := 0; i < n; i++ {
				term.L[i] += w * s * src.L[i]
			}
			wsum += w
			for ci, j := range groups[c] {
				term.F[j] = s * src.F[ci]
			}
		}
		if wsum > 0 {
			for i := range term.L {
				term.L[i] /= wsum
			}
		}
		for i := range term.L {
			term.L2[i] = term.L[i] * term.L[i]
		}
		for j := range term.F {
			term.F2[j] = term.F[j] * term.F[j]
		}
		terms[t] = term
	}

	return flash.NewState(terms...)
}

// alignSign returns ±1 so that s·v points the same way as ref; orthogonal or
// zero vectors keep their sign.
func alignSign(v, ref []float64) float64 {
	var dot float64
	for i := range v {
		dot += v[i] * ref[i]
	}
	if math.Signbit(dot) && dot != 0 {
		return -1
	}

	return 1
}

// SPDX-License-Identifier: MIT
// Package chunk: sentinel error set.
// Entry points return these sentinels (wrapped with an operation tag via
// chunkErrorf) and tests match them with errors.Is. Panics are reserved for
// programmer errors in option constructors, mirroring package flash.

package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrNilMatrix indicates a nil observed matrix.
	ErrNilMatrix = errors.New("chunk: observed matrix is nil")

	// ErrBadRank indicates a non-positive requested rank.
	ErrBadRank = errors.New("chunk: rank must be positive")

	// ErrBadChunkCount indicates a chunk count outside [1, p].
	ErrBadChunkCount = errors.New("chunk: chunk count out of range")

	// ErrDimensionMismatch indicates a missing mask whose length is not n·p.
	ErrDimensionMismatch = errors.New("chunk: dimension mismatch")

	// ErrBadGrouping indicates a column grouping that is not a partition of
	// [0, p): an empty group, an index out of range, or a duplicate index.
	ErrBadGrouping = errors.New("chunk: grouping is not a column partition")

	// ErrRefineFailure wraps an error returned by the refinement kernel.
	ErrRefineFailure = errors.New("chunk: refinement failed")
)

// Operation name constants for unified error wrapping.
const (
	opFit            = "Fit"
	opPlan           = "Plan"
	opClusterColumns = "ClusterColumns"
)

// chunkErrorf wraps err with an operation tag, preserving errors.Is matching.
func chunkErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

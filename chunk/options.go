// SPDX-License-Identifier: MIT
// Package chunk: functional configuration for the chunked fit.
// Mirrors the option layout of package flash: documented defaults,
// WithX constructors panicking on programmer error, unexported fields,
// gatherOptions resolving the effective configuration.

package chunk

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/katalvlaran/ebmf/flash"
)

// DefaultGreedyIter caps the alternating least-squares sweeps spent on each
// rank-1 initialization term.
const DefaultGreedyIter = 30

// Internal panic messages (no magic strings).
const (
	panicParallelismInvalid = "chunk: WithParallelism: limit must be positive"
	panicGroupingEmpty      = "chunk: WithGrouping: grouping must be non-empty"
)

// Option mutates internal options. Safe to apply repeatedly (last-writer-wins).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	parallelism int
	grouping    [][]int
	clustered   bool
	logger      zerolog.Logger
	refineOpts  []flash.Option
}

// WithParallelism bounds the number of chunks refined concurrently.
// The default is runtime.NumCPU().
func WithParallelism(n int) Option {
	if n < 1 {
		panic(panicParallelismInvalid)
	}

	return func(o *Options) { o.parallelism = n }
}

// WithGrouping supplies an explicit column grouping instead of the default
// contiguous plan. The grouping must partition [0, p); it is validated
// inside Fit, where p is known. Overrides WithClusteredGrouping.
func WithGrouping(groups [][]int) Option {
	if len(groups) == 0 {
		panic(panicGroupingEmpty)
	}
	gs := make([][]int, len(groups))
	for i, g := range groups {
		gs[i] = append([]int(nil), g...)
	}

	return func(o *Options) { o.grouping = gs }
}

// WithClusteredGrouping groups columns by correlation (see ClusterColumns)
// instead of the default contiguous plan, so that columns sharing factor
// structure land in the same chunk.
func WithClusteredGrouping() Option {
	return func(o *Options) { o.clustered = true }
}

// WithProgressLogger emits per-chunk progress events to the given logger.
// The default logger discards everything.
func WithProgressLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.logger = l }
}

// WithRefineOptions forwards options to every flash.Refine call issued by
// Fit (the per-chunk refinements and the final joint pass alike).
func WithRefineOptions(opts ...flash.Option) Option {
	ro := append([]flash.Option(nil), opts...)

	return func(o *Options) { o.refineOpts = ro }
}

func defaultOptions() Options {
	return Options{
		parallelism: runtime.NumCPU(),
		logger:      zerolog.Nop(),
	}
}

func gatherOptions(user ...Option) Options {
	o := defaultOptions()
	for _, fn := range user {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}

// SPDX-License-Identifier: MIT
// Package chunk: column grouping strategies.
// Plan slices the column range into contiguous, near-equal groups.
// ClusterColumns performs single-linkage agglomerative clustering on column
// correlation using a disjoint-set union: merging the closest pair of
// clusters repeatedly is exactly Kruskal's algorithm run on the complete
// column graph with edge weight 1−|corr|, stopped when the requested number
// of components remains.

package chunk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Plan splits the column indices [0, p) into chunks contiguous groups of
// near-equal size (the first p mod chunks groups hold one extra column).
func Plan(p, chunks int) ([][]int, error) {
	if p < 1 || chunks < 1 || chunks > p {
		return nil, chunkErrorf(opPlan, ErrBadChunkCount)
	}

	base := p / chunks
	extra := p % chunks
	groups := make([][]int, chunks)
	next := 0
	for c := 0; c < chunks; c++ {
		size := base
		if c < extra {
			size++
		}
		g := make([]int, size)
		for i := range g {
			g[i] = next
			next++
		}
		groups[c] = g
	}

	return groups, nil
}

// colEdge is one candidate merge between two columns, weighted by
// correlation distance.
type colEdge struct {
	u, v int
	dist float64
}

// ClusterColumns groups the columns of y into chunks clusters by
// single-linkage agglomeration on the distance 1−|corr(y_u, y_v)|, so that
// strongly correlated columns (columns plausibly driven by the same factors)
// end up in the same chunk. Columns with zero variance correlate with
// nothing and merge last. Group contents are sorted ascending and groups are
// ordered by their smallest member, so the output is deterministic.
func ClusterColumns(y *mat.Dense, chunks int) ([][]int, error) {
	if y == nil {
		return nil, chunkErrorf(opClusterColumns, ErrNilMatrix)
	}
	n, p := y.Dims()
	if p < 1 || chunks < 1 || chunks > p {
		return nil, chunkErrorf(opClusterColumns, ErrBadChunkCount)
	}
	if chunks == p {
		return Plan(p, chunks)
	}

	// Materialize columns once; stat.Correlation reads plain slices.
	cols := make([][]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = make([]float64, n)
		mat.Col(cols[j], j, y)
	}

	// All pairwise edges, ascending by distance. NaN correlations (constant
	// columns) are treated as maximally distant.
	edges := make([]colEdge, 0, p*(p-1)/2)
	for u := 0; u < p; u++ {
		for v := u + 1; v < p; v++ {
			r := stat.Correlation(cols[u], cols[v], nil)
			d := 1 - math.Abs(r)
			if math.IsNaN(d) {
				d = 1
			}
			edges = append(edges, colEdge{u: u, v: v, dist: d})
		}
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].dist < edges[j].dist })

	// Disjoint-set union with path compression and union by rank.
	parent := make([]int, p)
	rank := make([]int, p)
	for j := range parent {
		parent[j] = j
	}
	find := func(u int) int {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}

		return u
	}

	// Merge closest pairs until only chunks components remain.
	components := p
	for _, e := range edges {
		if components == chunks {
			break
		}
		ru, rv := find(e.u), find(e.v)
		if ru == rv {
			continue
		}
		if rank[ru] < rank[rv] {
			ru, rv = rv, ru
		}
		parent[rv] = ru
		if rank[ru] == rank[rv] {
			rank[ru]++
		}
		components--
	}

	// Collect components, sort members, order groups by smallest member.
	byRoot := make(map[int][]int, chunks)
	for j := 0; j < p; j++ {
		r := find(j)
		byRoot[r] = append(byRoot[r], j)
	}
	groups := make([][]int, 0, len(byRoot))
	for _, g := range byRoot {
		sort.Ints(g)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	return groups, nil
}

// validateGrouping checks that groups partition the column range [0, p).
func validateGrouping(groups [][]int, p int) error {
	seen := make([]bool, p)
	total := 0
	for _, g := range groups {
		if len(g) == 0 {
			return ErrBadGrouping
		}
		for _, j := range g {
			if j < 0 || j >= p || seen[j] {
				return ErrBadGrouping
			}
			seen[j] = true
			total++
		}
	}
	if total != p {
		return ErrBadGrouping
	}

	return nil
}

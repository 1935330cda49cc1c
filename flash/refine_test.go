// SPDX-License-Identifier: MIT

package flash_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/ebmf/ebnm"
	"github.com/katalvlaran/ebmf/flash"
)

// simulateRankOne draws a deterministic rank-1 dataset Y = L⊗F + noise.
func simulateRankOne(seed int64, n, p int, noiseSD float64) (y *mat.Dense, trueL, trueF []float64) {
	rng := rand.New(rand.NewSource(seed))
	trueL = make([]float64, n)
	trueF = make([]float64, p)
	for i := range trueL {
		trueL[i] = rng.NormFloat64()
	}
	for j := range trueF {
		trueF[j] = rng.NormFloat64()
	}
	y = mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			y.Set(i, j, trueL[i]*trueF[j]+noiseSD*rng.NormFloat64())
		}
	}

	return y, trueL, trueF
}

// coarseInit seeds a term with a deliberately crude rank-1 fit: F = 1,
// L = Y·1/p, second moments equal to the squared means. Refinement is
// expected to travel a long way from here.
func coarseInit(y *mat.Dense) *flash.Term {
	n, p := y.Dims()
	t := flash.NewTerm(n, p)
	for j := 0; j < p; j++ {
		t.F[j] = 1
		t.F2[j] = 1
	}
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < p; j++ {
			s += y.At(i, j)
		}
		t.L[i] = s / float64(p)
		t.L2[i] = t.L[i] * t.L[i]
	}

	return t
}

func TestRefine_Validation(t *testing.T) {
	y := mat.NewDense(4, 3, nil)
	st := flash.NewState(flash.NewTerm(4, 3))

	err := flash.Refine(nil, nil, st)
	assert.ErrorIs(t, err, flash.ErrNilMatrix, "nil Y must fail fast")

	err = flash.Refine(y, nil, nil)
	assert.ErrorIs(t, err, flash.ErrNilState, "nil state must fail fast")

	err = flash.Refine(y, nil, flash.NewState())
	assert.ErrorIs(t, err, flash.ErrNoTerms, "empty state must fail fast")

	err = flash.Refine(y, make([]bool, 5), st)
	assert.ErrorIs(t, err, flash.ErrDimensionMismatch, "short mask must fail fast")

	err = flash.Refine(y, nil, flash.NewState(flash.NewTerm(3, 3)))
	assert.ErrorIs(t, err, flash.ErrDimensionMismatch, "term shape mismatch must fail fast")

	err = flash.Refine(y, nil, st, flash.WithKSet(2))
	assert.ErrorIs(t, err, flash.ErrTermOutOfRange, "kset out of range must fail fast")
}

func TestOptions_PanicOnProgrammerError(t *testing.T) {
	assert.Panics(t, func() { flash.WithTol(-1) }, "negative tol")
	assert.Panics(t, func() { flash.WithTol(math.NaN()) }, "NaN tol")
	assert.Panics(t, func() { flash.WithMaxIter(0) }, "non-positive outer cap")
	assert.Panics(t, func() { flash.WithMaxIterSingle(-3) }, "non-positive inner cap")
	assert.Panics(t, func() { flash.WithSolver(nil) }, "nil solver")
	assert.Panics(t, func() { flash.WithObjectiveTrace(nil) }, "nil trace destination")
}

// TestRefine_EmptyKSetNoOp: an explicitly empty selection returns a state
// identical to the input.
func TestRefine_EmptyKSetNoOp(t *testing.T) {
	y, _, _ := simulateRankOne(1, 12, 6, 0.2)
	st := flash.NewState(coarseInit(y))
	before := st.Clone()

	require.NoError(t, flash.Refine(y, nil, st, flash.WithKSet()))
	assert.Equal(t, before.Terms, st.Terms, "empty kset must leave every term untouched")
	assert.Nil(t, st.Tau, "empty kset must not record a precision")
}

// TestRefine_FixedEntriesInvariant: entries under a fixed mask are
// bit-identical before and after refinement.
func TestRefine_FixedEntriesInvariant(t *testing.T) {
	y, _, _ := simulateRankOne(2, 20, 8, 0.3)
	term := coarseInit(y)
	term.FixedF = make([]bool, 8)
	term.FixedF[0], term.FixedF[3] = true, true
	term.FixedL = make([]bool, 20)
	term.FixedL[5] = true

	wantF0, wantF3 := term.F[0], term.F[3]
	wantF20, wantF23 := term.F2[0], term.F2[3]
	wantL5, wantL25 := term.L[5], term.L2[5]

	st := flash.NewState(term)
	require.NoError(t, flash.Refine(y, nil, st, flash.WithSolver(ebnm.SolveNormal)))

	assert.Equal(t, wantF0, term.F[0], "fixed factor entry 0 must be bit-identical")
	assert.Equal(t, wantF3, term.F[3], "fixed factor entry 3 must be bit-identical")
	assert.Equal(t, wantF20, term.F2[0], "fixed factor second moment 0 must be bit-identical")
	assert.Equal(t, wantF23, term.F2[3], "fixed factor second moment 3 must be bit-identical")
	assert.Equal(t, wantL5, term.L[5], "fixed loading entry must be bit-identical")
	assert.Equal(t, wantL25, term.L2[5], "fixed loading second moment must be bit-identical")
}

// TestRefine_ObjectiveMonotone: the traced objective never decreases beyond
// numerical slack after the first (bootstrap) value.
func TestRefine_ObjectiveMonotone(t *testing.T) {
	y, _, _ := simulateRankOne(3, 30, 12, 0.25)
	st := flash.NewState(coarseInit(y))

	var trace []float64
	require.NoError(t, flash.Refine(y, nil, st,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithObjectiveTrace(&trace),
	))
	require.Greater(t, len(trace), 1, "expected at least two objective evaluations")

	for i := 1; i < len(trace); i++ {
		slack := 1e-8 * math.Max(1, math.Abs(trace[i-1]))
		assert.GreaterOrEqual(t, trace[i], trace[i-1]-slack,
			"objective decreased at step %d: %v -> %v", i, trace[i-1], trace[i])
	}
}

// twoTermInit seeds two crude terms: the first from coarseInit, the second
// fitted the same way against the residual the first leaves behind, so both
// terms carry real signal and keep moving across several passes.
func twoTermInit(y *mat.Dense) (*flash.Term, *flash.Term) {
	n, p := y.Dims()
	t1 := coarseInit(y)

	resid := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			resid.Set(i, j, y.At(i, j)-t1.L[i]*t1.F[j])
		}
	}

	return t1, coarseInit(resid)
}

// TestRefine_ObjectiveMonotoneMultiTerm: with K=2 and a small inner cap the
// loop is forced through several outer passes, and the traced objective must
// stay non-decreasing across every pass boundary — the exclusion handed from
// the last term of one pass to the first term of the next is where sloppy
// residual bookkeeping shows up as an objective drop.
func TestRefine_ObjectiveMonotoneMultiTerm(t *testing.T) {
	for name, varType := range map[string]flash.VarType{
		"constant":  flash.VarConst,
		"by_column": flash.VarByColumn,
	} {
		t.Run(name, func(t *testing.T) {
			y, _, _ := simulateRankOne(12, 30, 12, 0.25)
			t1, t2 := twoTermInit(y)
			st := flash.NewState(t1, t2)

			// One warmup pass replaces the init's by-convention zero KL
			// corrections with solved ones, so every traced comparison below
			// is a genuine coordinate-ascent step.
			require.NoError(t, flash.Refine(y, nil, st,
				flash.WithSolver(ebnm.SolveNormal),
				flash.WithVarType(varType),
				flash.WithMaxIterSingle(2),
				flash.WithMaxIter(1),
			))

			var trace []float64
			require.NoError(t, flash.Refine(y, nil, st,
				flash.WithSolver(ebnm.SolveNormal),
				flash.WithVarType(varType),
				flash.WithMaxIterSingle(2),
				flash.WithTol(1e-9),
				flash.WithMaxIter(100),
				flash.WithObjectiveTrace(&trace),
			))
			// One pass records at most 4 objectives here (2 terms × inner
			// cap 2), so a longer trace proves a second pass ran.
			require.Greater(t, len(trace), 4, "expected more than one outer pass")

			for i := 1; i < len(trace); i++ {
				slack := 1e-8 * math.Max(1, math.Abs(trace[i-1]))
				assert.GreaterOrEqual(t, trace[i], trace[i-1]-slack,
					"objective decreased at step %d: %v -> %v", i, trace[i-1], trace[i])
			}
		})
	}
}

// TestRefine_SequentialRunsMultiplePasses: in Sequential mode every term is
// updated once per pass, so the first pass's improvement must carry the loop
// into further passes instead of stopping after a single sweep.
func TestRefine_SequentialRunsMultiplePasses(t *testing.T) {
	y, _, _ := simulateRankOne(13, 25, 10, 0.2)
	t1, t2 := twoTermInit(y)
	st := flash.NewState(t1, t2)

	var trace []float64
	require.NoError(t, flash.Refine(y, nil, st,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithSequential(),
		flash.WithTol(1e-9),
		flash.WithMaxIter(200),
		flash.WithObjectiveTrace(&trace),
	))

	// Sequential mode records exactly one objective per term per pass.
	require.Greater(t, len(trace), 2, "a crude init must not converge in one sweep")
	assert.Greater(t, trace[len(trace)-1], trace[0]+1e-9,
		"later passes must keep improving on the first sweep")
}

// TestRefine_SingleTermFixedPoint: K=1 reduces to alternating ridge-style
// posterior updates that reach a fixed point.
func TestRefine_SingleTermFixedPoint(t *testing.T) {
	y, _, trueF := simulateRankOne(4, 40, 10, 0.1)
	st := flash.NewState(coarseInit(y))

	objInit, err := flash.Objective(y, nil, st)
	require.NoError(t, err)

	var trace []float64
	require.NoError(t, flash.Refine(y, nil, st,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithTol(1e-9),
		flash.WithObjectiveTrace(&trace),
	))

	objFinal, err := flash.Objective(y, nil, st)
	require.NoError(t, err)
	assert.Greater(t, objFinal, objInit, "refinement must improve the objective")

	// Fixed point: the last recorded improvement is below tolerance.
	last := trace[len(trace)-1]
	prev := trace[len(trace)-2]
	assert.LessOrEqual(t, last-prev, 1e-9+1e-12, "loop must stop at a fixed point")

	r := stat.Correlation(st.Terms[0].F, trueF, nil)
	assert.Greater(t, math.Abs(r), 0.9, "fitted factor should track the truth")
}

// TestRefine_FixedOnesLoadingScenario: n=50, p=10, K=2, the second term
// pinned to an all-ones loading with only its factor free. The free term's
// factor must recover the generative factor and the objective must end
// strictly above its initialization value.
func TestRefine_FixedOnesLoadingScenario(t *testing.T) {
	n, p := 50, 10
	y, _, trueF := simulateRankOne(5, n, p, 0.1)

	free := coarseInit(y)
	pinned := flash.NewTerm(n, p)
	for i := 0; i < n; i++ {
		pinned.L[i] = 1
		pinned.L2[i] = 1
	}
	pinned.FixedL = make([]bool, n)
	for i := range pinned.FixedL {
		pinned.FixedL[i] = true
	}

	st := flash.NewState(free, pinned)
	objInit, err := flash.Objective(y, nil, st)
	require.NoError(t, err)

	require.NoError(t, flash.Refine(y, nil, st,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithTol(1e-8),
		flash.WithMaxIter(200),
	))

	objFinal, err := flash.Objective(y, nil, st)
	require.NoError(t, err)
	assert.Greater(t, objFinal, objInit, "objective must be strictly greater at convergence")

	r := stat.Correlation(st.Terms[0].F, trueF, nil)
	assert.Greater(t, math.Abs(r), 0.9, "correlation between fitted and true factor")

	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, st.Terms[1].L[i], "pinned loading must stay all-ones")
	}
}

// TestRefine_FullyMissing: with every entry missing the likelihood term is
// zero, updates reduce to skips and nothing degenerates numerically.
func TestRefine_FullyMissing(t *testing.T) {
	y, _, _ := simulateRankOne(6, 15, 7, 0.2)
	st := flash.NewState(coarseInit(y))
	before := st.Clone()

	missing := make([]bool, 15*7)
	for idx := range missing {
		missing[idx] = true
	}

	require.NoError(t, flash.Refine(y, missing, st))
	assert.Equal(t, before.Terms, st.Terms, "fully missing data cannot move any posterior")

	obj, err := flash.Objective(y, missing, st)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(obj), "objective must stay finite")
	assert.Equal(t, 0.0, obj, "objective reduces to the (zero) KL total")
}

// TestRefine_SequentialMatchesDefault: both schedules reach the same fixed
// point on identical inputs, though their trajectories differ.
func TestRefine_SequentialMatchesDefault(t *testing.T) {
	y, _, _ := simulateRankOne(7, 25, 9, 0.15)

	stDef := flash.NewState(coarseInit(y))
	stSeq := stDef.Clone()

	require.NoError(t, flash.Refine(y, nil, stDef,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithTol(1e-10),
		flash.WithMaxIter(500),
	))
	require.NoError(t, flash.Refine(y, nil, stSeq,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithTol(1e-10),
		flash.WithMaxIter(500),
		flash.WithSequential(),
	))

	objDef, err := flash.Objective(y, nil, stDef)
	require.NoError(t, err)
	objSeq, err := flash.Objective(y, nil, stSeq)
	require.NoError(t, err)

	assert.InDelta(t, objDef, objSeq, 1e-3, "schedules must agree on the fixed point")
}

// TestRefine_ByColumnVariance: the by-column precision is constant within a
// column and the run stays monotone.
func TestRefine_ByColumnVariance(t *testing.T) {
	y, _, _ := simulateRankOne(8, 20, 6, 0.2)
	st := flash.NewState(coarseInit(y))

	var trace []float64
	require.NoError(t, flash.Refine(y, nil, st,
		flash.WithSolver(ebnm.SolveNormal),
		flash.WithVarType(flash.VarByColumn),
		flash.WithObjectiveTrace(&trace),
	))
	require.NotNil(t, st.Tau)
	assert.Equal(t, flash.VarByColumn, st.Var)

	n, p := y.Dims()
	for j := 0; j < p; j++ {
		want := st.Tau.At(0, j)
		for i := 1; i < n; i++ {
			assert.Equal(t, want, st.Tau.At(i, j), "per-column precision must be row-constant")
		}
	}

	for i := 1; i < len(trace); i++ {
		slack := 1e-8 * math.Max(1, math.Abs(trace[i-1]))
		assert.GreaterOrEqual(t, trace[i], trace[i-1]-slack, "objective decreased at step %d", i)
	}
}

// TestState_Clone: clones are deep for every per-term vector.
func TestState_Clone(t *testing.T) {
	y, _, _ := simulateRankOne(9, 6, 4, 0.2)
	st := flash.NewState(coarseInit(y))
	st.Terms[0].FixedF = make([]bool, 4)

	c := st.Clone()
	c.Terms[0].L[0] += 1
	c.Terms[0].F2[1] += 1
	c.Terms[0].FixedF[2] = true

	assert.NotEqual(t, c.Terms[0].L[0], st.Terms[0].L[0], "loading must be deep-copied")
	assert.NotEqual(t, c.Terms[0].F2[1], st.Terms[0].F2[1], "second moment must be deep-copied")
	assert.False(t, st.Terms[0].FixedF[2], "fixed mask must be deep-copied")
}

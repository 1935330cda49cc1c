package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/ebmf/metrics"
)

func TestMSE(t *testing.T) {
	est := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	truth := mat.NewDense(2, 2, []float64{1, 2, 3, 6})

	mse, err := metrics.MSE(est, truth, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mse, 1e-12, "single error of 2 over 4 cells")

	// Masking the only erroneous cell zeroes the MSE.
	missing := []bool{false, false, false, true}
	mse, err = metrics.MSE(est, truth, missing)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mse)

	_, err = metrics.MSE(est, mat.NewDense(2, 3, nil), nil)
	assert.ErrorIs(t, err, metrics.ErrShapeMismatch)

	_, err = metrics.MSE(est, truth, make([]bool, 3))
	assert.ErrorIs(t, err, metrics.ErrShapeMismatch)

	allMissing := []bool{true, true, true, true}
	_, err = metrics.MSE(est, truth, allMissing)
	assert.ErrorIs(t, err, metrics.ErrEmptyInput)
}

func TestCoverage(t *testing.T) {
	lower := []float64{0, 0, 0, 0}
	upper := []float64{1, 1, 1, 1}
	truth := []float64{0.5, 2, -1, 1}

	cov, err := metrics.Coverage(lower, upper, truth)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, cov, 1e-12, "2 of 4 values inside their intervals")

	_, err = metrics.Coverage(lower[:2], upper, truth)
	assert.ErrorIs(t, err, metrics.ErrShapeMismatch)

	_, err = metrics.Coverage(nil, nil, nil)
	assert.ErrorIs(t, err, metrics.ErrEmptyInput)
}

func TestFactorCorrelation(t *testing.T) {
	truth := []float64{1, 2, 3, 4, 5}
	flipped := []float64{-1, -2, -3, -4, -5}

	r, err := metrics.FactorCorrelation(flipped, truth)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12, "sign flips must not penalize the correlation")

	_, err = metrics.FactorCorrelation(truth[:2], truth)
	assert.ErrorIs(t, err, metrics.ErrShapeMismatch)
}

func TestLocalFalseSignRate(t *testing.T) {
	mean := []float64{5, 0.01, 0, 2}
	second := []float64{25.01, 1.0001, 0, 4} // variances: 0.01, 1, 0, 0

	lfsr := metrics.LocalFalseSignRate(mean, second)
	require.Len(t, lfsr, 4)

	assert.Less(t, lfsr[0], 1e-6, "a strong effect has a near-certain sign")
	assert.Greater(t, lfsr[1], 0.4, "a weak effect has an uncertain sign")
	assert.Equal(t, 1.0, lfsr[2], "a degenerate zero posterior is maximally uncertain")
	assert.Equal(t, 0.0, lfsr[3], "a degenerate nonzero posterior is certain")

	for j, v := range lfsr {
		assert.GreaterOrEqual(t, v, 0.0, "entry %d", j)
		assert.LessOrEqual(t, v, 1.0, "entry %d", j)
	}
}

func TestSummarize(t *testing.T) {
	sum, err := metrics.Summarize([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.InDelta(t, 5.5, sum.Mean, 1e-12)
	assert.InDelta(t, 5.5, sum.Median, 1e-12)
	assert.GreaterOrEqual(t, sum.P90, 9.0)

	_, err = metrics.Summarize(nil)
	assert.ErrorIs(t, err, metrics.ErrEmptyInput)
}

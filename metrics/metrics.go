package metrics

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrShapeMismatch indicates operands of incompatible dimensions.
	ErrShapeMismatch = errors.New("metrics: shape mismatch")

	// ErrEmptyInput indicates there is nothing to aggregate.
	ErrEmptyInput = errors.New("metrics: empty input")
)

// MSE computes the mean squared error between est and truth over non-missing
// entries. The mask is row-major (true = excluded) and may be nil.
func MSE(est, truth mat.Matrix, missing []bool) (float64, error) {
	n, p := est.Dims()
	tn, tp := truth.Dims()
	if n != tn || p != tp {
		return 0, ErrShapeMismatch
	}
	if missing != nil && len(missing) != n*p {
		return 0, ErrShapeMismatch
	}

	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			if missing != nil && missing[i*p+j] {
				continue
			}
			d := est.At(i, j) - truth.At(i, j)
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return 0, ErrEmptyInput
	}

	return sum / float64(count), nil
}

// Coverage returns the fraction of truth entries falling inside the
// [lower, upper] credible intervals.
func Coverage(lower, upper, truth []float64) (float64, error) {
	if len(truth) == 0 {
		return 0, ErrEmptyInput
	}
	if len(lower) != len(truth) || len(upper) != len(truth) {
		return 0, ErrShapeMismatch
	}

	var hit int
	for j := range truth {
		if truth[j] >= lower[j] && truth[j] <= upper[j] {
			hit++
		}
	}

	return float64(hit) / float64(len(truth)), nil
}

// FactorCorrelation returns |corr(est, truth)|: rank-1 terms are identified
// only up to a joint sign flip of loading and factor, so the sign of the
// correlation is meaningless and the magnitude is what gets graded.
func FactorCorrelation(est, truth []float64) (float64, error) {
	if len(est) == 0 {
		return 0, ErrEmptyInput
	}
	if len(est) != len(truth) {
		return 0, ErrShapeMismatch
	}

	return math.Abs(stat.Correlation(est, truth, nil)), nil
}

// LocalFalseSignRate approximates the posterior wrong-sign probability of
// every effect from its posterior mean and second moment, treating the
// posterior as normal: lfsr_j = min(P(θ_j ≤ 0), P(θ_j ≥ 0)). Entries with a
// degenerate posterior variance grade 0 for a nonzero mean and 1 for a zero
// mean (the sign is then maximally uncertain).
func LocalFalseSignRate(postMean, postSecondMoment []float64) []float64 {
	out := make([]float64, len(postMean))
	for j := range postMean {
		v := postSecondMoment[j] - postMean[j]*postMean[j]
		switch {
		case v > 0:
			d := distuv.Normal{Mu: postMean[j], Sigma: math.Sqrt(v)}
			c := d.CDF(0)
			out[j] = math.Min(c, 1-c)
		case postMean[j] != 0:
			out[j] = 0
		default:
			out[j] = 1
		}
	}

	return out
}

// Summary is a compact description of one metric vector.
type Summary struct {
	Mean   float64
	Median float64
	P90    float64
}

// Summarize reduces values to mean / median / 90th percentile.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptyInput
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, err
	}
	median, err := stats.Median(values)
	if err != nil {
		return Summary{}, err
	}
	p90, err := stats.Percentile(values, 90)
	if err != nil {
		return Summary{}, err
	}

	return Summary{Mean: mean, Median: median, P90: p90}, nil
}

package sim

import (
	"errors"
	randv2 "math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrBadConfig indicates a Config outside the documented domain.
var ErrBadConfig = errors.New("sim: invalid configuration")

// Config describes one synthetic dataset.
//
// Fields:
//   - N, P, K        — matrix shape and true rank. All must be positive.
//   - NoiseSD        — shared noise standard deviation; must be ≥ 0.
//   - ColNoiseSD     — optional per-column noise standard deviations
//     (length P); overrides NoiseSD when non-empty.
//   - MissingRate    — probability an entry is masked, in [0, 1).
//   - LoadingSparsity, FactorSparsity — probability a true loading/factor
//     entry is exactly zero, in [0, 1).
//   - Seed           — PRNG seed; identical seeds give identical datasets.
type Config struct {
	N, P, K         int
	NoiseSD         float64
	ColNoiseSD      []float64
	MissingRate     float64
	LoadingSparsity float64
	FactorSparsity  float64
	Seed            int64
}

// Dataset is one simulated matrix with its generative ground truth.
type Dataset struct {
	// Y is the observed n×p matrix (noise and masking applied).
	Y *mat.Dense

	// Missing is the row-major n·p mask, true = masked. Nil when
	// MissingRate is zero.
	Missing []bool

	// TrueL (n×k) and TrueF (p×k) are the noiseless generative vectors.
	TrueL, TrueF *mat.Dense
}

// Generate draws a dataset from cfg. Deterministic for a fixed Seed.
func Generate(cfg Config) (*Dataset, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	src := randv2.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)+0x9e3779b9)
	rng := randv2.New(src)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	trueL := mat.NewDense(cfg.N, cfg.K, nil)
	for i := 0; i < cfg.N; i++ {
		for k := 0; k < cfg.K; k++ {
			if rng.Float64() >= cfg.LoadingSparsity {
				trueL.Set(i, k, normal.Rand())
			}
		}
	}
	trueF := mat.NewDense(cfg.P, cfg.K, nil)
	for j := 0; j < cfg.P; j++ {
		for k := 0; k < cfg.K; k++ {
			if rng.Float64() >= cfg.FactorSparsity {
				trueF.Set(j, k, normal.Rand())
			}
		}
	}

	y := mat.NewDense(cfg.N, cfg.P, nil)
	for i := 0; i < cfg.N; i++ {
		for j := 0; j < cfg.P; j++ {
			var signal float64
			for k := 0; k < cfg.K; k++ {
				signal += trueL.At(i, k) * trueF.At(j, k)
			}
			sd := cfg.NoiseSD
			if len(cfg.ColNoiseSD) > 0 {
				sd = cfg.ColNoiseSD[j]
			}
			y.Set(i, j, signal+sd*normal.Rand())
		}
	}

	var missing []bool
	if cfg.MissingRate > 0 {
		missing = make([]bool, cfg.N*cfg.P)
		for idx := range missing {
			missing[idx] = rng.Float64() < cfg.MissingRate
		}
	}

	return &Dataset{Y: y, Missing: missing, TrueL: trueL, TrueF: trueF}, nil
}

// validate fails fast on configurations outside the documented domain.
func validate(cfg Config) error {
	switch {
	case cfg.N <= 0 || cfg.P <= 0 || cfg.K <= 0:
		return ErrBadConfig
	case cfg.NoiseSD < 0:
		return ErrBadConfig
	case len(cfg.ColNoiseSD) > 0 && len(cfg.ColNoiseSD) != cfg.P:
		return ErrBadConfig
	case cfg.MissingRate < 0 || cfg.MissingRate >= 1:
		return ErrBadConfig
	case cfg.LoadingSparsity < 0 || cfg.LoadingSparsity >= 1:
		return ErrBadConfig
	case cfg.FactorSparsity < 0 || cfg.FactorSparsity >= 1:
		return ErrBadConfig
	}
	for _, sd := range cfg.ColNoiseSD {
		if sd < 0 {
			return ErrBadConfig
		}
	}

	return nil
}

// Package sim draws synthetic matrices from known low-rank generative
// models, the ground truth against which factorization fits are graded.
//
// A dataset is Y = L·Fᵀ + E with optional entrywise sparsity in the true
// loadings/factors, Gaussian noise that is homoskedastic or per-column, and
// an optional missing-at-random mask. Generation is fully deterministic for
// a fixed Config.Seed, so experiments and tests are reproducible bit for bit.
//
// Usage:
//
//	ds, err := sim.Generate(sim.Config{N: 200, P: 40, K: 3, NoiseSD: 0.5, Seed: 7})
//	// fit ds.Y / ds.Missing, then compare against ds.TrueL, ds.TrueF
package sim

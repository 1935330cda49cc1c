// Package metrics grades factorization fits against a known ground truth:
// mean squared error over observed entries, credible-interval coverage,
// sign-aligned factor correlation, a normal-approximation local false sign
// rate, and descriptive summaries of any metric vector.
//
// Usage:
//
//	mse, _ := metrics.MSE(fitted, truth, missing)
//	cov, _ := metrics.Coverage(lo, hi, truth)
//	lfsr   := metrics.LocalFalseSignRate(postMean, postSecondMoment)
//	sum, _ := metrics.Summarize(lfsr)
package metrics

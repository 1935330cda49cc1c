// SPDX-License-Identifier: MIT
package ebnm_test

import (
	"fmt"
	"math"

	"github.com/katalvlaran/ebmf/ebnm"
)

// ExampleSolvePointNormal shrinks a handful of noisy observations toward
// zero: weak signals collapse, strong ones survive.
func ExampleSolvePointNormal() {
	obs := []float64{0.1, -0.2, 8.0, 0.05, -7.5}
	se := []float64{1, 1, 1, 1, 1}

	res, err := ebnm.SolvePointNormal(obs, se, ebnm.DefaultParams())
	if err != nil {
		fmt.Println("solve failed:", err)
		return
	}

	shrunk := true
	for i, pm := range res.PosteriorMean {
		if math.Abs(pm) > math.Abs(obs[i]) {
			shrunk = false
		}
	}
	fmt.Println("every posterior mean shrunk:", shrunk)
	fmt.Println("strong signal keeps its sign:", res.PosteriorMean[2] > 0 && res.PosteriorMean[4] < 0)
	fmt.Println("slab probability fitted:", res.Prior.Pi0 >= 0 && res.Prior.Pi0 <= 1)

	// Output:
	// every posterior mean shrunk: true
	// strong signal keeps its sign: true
	// slab probability fitted: true
}

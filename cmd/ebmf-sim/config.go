// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/ebmf/sim"
)

// errBadConfig is returned for structurally invalid experiment files.
var errBadConfig = errors.New("ebmf-sim: invalid config")

// experiment is one YAML experiment file (see the sample below).
//
//	simulation:
//	  n: 200
//	  p: 60
//	  k: 3
//	  noise_sd: 0.5
//	  missing_rate: 0.1
//	  seed: 42
//	fit:
//	  rank: 3
//	  chunks: 4
//	  parallelism: 4
//	  clustered: true
//	  tol: 1.0e-7
//	  max_iter: 200
//	  solver: point-normal
type experiment struct {
	Simulation simulationConfig `yaml:"simulation"`
	Fit        fitConfig        `yaml:"fit"`
}

type simulationConfig struct {
	N               int       `yaml:"n"`
	P               int       `yaml:"p"`
	K               int       `yaml:"k"`
	NoiseSD         float64   `yaml:"noise_sd"`
	ColNoiseSD      []float64 `yaml:"col_noise_sd"`
	MissingRate     float64   `yaml:"missing_rate"`
	LoadingSparsity float64   `yaml:"loading_sparsity"`
	FactorSparsity  float64   `yaml:"factor_sparsity"`
	Seed            int64     `yaml:"seed"`
}

type fitConfig struct {
	Rank        int     `yaml:"rank"`
	Chunks      int     `yaml:"chunks"`
	Parallelism int     `yaml:"parallelism"`
	Clustered   bool    `yaml:"clustered"`
	ByColumn    bool    `yaml:"var_by_column"`
	Sequential  bool    `yaml:"sequential"`
	Tol         float64 `yaml:"tol"`
	MaxIter     int     `yaml:"max_iter"`
	Solver      string  `yaml:"solver"`
}

// loadExperiment parses the YAML file at path and fills in defaults: the fit
// rank defaults to the simulated rank, chunks to 1, and the solver to
// point-normal.
func loadExperiment(path string) (*experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ebmf-sim: read config: %w", err)
	}

	var exp experiment
	if err := yaml.Unmarshal(raw, &exp); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadConfig, err)
	}
	if exp.Fit.Rank == 0 {
		exp.Fit.Rank = exp.Simulation.K
	}
	if exp.Fit.Chunks == 0 {
		exp.Fit.Chunks = 1
	}
	if exp.Fit.Solver == "" {
		exp.Fit.Solver = "point-normal"
	}
	if exp.Fit.Solver != "normal" && exp.Fit.Solver != "point-normal" {
		return nil, fmt.Errorf("%w: unknown solver %q", errBadConfig, exp.Fit.Solver)
	}

	return &exp, nil
}

// simConfig converts the YAML block to a sim.Config, applying the CLI seed
// override when non-zero.
func (e *experiment) simConfig(seedOverride int64) sim.Config {
	cfg := sim.Config{
		N:               e.Simulation.N,
		P:               e.Simulation.P,
		K:               e.Simulation.K,
		NoiseSD:         e.Simulation.NoiseSD,
		ColNoiseSD:      e.Simulation.ColNoiseSD,
		MissingRate:     e.Simulation.MissingRate,
		LoadingSparsity: e.Simulation.LoadingSparsity,
		FactorSparsity:  e.Simulation.FactorSparsity,
		Seed:            e.Simulation.Seed,
	}
	if seedOverride != 0 {
		cfg.Seed = seedOverride
	}

	return cfg
}

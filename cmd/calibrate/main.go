// Package main fits spread parameters so a scenario reproduces a target
// burned area, using Nelder-Mead over base rate, fuel coefficient, and
// moisture decay.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/emberworks/firecast/config"
	"github.com/emberworks/firecast/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	targetArea := flag.Float64("target-area", 0, "Target burned area in m^2")
	endTime := flag.Float64("end-time", 360, "Simulated minutes per evaluation")
	seed := flag.Int64("seed", 1, "RNG seed used for every evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of objective evaluations")
	outputDir := flag.String("output", "", "Output directory for the fitted config")
	flag.Parse()

	if *targetArea <= 0 {
		log.Fatal("--target-area is required")
	}
	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	base, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	evals := 0
	objective := func(x []float64) float64 {
		evals++
		// Penalize non-physical parameters instead of letting a run misbehave.
		if x[0] <= 0 || x[1] <= 0 || x[2] < 0 {
			return math.Inf(1)
		}

		cfg := *base
		cfg.Spread.BaseRate = x[0]
		cfg.Spread.FuelCoefficient = x[1]
		cfg.Spread.MoistureFactorB = x[2]

		area := evaluate(&cfg, *seed, *endTime)
		diff := (area - *targetArea) / *targetArea
		return diff * diff
	}

	problem := optimize.Problem{Func: objective}
	x0 := []float64{
		base.Spread.BaseRate,
		base.Spread.FuelCoefficient,
		base.Spread.MoistureFactorB,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Iterations: 20,
		},
	}

	start := time.Now()
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		log.Fatalf("optimization failed: %v", err)
	}

	fitted := *base
	fitted.Spread.BaseRate = result.X[0]
	fitted.Spread.FuelCoefficient = result.X[1]
	fitted.Spread.MoistureFactorB = result.X[2]

	outPath := filepath.Join(*outputDir, "fitted_config.yaml")
	if err := fitted.WriteYAML(outPath); err != nil {
		log.Fatalf("writing fitted config: %v", err)
	}

	finalArea := evaluate(&fitted, *seed, *endTime)
	fmt.Printf("evaluations: %d (%s)\n", evals, time.Since(start).Round(time.Second))
	fmt.Printf("base_rate: %.4f  fuel_coefficient: %.4f  moisture_factor_b: %.4f\n",
		result.X[0], result.X[1], result.X[2])
	fmt.Printf("burned area: %.0f m^2 (target %.0f m^2)\n", finalArea, *targetArea)
	fmt.Printf("fitted config written to %s\n", outPath)
}

// evaluate runs one headless scenario and returns the final burned area.
func evaluate(cfg *config.Config, seed int64, endTime float64) float64 {
	automaton := sim.New(cfg, seed)
	if err := automaton.InitTerrain(); err != nil {
		log.Fatalf("terrain setup failed: %v", err)
	}

	center := []float64{
		float64(cfg.Terrain.Width) * cfg.Simulation.CellSize / 2,
		float64(cfg.Terrain.Height) * cfg.Simulation.CellSize / 2,
	}
	if err := automaton.SetIgnitionPoint(center, cfg.Simulation.CellSize); err != nil {
		log.Fatalf("ignition failed: %v", err)
	}

	result := automaton.RunSimulation(endTime)
	return result.Stats.BurnedArea
}

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emberworks/firecast/config"
	"github.com/emberworks/firecast/sim"
	"github.com/emberworks/firecast/telemetry"
)

// parsePoint parses "x,y" or "x,y,z" into a coordinate slice.
func parsePoint(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	point := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing ignition point %q: %w", s, err)
		}
		point = append(point, v)
	}
	return point, nil
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for final-state snapshot JSON (empty = disabled)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	ignite := flag.String("ignite", "", "Ignition point as x,y or x,y,z (empty = center of grid)")
	radius := flag.Float64("radius", 10.0, "Ignition radius in meters")
	endTime := flag.Float64("end-time", 0, "Simulated minutes to run (0 = configured maximum)")
	windSpeed := flag.Float64("wind-speed", -1, "Override wind speed (negative = use config)")
	windDir := flag.Float64("wind-dir", 0, "Wind bearing in degrees, used with -wind-speed")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	automaton := sim.New(cfg, rngSeed)
	if err := automaton.InitTerrain(); err != nil {
		slog.Error("terrain setup failed", "error", err)
		os.Exit(1)
	}

	if *windSpeed >= 0 {
		automaton.Engine().SetWind(*windSpeed, *windDir)
	}

	// Default ignition point: grid center.
	point := []float64{
		float64(cfg.Terrain.Width) * cfg.Simulation.CellSize / 2,
		float64(cfg.Terrain.Height) * cfg.Simulation.CellSize / 2,
	}
	if *ignite != "" {
		p, err := parsePoint(*ignite)
		if err != nil {
			slog.Error("invalid ignition point", "error", err)
			os.Exit(1)
		}
		point = p
	}
	if err := automaton.SetIgnitionPoint(point, *radius); err != nil {
		slog.Error("ignition failed", "error", err)
		os.Exit(1)
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("output setup failed", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("writing config snapshot failed", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"end_time_min", *endTime,
		"wind_enabled", cfg.Features.WindEffects,
		"crown_fire", cfg.Features.CrownFire,
		"spotting", cfg.Features.Spotting,
	)

	result := automaton.RunSimulation(*endTime)

	for _, entry := range result.History {
		if err := out.WriteHistory(entry); err != nil {
			slog.Error("writing history failed", "error", err)
			os.Exit(1)
		}
	}
	if err := out.WriteCells("surface", result.Surface); err != nil {
		slog.Error("writing surface dump failed", "error", err)
		os.Exit(1)
	}
	if err := out.WriteCells("canopy", result.Canopy); err != nil {
		slog.Error("writing canopy dump failed", "error", err)
		os.Exit(1)
	}

	if *snapshotDir != "" {
		path, err := telemetry.SaveSnapshot(automaton.Snapshot(), *snapshotDir)
		if err != nil {
			slog.Error("writing snapshot failed", "error", err)
			os.Exit(1)
		}
		slog.Info("snapshot saved", "path", path)
	}

	telemetry.LogSummary("surface", telemetry.Summarize(result.Surface))
	telemetry.LogSummary("canopy", telemetry.Summarize(result.Canopy))

	slog.Info("simulation complete",
		"final_time_min", result.FinalTime,
		"stats", result.Stats,
		"history_records", len(result.History),
	)
}

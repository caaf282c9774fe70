package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Simulation.TimeStep != 1 {
		t.Errorf("time step = %v, want 1", cfg.Simulation.TimeStep)
	}
	if cfg.Simulation.MaxTime != 4320 {
		t.Errorf("max time = %v, want 4320", cfg.Simulation.MaxTime)
	}
	if cfg.Spread.BaseRate != 0.5 {
		t.Errorf("base rate = %v, want 0.5", cfg.Spread.BaseRate)
	}
	if cfg.Spread.TerrainBoundaryY != 4000 {
		t.Errorf("terrain boundary = %v, want 4000", cfg.Spread.TerrainBoundaryY)
	}
	if cfg.Terrain.Mode != "ideal" {
		t.Errorf("terrain mode = %q, want ideal", cfg.Terrain.Mode)
	}
	if cfg.Features.WindEffects {
		t.Error("wind effects enabled by default, want disabled")
	}
	if !cfg.Features.CrownFire || !cfg.Features.Spotting || !cfg.Features.DynamicMoisture {
		t.Error("crown fire, spotting, and dynamic moisture must default on")
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	body := "spread:\n  base_rate: 0.9\nterrain:\n  width: 50\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing override: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spread.BaseRate != 0.9 {
		t.Errorf("base rate = %v, want override 0.9", cfg.Spread.BaseRate)
	}
	if cfg.Terrain.Width != 50 {
		t.Errorf("width = %d, want override 50", cfg.Terrain.Width)
	}
	// Untouched fields keep their defaults.
	if cfg.Spread.FuelCoefficient != 1.2 {
		t.Errorf("fuel coefficient = %v, want default 1.2", cfg.Spread.FuelCoefficient)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero time step", func(c *Config) { c.Simulation.TimeStep = 0 }},
		{"negative max time", func(c *Config) { c.Simulation.MaxTime = -1 }},
		{"zero cell size", func(c *Config) { c.Simulation.CellSize = 0 }},
		{"zero grid width", func(c *Config) { c.Terrain.Width = 0 }},
		{"unknown terrain mode", func(c *Config) { c.Terrain.Mode = "gis" }},
		{"one-component wind", func(c *Config) { c.Environment.WindVector = []float64{1} }},
		{"zero history interval", func(c *Config) { c.Telemetry.HistoryInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load(\"\"): %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWind(t *testing.T) {
	tests := []struct {
		name    string
		vector  []float64
		x, y, z float64
	}{
		{"empty", nil, 0, 0, 0},
		{"2d", []float64{3, 4}, 3, 4, 0},
		{"3d", []float64{1, 2, 0.5}, 1, 2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: EnvironmentConfig{WindVector: tt.vector}}
			x, y, z := cfg.Wind()
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("Wind() = %v/%v/%v, want %v/%v/%v", x, y, z, tt.x, tt.y, tt.z)
			}
		})
	}
}

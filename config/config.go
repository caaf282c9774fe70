// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation  SimulationConfig  `yaml:"simulation"`
	Spread      SpreadConfig      `yaml:"spread"`
	Energy      EnergyConfig      `yaml:"energy"`
	Crown       CrownConfig       `yaml:"crown"`
	Fire        FireConfig        `yaml:"fire"`
	Spotting    SpottingConfig    `yaml:"spotting"`
	Environment EnvironmentConfig `yaml:"environment"`
	Features    FeaturesConfig    `yaml:"features"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// SimulationConfig holds clock and grid geometry parameters.
type SimulationConfig struct {
	TimeStep float64 `yaml:"time_step"` // minutes per step
	MaxTime  float64 `yaml:"max_time"`  // cap on simulated minutes
	CellSize float64 `yaml:"cell_size"` // meters
}

// SpreadConfig holds the unified spread-rate model coefficients.
type SpreadConfig struct {
	BaseRate             float64 `yaml:"base_rate"`
	FuelCoefficient      float64 `yaml:"fuel_coefficient"`
	SlopeFactorA         float64 `yaml:"slope_factor_a"`
	MaxSlopeDeg          float64 `yaml:"max_slope_deg"`
	WindSpeedFactorC     float64 `yaml:"wind_speed_factor_c"`
	WindSpeedPowerD      float64 `yaml:"wind_speed_power_d"`
	WindDirectionFactorK float64 `yaml:"wind_direction_factor_k"`
	MoistureFactorB      float64 `yaml:"moisture_factor_b"`

	// TerrainBoundaryY decides which cell's slope/aspect drives the wind
	// projection when a spreading pair straddles the flat/slope line.
	TerrainBoundaryY float64 `yaml:"terrain_boundary_y"`
}

// EnergyConfig holds energy transfer and ignition threshold parameters.
type EnergyConfig struct {
	TransferMultiplier     float64 `yaml:"transfer_multiplier"`
	MinTransfer            float64 `yaml:"min_transfer"`             // floor per minute of dt
	BaseIgnition           float64 `yaml:"base_ignition"`            // kJ at zero moisture
	IgnitionMoistureFactor float64 `yaml:"ignition_moisture_factor"` // threshold = base * exp(f * moisture)
	EvaporationCoefficient float64 `yaml:"evaporation_coefficient"`  // moisture lost per kJ received
}

// CrownConfig holds crown-fire transition parameters.
type CrownConfig struct {
	Multiplier        float64 `yaml:"multiplier"`
	CriticalIntensity float64 `yaml:"critical_intensity"` // kW/m
}

// FireConfig holds combustion parameters.
type FireConfig struct {
	FuelConsumptionRate float64 `yaml:"fuel_consumption_rate"` // kg/m^2/min for surface fire
}

// SpottingConfig holds ember transport parameters.
type SpottingConfig struct {
	Probability float64 `yaml:"probability"`
	MaxDistance float64 `yaml:"max_distance"`
}

// EnvironmentConfig holds ambient conditions.
type EnvironmentConfig struct {
	WindVector []float64 `yaml:"wind_vector"` // horizontal ambient wind
}

// FeaturesConfig gates optional pipeline stages and engine terms.
type FeaturesConfig struct {
	WindEffects     bool `yaml:"wind_effects"`
	CrownFire       bool `yaml:"crown_fire"`
	Spotting        bool `yaml:"spotting"`
	DynamicMoisture bool `yaml:"dynamic_moisture"`
}

// TerrainConfig holds terrain generation parameters.
type TerrainConfig struct {
	Mode                 string  `yaml:"mode"` // "ideal" or "noise"
	Width                int     `yaml:"width"`
	Height               int     `yaml:"height"`
	SlopeAngleDeg        float64 `yaml:"slope_angle_deg"`
	IntersectionDistance float64 `yaml:"intersection_distance"`
	FuelType             string  `yaml:"fuel_type"`
	InitialFuelLoad      float64 `yaml:"initial_fuel_load"`
	InitialMoisture      float64 `yaml:"initial_moisture"`
	CanopyFuelLoad       float64 `yaml:"canopy_fuel_load"`
	CanopyMoisture       float64 `yaml:"canopy_moisture"`
	CanopyHeightOffset   float64 `yaml:"canopy_height_offset"`
	NoiseSeed            int64   `yaml:"noise_seed"`
	NoiseScale           float64 `yaml:"noise_scale"`
	NoiseOctaves         int     `yaml:"noise_octaves"`
	NoiseAmplitude       float64 `yaml:"noise_amplitude"`
}

// TelemetryConfig holds reporting parameters.
type TelemetryConfig struct {
	HistoryInterval float64 `yaml:"history_interval"` // simulated minutes
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the parameters a run cannot recover from. Physics
// coefficients are left to the operator; only structural mistakes are
// rejected here.
func (c *Config) Validate() error {
	if c.Simulation.TimeStep <= 0 {
		return fmt.Errorf("config: simulation.time_step must be positive, got %g", c.Simulation.TimeStep)
	}
	if c.Simulation.MaxTime <= 0 {
		return fmt.Errorf("config: simulation.max_time must be positive, got %g", c.Simulation.MaxTime)
	}
	if c.Simulation.CellSize <= 0 {
		return fmt.Errorf("config: simulation.cell_size must be positive, got %g", c.Simulation.CellSize)
	}
	if c.Terrain.Width <= 0 || c.Terrain.Height <= 0 {
		return fmt.Errorf("config: terrain dimensions must be positive, got %dx%d", c.Terrain.Width, c.Terrain.Height)
	}
	switch c.Terrain.Mode {
	case "ideal", "noise":
	default:
		return fmt.Errorf("config: unsupported terrain mode %q", c.Terrain.Mode)
	}
	if n := len(c.Environment.WindVector); n != 0 && n != 2 && n != 3 {
		return fmt.Errorf("config: environment.wind_vector must have 2 or 3 components, got %d", n)
	}
	if c.Telemetry.HistoryInterval <= 0 {
		return fmt.Errorf("config: telemetry.history_interval must be positive, got %g", c.Telemetry.HistoryInterval)
	}
	return nil
}

// Wind returns the ambient wind vector as x, y, z components.
// Missing components default to zero.
func (c *Config) Wind() (x, y, z float64) {
	v := c.Environment.WindVector
	if len(v) > 0 {
		x = v[0]
	}
	if len(v) > 1 {
		y = v[1]
	}
	if len(v) > 2 {
		z = v[2]
	}
	return x, y, z
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

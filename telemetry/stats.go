// Package telemetry aggregates run statistics, periodic history, and the
// CSV/JSON outputs reporting collaborators consume.
package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/emberworks/firecast/cell"
)

// Stats is the running aggregate the stepper recomputes every step.
type Stats struct {
	BurnedArea        float64 `csv:"burned_area"`         // m^2
	FirePerimeter     float64 `csv:"fire_perimeter"`      // m
	MaxFireIntensity  float64 `csv:"max_fire_intensity"`  // kW/m, running max over the run
	TotalFuelConsumed float64 `csv:"total_fuel_consumed"` // kg
}

// LogValue implements slog.LogValuer for structured logging.
func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("burned_area", s.BurnedArea),
		slog.Float64("fire_perimeter", s.FirePerimeter),
		slog.Float64("max_fire_intensity", s.MaxFireIntensity),
		slog.Float64("total_fuel_consumed", s.TotalFuelConsumed),
	)
}

// HistoryEntry is one periodic record of the run, flattened for CSV output.
type HistoryEntry struct {
	TimeMin           float64 `csv:"time_min"`
	BurnedArea        float64 `csv:"burned_area"`
	FirePerimeter     float64 `csv:"fire_perimeter"`
	MaxFireIntensity  float64 `csv:"max_fire_intensity"`
	TotalFuelConsumed float64 `csv:"total_fuel_consumed"`
	BurningSurface    int     `csv:"burning_surface"`
	BurningCanopy     int     `csv:"burning_canopy"`
}

// NewHistoryEntry builds a history record from the current clock, stats, and
// worklist sizes.
func NewHistoryEntry(timeMin float64, s Stats, burningSurface, burningCanopy int) HistoryEntry {
	return HistoryEntry{
		TimeMin:           timeMin,
		BurnedArea:        s.BurnedArea,
		FirePerimeter:     s.FirePerimeter,
		MaxFireIntensity:  s.MaxFireIntensity,
		TotalFuelConsumed: s.TotalFuelConsumed,
		BurningSurface:    burningSurface,
		BurningCanopy:     burningCanopy,
	}
}

// LayerSummary describes the fuel and moisture distribution of one layer at
// a point in time.
type LayerSummary struct {
	Cells     int `csv:"cells"`
	Unburned  int `csv:"unburned"`
	Burning   int `csv:"burning"`
	BurnedOut int `csv:"burned_out"`

	FuelMean float64 `csv:"fuel_mean"`
	FuelStd  float64 `csv:"fuel_std"`
	FuelP50  float64 `csv:"fuel_p50"`

	MoistureMean float64 `csv:"moisture_mean"`
	MoistureStd  float64 `csv:"moisture_std"`
	MoistureP50  float64 `csv:"moisture_p50"`
}

// Summarize computes the distribution summary of a layer.
func Summarize(layer []cell.Cell) LayerSummary {
	s := LayerSummary{Cells: len(layer)}
	if len(layer) == 0 {
		return s
	}

	fuel := make([]float64, 0, len(layer))
	moisture := make([]float64, 0, len(layer))
	for i := range layer {
		c := &layer[i]
		fuel = append(fuel, c.Dynamic.FuelLoad)
		moisture = append(moisture, c.Dynamic.Moisture)
		switch {
		case c.Dynamic.State == cell.Unburned:
			s.Unburned++
		case c.Dynamic.State.Burning():
			s.Burning++
		default:
			s.BurnedOut++
		}
	}

	s.FuelMean = stat.Mean(fuel, nil)
	s.FuelStd = stat.StdDev(fuel, nil)
	s.MoistureMean = stat.Mean(moisture, nil)
	s.MoistureStd = stat.StdDev(moisture, nil)

	sort.Float64s(fuel)
	sort.Float64s(moisture)
	s.FuelP50 = stat.Quantile(0.5, stat.Empirical, fuel, nil)
	s.MoistureP50 = stat.Quantile(0.5, stat.Empirical, moisture, nil)

	return s
}

// LogSummary logs a layer summary under the given layer name.
func LogSummary(name string, s LayerSummary) {
	slog.Info("layer summary",
		"layer", name,
		"cells", s.Cells,
		"unburned", s.Unburned,
		"burning", s.Burning,
		"burned_out", s.BurnedOut,
		"fuel_mean", s.FuelMean,
		"fuel_p50", s.FuelP50,
		"moisture_mean", s.MoistureMean,
		"moisture_p50", s.MoistureP50,
	)
}

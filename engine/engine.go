// Package engine implements the spread physics: the unified spread-rate
// model and the energy-transfer, fire-line-intensity, and crown-initiation
// calculations derived from it. All functions are deterministic in their
// inputs and the engine's configuration; the only mutable state is the
// ambient wind vector.
package engine

import (
	"math"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
)

// Params is the immutable coefficient bundle the engine is built from.
type Params struct {
	BaseRate        float64 // m/min at zero wind, zero slope
	FuelCoefficient float64

	SlopeFactorA float64
	MaxSlopeDeg  float64

	WindSpeedFactorC     float64
	WindSpeedPowerD      float64
	WindDirectionFactorK float64

	MoistureFactorB        float64
	EvaporationCoefficient float64

	TransferMultiplier float64
	MinTransfer        float64

	CrownMultiplier   float64 // reserved scaling for crown-driven spread
	CriticalIntensity float64

	BaseIgnition           float64
	IgnitionMoistureFactor float64

	// TerrainBoundaryY is the y coordinate of the flat/slope line used to
	// pick whose terrain parameters drive the wind projection.
	TerrainBoundaryY float64
}

// Engine computes pairwise spread rates and energy transfer between cells.
type Engine struct {
	p    Params
	wind cell.Vec3
}

// New builds an engine from the loaded configuration.
func New(cfg *config.Config) *Engine {
	wx, wy, wz := cfg.Wind()
	return &Engine{
		p: Params{
			BaseRate:               cfg.Spread.BaseRate,
			FuelCoefficient:        cfg.Spread.FuelCoefficient,
			SlopeFactorA:           cfg.Spread.SlopeFactorA,
			MaxSlopeDeg:            cfg.Spread.MaxSlopeDeg,
			WindSpeedFactorC:       cfg.Spread.WindSpeedFactorC,
			WindSpeedPowerD:        cfg.Spread.WindSpeedPowerD,
			WindDirectionFactorK:   cfg.Spread.WindDirectionFactorK,
			MoistureFactorB:        cfg.Spread.MoistureFactorB,
			EvaporationCoefficient: cfg.Energy.EvaporationCoefficient,
			TransferMultiplier:     cfg.Energy.TransferMultiplier,
			MinTransfer:            cfg.Energy.MinTransfer,
			CrownMultiplier:        cfg.Crown.Multiplier,
			CriticalIntensity:      cfg.Crown.CriticalIntensity,
			BaseIgnition:           cfg.Energy.BaseIgnition,
			IgnitionMoistureFactor: cfg.Energy.IgnitionMoistureFactor,
			TerrainBoundaryY:       cfg.Spread.TerrainBoundaryY,
		},
		wind: cell.Vec3{X: wx, Y: wy, Z: wz},
	}
}

// NewWithParams builds an engine directly from a parameter bundle.
func NewWithParams(p Params, wind cell.Vec3) *Engine {
	return &Engine{p: p, wind: wind}
}

// Params returns a copy of the engine's coefficient bundle.
func (e *Engine) Params() Params {
	return e.p
}

// Wind returns the current ambient wind vector.
func (e *Engine) Wind() cell.Vec3 {
	return e.wind
}

// SetWindVector replaces the ambient wind vector.
func (e *Engine) SetWindVector(w cell.Vec3) {
	e.wind = w
}

// SetWind sets the ambient wind from a speed and a compass-style bearing in
// degrees measured in the x/y plane.
func (e *Engine) SetWind(speed, directionDeg float64) {
	rad := directionDeg * math.Pi / 180
	e.wind = cell.Vec3{
		X: speed * math.Cos(rad),
		Y: speed * math.Sin(rad),
	}
}

// SlopeEffect returns the exponential slope amplification exp(a*phi).
// The slope magnitude is clamped to MaxSlopeDeg before exponentiation;
// the sign is preserved so downslope spread is damped.
func (e *Engine) SlopeEffect(slopeRad float64) float64 {
	slopeDeg := math.Abs(slopeRad) * 180 / math.Pi
	if slopeDeg > e.p.MaxSlopeDeg {
		slopeDeg = e.p.MaxSlopeDeg
	}
	limited := slopeDeg * math.Pi / 180
	if slopeRad < 0 {
		limited = -limited
	}
	return math.Exp(e.p.SlopeFactorA * limited)
}

// MoistureEffect returns the exponential moisture suppression exp(-b*m).
func (e *Engine) MoistureEffect(moisture float64) float64 {
	return math.Exp(-e.p.MoistureFactorB * moisture)
}

// WindEffect returns the wind-slope coupling factor for a spread direction.
// The ambient wind is projected onto the local tangent plane given by
// slope/aspect; the factor combines a projected-speed term
// 1 + c*|w|^d with a directional term exp(k*(cos(alpha)-1)) peaking when
// spread aligns with the projected wind. Degenerate geometry (no wind, wind
// perpendicular to the surface, zero spread vector) yields exactly 1.
func (e *Engine) WindEffect(spread cell.Vec3, localSlope, slopeAspect float64, enabled bool) float64 {
	if !enabled {
		return 1.0
	}
	windSpeed := e.wind.Norm()
	if windSpeed == 0 {
		return 1.0
	}

	// Surface normal: vertical on flat ground, tilted by slope/aspect on a hill.
	normal := cell.Vec3{Z: 1}
	if math.Abs(localSlope) >= 1e-6 {
		normal = cell.Vec3{
			X: -math.Sin(slopeAspect) * math.Sin(localSlope),
			Y: -math.Cos(slopeAspect) * math.Sin(localSlope),
			Z: math.Cos(localSlope),
		}
	}

	// Project the horizontal wind onto the tangent plane.
	projected := e.wind.Sub(normal.Scale(e.wind.Dot(normal)))
	projSpeed := projected.Norm()
	if projSpeed < 1e-6 {
		// Wind nearly perpendicular to the surface carries no spread signal.
		return 1.0
	}

	spreadSpeed := spread.Norm()
	if spreadSpeed == 0 {
		return 1.0
	}

	cosAlpha := projected.Dot(spread) / (projSpeed * spreadSpeed)
	// Guard against floating round-off outside [-1, 1].
	cosAlpha = math.Max(-1, math.Min(1, cosAlpha))

	speedEffect := 1.0 + e.p.WindSpeedFactorC*math.Pow(projSpeed, e.p.WindSpeedPowerD)
	directionEffect := math.Exp(e.p.WindDirectionFactorK * (cosAlpha - 1.0))

	return speedEffect * directionEffect
}

// crossesBoundary reports whether the pair straddles the flat/slope line.
// The boundary is a configured y threshold, independent of the terrain
// actually generated.
func (e *Engine) crossesBoundary(from, to *cell.Cell) bool {
	fromFlat := from.Static.Position.Y <= e.p.TerrainBoundaryY
	toFlat := to.Static.Position.Y <= e.p.TerrainBoundaryY
	return fromFlat != toFlat
}

// SpreadRate computes the spread rate from one cell toward another:
// R = R0 * Kwind * Ks * Km(target moisture) * Phi(local slope), floored at 0.
// The local slope is taken from the actual position delta; the terrain
// slope/aspect fed into the wind projection comes from the far-side cell
// when the pair crosses the flat/slope boundary, otherwise from the source.
func (e *Engine) SpreadRate(from, to *cell.Cell, windEnabled bool) float64 {
	spread := to.Static.Position.Sub(from.Static.Position)

	horizontal := spread.HorizontalNorm()
	localSlope := 0.0
	if horizontal != 0 {
		localSlope = math.Atan2(spread.Z, horizontal)
	}

	terrainSlope := from.Static.Slope
	terrainAspect := from.Static.Aspect
	if e.crossesBoundary(from, to) {
		terrainSlope = to.Static.Slope
		terrainAspect = to.Static.Aspect
	}

	rate := e.p.BaseRate *
		e.WindEffect(spread, terrainSlope, terrainAspect, windEnabled) *
		e.p.FuelCoefficient *
		e.MoistureEffect(to.Dynamic.Moisture) *
		e.SlopeEffect(localSlope)

	return math.Max(0, rate)
}

// EnergyTransfer computes the energy (kJ) delivered from a burning cell to a
// target over dt minutes. Non-burning sources and coincident positions
// contribute nothing. The heat flux is the source's fuel energy content
// (MJ-normalized) times the pairwise spread rate, attenuated by distance
// with a floor of 1 to keep adjacent transfer bounded.
func (e *Engine) EnergyTransfer(from, to *cell.Cell, dt float64, windEnabled bool) float64 {
	if !from.Dynamic.State.Burning() {
		return 0
	}
	distance := from.DistanceTo(to)
	if distance == 0 {
		return 0
	}

	rate := e.SpreadRate(from, to, windEnabled)
	heatFlux := from.Dynamic.FuelLoad * from.Static.HeatContent / 1000 * rate

	transfer := heatFlux / math.Max(1, distance) * dt
	transfer *= e.p.TransferMultiplier

	return math.Max(transfer, e.p.MinTransfer*dt)
}

// FireLineIntensity returns the indicator intensity (kW/m) of a surface-fire
// cell: mean spread rate toward its still-unburned neighbors, times heat
// content and fuel load. Cells not in surface fire, or with no unburned
// neighbors, score zero. layer is the backing slice the cell's neighbor
// indices refer to.
func (e *Engine) FireLineIntensity(c *cell.Cell, layer []cell.Cell) float64 {
	if c.Dynamic.State != cell.SurfaceFire {
		return 0
	}

	total := 0.0
	count := 0
	for _, ni := range c.Neighbors {
		n := &layer[ni]
		if n.Dynamic.State != cell.Unburned {
			continue
		}
		total += e.SpreadRate(c, n, true)
		count++
	}
	if count == 0 {
		return 0
	}

	avg := total / float64(count)
	return c.Static.HeatContent * avg * c.Dynamic.FuelLoad / 1000
}

// CriticalIntensity returns the Van Wagner critical fire-line intensity for
// the cell: (0.01 * CBH * (460 + 26*FMC))^1.5 with foliar moisture as a
// percentage.
func (e *Engine) CriticalIntensity(c *cell.Cell) float64 {
	cbh := c.Static.CanopyBaseHeight
	fmc := c.Dynamic.Moisture * 100
	return math.Pow(0.01*cbh*(460+26*fmc), 1.5)
}

// CanCrownFireInitiate reports whether a surface cell burns intensely enough
// to ignite the canopy above it.
func (e *Engine) CanCrownFireInitiate(c *cell.Cell, layer []cell.Cell) bool {
	return e.FireLineIntensity(c, layer) > e.CriticalIntensity(c)
}

// MoistureFromHeat applies the pre-heating feedback: received energy dries
// the target by energy * evaporation coefficient. Called by the stepper once
// per cell per step with the step's total received energy.
func (e *Engine) MoistureFromHeat(c *cell.Cell, energyReceived float64) {
	if energyReceived > 0 {
		c.UpdateMoisture(-energyReceived * e.p.EvaporationCoefficient)
	}
}

// Package cell defines the atomic simulation unit of the fire grid: one
// location in one fuel layer, with immutable terrain attributes and the
// mutable fire state the stepper advances.
package cell

import (
	"fmt"
	"math"
)

// State is the fire state of a cell. Transitions are monotonic:
// Unburned -> SurfaceFire|CrownFire -> BurnedOut, never backwards.
type State uint8

const (
	Unburned State = iota
	SurfaceFire
	CrownFire
	BurnedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unburned:
		return "unburned"
	case SurfaceFire:
		return "surface_fire"
	case CrownFire:
		return "crown_fire"
	case BurnedOut:
		return "burned_out"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Burning reports whether the state is an active fire variant.
func (s State) Burning() bool {
	return s == SurfaceFire || s == CrownFire
}

// Layer identifies which fuel layer a cell belongs to.
type Layer uint8

const (
	Surface Layer = iota
	Canopy
)

// String returns the layer name.
func (l Layer) String() string {
	if l == Canopy {
		return "canopy"
	}
	return "surface"
}

// Static holds the attributes fixed at terrain-build time.
type Static struct {
	ID       int
	Position Vec3
	Slope    float64 // terrain slope at the cell, radians
	Aspect   float64 // downslope bearing, radians, 0 = north
	FuelType string
	Layer    Layer

	CanopyBaseHeight  float64 // m
	CanopyBulkDensity float64 // kg/m^3
	HeatContent       float64 // kJ/kg
	IgnitionTemp      float64 // degC
}

// Dynamic holds the attributes the stepper mutates every step.
type Dynamic struct {
	State       State
	FuelLoad    float64 // kg/m^2, never negative
	Moisture    float64 // mass fraction, never negative
	Energy      float64 // accumulated kJ
	Temperature float64 // degC
	BurnTime    float64 // cumulative minutes burning
}

// Cell is one grid location in one layer. Neighbors are indices into the
// layer's backing slice; the cell never owns them.
type Cell struct {
	Static  Static
	Dynamic Dynamic

	// Neighbors holds up to 8 indices into the owning layer slice.
	Neighbors []int

	// Ignition threshold parameters, set by the terrain builder.
	baseIgnition   float64
	moistureFactor float64

	// Cached threshold: recomputed lazily after moisture changes or ignition.
	threshold      float64
	thresholdValid bool
}

// MaxNeighbors is the neighbor cap for the regular 8-connected grid.
const MaxNeighbors = 8

// New creates a cell with the given static attributes and initial dynamic
// state.
func New(static Static, dynamic Dynamic) Cell {
	return Cell{
		Static:         static,
		Dynamic:        dynamic,
		baseIgnition:   100.0,
		moistureFactor: 2.0,
	}
}

// SetIgnitionParams sets the threshold model coefficients and drops the
// cached value.
func (c *Cell) SetIgnitionParams(baseEnergy, moistureFactor float64) {
	c.baseIgnition = baseEnergy
	c.moistureFactor = moistureFactor
	c.thresholdValid = false
}

// IgnitionThreshold returns the energy a cell must accumulate before it can
// leave Unburned: base * exp(factor * moisture). The value is cached until
// moisture changes or the cell ignites.
func (c *Cell) IgnitionThreshold() float64 {
	if !c.thresholdValid {
		c.threshold = c.baseIgnition * math.Exp(c.moistureFactor*c.Dynamic.Moisture)
		c.thresholdValid = true
	}
	return c.threshold
}

// AddNeighbor appends a neighbor index if it is not already present and the
// cap has not been reached.
func (c *Cell) AddNeighbor(idx int) {
	if len(c.Neighbors) >= MaxNeighbors {
		return
	}
	for _, n := range c.Neighbors {
		if n == idx {
			return
		}
	}
	c.Neighbors = append(c.Neighbors, idx)
}

// DistanceTo returns the 3D Euclidean distance between the two cells.
func (c *Cell) DistanceTo(other *Cell) float64 {
	return other.Static.Position.Sub(c.Static.Position).Norm()
}

// CanIgnite reports whether the cell is unburned and has accumulated enough
// energy to cross its ignition threshold.
func (c *Cell) CanIgnite() bool {
	return c.Dynamic.State == Unburned && c.Dynamic.Energy >= c.IgnitionThreshold()
}

// Ignite transitions an unburned cell into the given burning state and
// resets its burn clock. Any other starting state is a no-op.
func (c *Cell) Ignite(kind State) {
	if c.Dynamic.State != Unburned {
		return
	}
	c.Dynamic.State = kind
	c.Dynamic.BurnTime = 0
	c.thresholdValid = false
}

// BurnOut forces the terminal state and zeroes the fuel load. Idempotent.
func (c *Cell) BurnOut() {
	c.Dynamic.State = BurnedOut
	c.Dynamic.FuelLoad = 0
}

// UpdateEnergy accumulates received thermal energy. It never changes state;
// ignition is decided separately by the stepper.
func (c *Cell) UpdateEnergy(delta float64) {
	c.Dynamic.Energy += delta
}

// UpdateMoisture shifts the moisture content, clamped at zero, and drops the
// cached ignition threshold.
func (c *Cell) UpdateMoisture(delta float64) {
	c.Dynamic.Moisture = math.Max(0, c.Dynamic.Moisture+delta)
	c.thresholdValid = false
}

// ConsumeFuel burns fuel at the given rate over dt minutes and advances the
// burn clock. Exhausting the fuel forces burn-out.
func (c *Cell) ConsumeFuel(rate, dt float64) {
	c.Dynamic.FuelLoad = math.Max(0, c.Dynamic.FuelLoad-rate*dt)
	c.Dynamic.BurnTime += dt
	if c.Dynamic.FuelLoad <= 0 {
		c.BurnOut()
	}
}

// String implements fmt.Stringer for debug output.
func (c *Cell) String() string {
	return fmt.Sprintf("Cell(id=%d, pos=(%.0f,%.0f,%.0f), state=%s, fuel=%.2f)",
		c.Static.ID,
		c.Static.Position.X, c.Static.Position.Y, c.Static.Position.Z,
		c.Dynamic.State, c.Dynamic.FuelLoad)
}

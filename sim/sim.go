// Package sim owns the cell populations and advances them through the
// discrete-time fire spread pipeline: energy transfer, ignition, fuel
// consumption, crown transition, spotting, and bookkeeping.
package sim

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
	"github.com/emberworks/firecast/engine"
	"github.com/emberworks/firecast/telemetry"
)

// spotSearchRadius is how far from an ember landing point a target surface
// cell may be, in meters.
const spotSearchRadius = 50.0

// Automaton is the simulation stepper: two cell layers, the burning
// worklists, the clock, and the run statistics.
type Automaton struct {
	cfg *config.Config
	eng *engine.Engine
	rng *rand.Rand

	dt  float64 // minutes per step
	now float64 // simulated minutes

	surface []cell.Cell
	canopy  []cell.Cell

	// Worklists: indices of currently burning cells, per layer. These are
	// the only cells evaluated for propagation and consumption each step.
	burningSurface []int
	burningCanopy  []int

	// surfaceToCanopy pairs each surface index with the canopy cell at the
	// same horizontal position, or -1 when none matches.
	surfaceToCanopy []int

	initialFuelLoad float64

	stats   telemetry.Stats
	history []telemetry.HistoryEntry

	nextHistoryAt float64
	seed          int64
}

// New creates an automaton with no terrain. Call InitTerrain before
// stepping.
func New(cfg *config.Config, seed int64) *Automaton {
	return &Automaton{
		cfg:             cfg,
		eng:             engine.New(cfg),
		rng:             rand.New(rand.NewSource(seed)),
		dt:              cfg.Simulation.TimeStep,
		initialFuelLoad: cfg.Terrain.InitialFuelLoad,
		seed:            seed,
	}
}

// Engine returns the spread-physics engine, for wind updates between runs.
func (a *Automaton) Engine() *engine.Engine {
	return a.eng
}

// SetLayers installs prebuilt cell populations. Both layers must already be
// wired with neighbor indices. Used by tests and by snapshot restore; normal
// runs go through InitTerrain.
func (a *Automaton) SetLayers(surface, canopy []cell.Cell) {
	a.surface = surface
	a.canopy = canopy
	a.burningSurface = a.burningSurface[:0]
	a.burningCanopy = a.burningCanopy[:0]
	a.pairLayers()

	// Cells ignited before installation go straight onto the worklists.
	for i := range a.surface {
		if a.surface[i].Dynamic.State.Burning() {
			a.burningSurface = append(a.burningSurface, i)
		}
	}
	for i := range a.canopy {
		if a.canopy[i].Dynamic.State.Burning() {
			a.burningCanopy = append(a.burningCanopy, i)
		}
	}
}

// pairLayers matches each surface cell with the canopy cell at the same
// horizontal position (|dx| and |dy| under 1 m). Positions are static, so
// the relation is computed once.
func (a *Automaton) pairLayers() {
	a.surfaceToCanopy = make([]int, len(a.surface))
	for i := range a.surface {
		a.surfaceToCanopy[i] = -1
		sp := a.surface[i].Static.Position

		// Aligned builders emit the layers in the same order.
		if i < len(a.canopy) {
			cp := a.canopy[i].Static.Position
			if math.Abs(cp.X-sp.X) < 1 && math.Abs(cp.Y-sp.Y) < 1 {
				a.surfaceToCanopy[i] = i
				continue
			}
		}
		for j := range a.canopy {
			cp := a.canopy[j].Static.Position
			if math.Abs(cp.X-sp.X) < 1 && math.Abs(cp.Y-sp.Y) < 1 {
				a.surfaceToCanopy[i] = j
				break
			}
		}
	}
}

// Surface returns the surface layer for read access.
func (a *Automaton) Surface() []cell.Cell { return a.surface }

// Canopy returns the canopy layer for read access.
func (a *Automaton) Canopy() []cell.Cell { return a.canopy }

// Stats returns the current aggregate statistics.
func (a *Automaton) Stats() telemetry.Stats { return a.stats }

// History returns the periodic history records collected so far.
func (a *Automaton) History() []telemetry.HistoryEntry { return a.history }

// Time returns the simulation clock in minutes.
func (a *Automaton) Time() float64 { return a.now }

// BurningCounts returns the sizes of the two worklists.
func (a *Automaton) BurningCounts() (surface, canopy int) {
	return len(a.burningSurface), len(a.burningCanopy)
}

// Extinct reports whether no cell is burning in either layer.
func (a *Automaton) Extinct() bool {
	return len(a.burningSurface) == 0 && len(a.burningCanopy) == 0
}

// targetKey identifies one cell across the two layers for per-step energy
// accumulation.
type targetKey struct {
	layer cell.Layer
	idx   int
}

// Step advances the simulation by one time increment through the fixed
// pipeline. Energy transfer sees only the cells burning at step start;
// cells ignited in this step begin propagating next step.
func (a *Automaton) Step() {
	a.energyTransferStage()
	a.ignitionStage()
	a.fuelConsumptionStage()
	if a.cfg.Features.CrownFire {
		a.crownTransitionStage()
	}
	if a.cfg.Features.Spotting {
		a.spottingStage()
	}

	a.now += a.dt
	a.updateStatistics()
	a.recordHistory()
}

// energyTransferStage accumulates the energy every unburned neighbor
// receives from the burning worklists, then applies each cell's total
// exactly once, followed by the moisture feedback for that total. The
// intermediate map keeps the stage atomic with respect to iteration order.
func (a *Automaton) energyTransferStage() {
	windEnabled := a.cfg.Features.WindEffects
	acc := make(map[targetKey]float64)

	for _, si := range a.burningSurface {
		from := &a.surface[si]
		for _, ni := range from.Neighbors {
			if a.surface[ni].Dynamic.State != cell.Unburned {
				continue
			}
			delta := a.eng.EnergyTransfer(from, &a.surface[ni], a.dt, windEnabled)
			acc[targetKey{cell.Surface, ni}] += delta
		}
	}
	for _, ci := range a.burningCanopy {
		from := &a.canopy[ci]
		for _, ni := range from.Neighbors {
			if a.canopy[ni].Dynamic.State != cell.Unburned {
				continue
			}
			delta := a.eng.EnergyTransfer(from, &a.canopy[ni], a.dt, windEnabled)
			acc[targetKey{cell.Canopy, ni}] += delta
		}
	}

	// Apply once per target. Targets are distinct cells, so map order does
	// not affect the outcome.
	for key, received := range acc {
		var c *cell.Cell
		if key.layer == cell.Surface {
			c = &a.surface[key.idx]
		} else {
			c = &a.canopy[key.idx]
		}
		c.UpdateEnergy(received)
		if a.cfg.Features.DynamicMoisture {
			a.eng.MoistureFromHeat(c, received)
		}
	}
}

// ignitionStage scans both full populations for cells whose accumulated
// energy crossed their threshold and moves them onto the worklists.
func (a *Automaton) ignitionStage() {
	for i := range a.surface {
		if a.surface[i].CanIgnite() {
			a.surface[i].Ignite(cell.SurfaceFire)
			a.burningSurface = append(a.burningSurface, i)
		}
	}
	for i := range a.canopy {
		if a.canopy[i].CanIgnite() {
			a.canopy[i].Ignite(cell.CrownFire)
			a.burningCanopy = append(a.burningCanopy, i)
		}
	}
}

// fuelConsumptionStage burns fuel on every worklist cell and drops the ones
// that burned out. Canopy fuel is consumed at twice the surface rate.
func (a *Automaton) fuelConsumptionStage() {
	rate := a.cfg.Fire.FuelConsumptionRate

	keep := a.burningSurface[:0]
	for _, i := range a.burningSurface {
		a.surface[i].ConsumeFuel(rate, a.dt)
		if a.surface[i].Dynamic.State != cell.BurnedOut {
			keep = append(keep, i)
		}
	}
	a.burningSurface = keep

	keep = a.burningCanopy[:0]
	for _, i := range a.burningCanopy {
		a.canopy[i].ConsumeFuel(rate*2, a.dt)
		if a.canopy[i].Dynamic.State != cell.BurnedOut {
			keep = append(keep, i)
		}
	}
	a.burningCanopy = keep
}

// crownTransitionStage ignites the canopy above surface cells whose
// fire-line intensity exceeds the Van Wagner critical threshold.
func (a *Automaton) crownTransitionStage() {
	for _, si := range a.burningSurface {
		if !a.eng.CanCrownFireInitiate(&a.surface[si], a.surface) {
			continue
		}
		ci := a.surfaceToCanopy[si]
		if ci < 0 || a.canopy[ci].Dynamic.State != cell.Unburned {
			continue
		}
		a.canopy[ci].Ignite(cell.CrownFire)
		a.burningCanopy = append(a.burningCanopy, ci)
	}
}

// spottingStage carries embers downwind from burning canopy cells. Each
// burning crown cell has a per-step chance of lofting an ember that lands at
// a wind-scaled distance within +-30 degrees of the wind bearing; the
// nearest unburned surface cell within the search radius ignites.
func (a *Automaton) spottingStage() {
	prob := a.cfg.Spotting.Probability

	// Snapshot the worklist length: embers ignite surface cells, which may
	// crown later, but never within this stage.
	burning := a.burningCanopy
	for _, ci := range burning {
		if a.rng.Float64() >= prob {
			continue
		}
		x, y, ok := a.spotLanding(&a.canopy[ci])
		if !ok {
			continue
		}
		ti := a.nearestUnburnedSurface(x, y)
		if ti < 0 {
			continue
		}
		a.surface[ti].Ignite(cell.SurfaceFire)
		a.burningSurface = append(a.burningSurface, ti)
	}
}

// spotLanding computes where an ember from the given crown cell lands.
// Returns ok=false in still air.
func (a *Automaton) spotLanding(from *cell.Cell) (x, y float64, ok bool) {
	wind := a.eng.Wind()
	speed := wind.Norm()
	if speed == 0 {
		return 0, 0, false
	}

	dist := math.Min(speed*50, a.cfg.Spotting.MaxDistance)
	bearing := math.Atan2(wind.Y, wind.X) + (a.rng.Float64()*2-1)*math.Pi/6

	p := from.Static.Position
	return p.X + dist*math.Cos(bearing), p.Y + dist*math.Sin(bearing), true
}

// nearestUnburnedSurface returns the index of the closest unburned surface
// cell within the spotting search radius of (x, y), or -1.
func (a *Automaton) nearestUnburnedSurface(x, y float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range a.surface {
		if a.surface[i].Dynamic.State != cell.Unburned {
			continue
		}
		p := a.surface[i].Static.Position
		d := math.Hypot(p.X-x, p.Y-y)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if bestDist > spotSearchRadius {
		return -1
	}
	return best
}

// updateStatistics recomputes the aggregate record from the surface layer.
func (a *Automaton) updateStatistics() {
	cellArea := a.cfg.Simulation.CellSize * a.cfg.Simulation.CellSize

	burnedCount := 0
	perimeterCount := 0
	fuelConsumed := 0.0
	for i := range a.surface {
		c := &a.surface[i]
		if c.Dynamic.State != cell.SurfaceFire && c.Dynamic.State != cell.BurnedOut {
			continue
		}
		burnedCount++
		fuelConsumed += a.initialFuelLoad - c.Dynamic.FuelLoad

		for _, ni := range c.Neighbors {
			if a.surface[ni].Dynamic.State == cell.Unburned {
				perimeterCount++
				break
			}
		}
	}

	a.stats.BurnedArea = float64(burnedCount) * cellArea
	a.stats.TotalFuelConsumed = fuelConsumed * cellArea
	a.stats.FirePerimeter = float64(perimeterCount) * a.cfg.Simulation.CellSize

	for _, si := range a.burningSurface {
		intensity := a.eng.FireLineIntensity(&a.surface[si], a.surface)
		if intensity > a.stats.MaxFireIntensity {
			a.stats.MaxFireIntensity = intensity
		}
	}
}

// recordHistory appends a periodic record once per configured interval.
func (a *Automaton) recordHistory() {
	if a.now < a.nextHistoryAt {
		return
	}
	a.history = append(a.history, telemetry.NewHistoryEntry(
		a.now, a.stats, len(a.burningSurface), len(a.burningCanopy)))
	a.nextHistoryAt += a.cfg.Telemetry.HistoryInterval
}

// Result is what RunSimulation hands back to reporting collaborators.
type Result struct {
	FinalTime float64
	Stats     telemetry.Stats
	Surface   []cell.Cell
	Canopy    []cell.Cell
	History   []telemetry.HistoryEntry
}

// RunSimulation steps until endTime or fire extinction, whichever comes
// first. endTime <= 0 means the configured maximum duration; the cap always
// applies, so a spotting-fed fire cannot loop forever.
func (a *Automaton) RunSimulation(endTime float64) Result {
	if endTime <= 0 || endTime > a.cfg.Simulation.MaxTime {
		endTime = a.cfg.Simulation.MaxTime
	}

	lastLogged := -1
	for a.now < endTime {
		if a.Extinct() {
			slog.Info("fire extinct", "time_min", a.now)
			break
		}
		a.Step()

		if hour := int(a.now) / 60; hour > lastLogged {
			lastLogged = hour
			ns, nc := a.BurningCounts()
			slog.Info("progress",
				"time_min", a.now,
				"burning_surface", ns,
				"burning_canopy", nc,
				"stats", a.stats,
			)
		}
	}

	return Result{
		FinalTime: a.now,
		Stats:     a.stats,
		Surface:   a.surface,
		Canopy:    a.canopy,
		History:   a.history,
	}
}

// Snapshot captures the automaton's mutable state.
func (a *Automaton) Snapshot() *telemetry.Snapshot {
	return &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    a.seed,
		TimeMin: a.now,
		Stats:   a.stats,
		Surface: telemetry.SnapLayer(a.surface),
		Canopy:  telemetry.SnapLayer(a.canopy),
	}
}

// Restore applies a snapshot onto the installed layers and rebuilds the
// worklists.
func (a *Automaton) Restore(s *telemetry.Snapshot) error {
	if err := telemetry.ApplyLayer(a.surface, s.Surface); err != nil {
		return err
	}
	if err := telemetry.ApplyLayer(a.canopy, s.Canopy); err != nil {
		return err
	}
	a.now = s.TimeMin
	a.stats = s.Stats

	a.burningSurface = a.burningSurface[:0]
	a.burningCanopy = a.burningCanopy[:0]
	for i := range a.surface {
		if a.surface[i].Dynamic.State.Burning() {
			a.burningSurface = append(a.burningSurface, i)
		}
	}
	for i := range a.canopy {
		if a.canopy[i].Dynamic.State.Burning() {
			a.burningCanopy = append(a.burningCanopy, i)
		}
	}
	return nil
}

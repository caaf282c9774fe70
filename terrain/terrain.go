// Package terrain builds the cell populations the simulation runs over:
// grid geometry, per-cell terrain attributes, 8-neighbor wiring, and
// ignition seeding.
package terrain

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
)

// Builder generates paired surface and canopy cell layers from the terrain
// configuration.
type Builder struct {
	cfg      *config.Config
	cellSize float64
}

// NewBuilder creates a terrain builder for the given configuration.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, cellSize: cfg.Simulation.CellSize}
}

// CellSize returns the grid spacing in meters.
func (b *Builder) CellSize() float64 {
	return b.cellSize
}

// Build generates both layers according to the configured terrain mode.
func (b *Builder) Build() (surface, canopy []cell.Cell, err error) {
	switch b.cfg.Terrain.Mode {
	case "ideal":
		surface, canopy, err = b.buildIdeal()
	case "noise":
		surface, canopy, err = b.buildNoise()
	default:
		return nil, nil, fmt.Errorf("terrain: unsupported mode %q", b.cfg.Terrain.Mode)
	}
	if err != nil {
		return nil, nil, err
	}

	width, height := b.cfg.Terrain.Width, b.cfg.Terrain.Height
	wireNeighbors(surface, width, height)
	wireNeighbors(canopy, width, height)
	return surface, canopy, nil
}

// buildIdeal generates the analytic flat-plus-incline terrain: slope zero up
// to the intersection distance along y, a constant-angle hillside beyond it.
func (b *Builder) buildIdeal() (surface, canopy []cell.Cell, err error) {
	tc := b.cfg.Terrain
	fuel, err := FuelByName(tc.FuelType)
	if err != nil {
		return nil, nil, err
	}

	slopeRad := tc.SlopeAngleDeg * math.Pi / 180
	surface = make([]cell.Cell, 0, tc.Width*tc.Height)
	canopy = make([]cell.Cell, 0, tc.Width*tc.Height)
	id := 0

	for i := 0; i < tc.Height; i++ {
		for j := 0; j < tc.Width; j++ {
			x := float64(j) * b.cellSize
			y := float64(i) * b.cellSize

			z, localSlope, localAspect := 0.0, 0.0, 0.0
			if y > tc.IntersectionDistance {
				z = (y - tc.IntersectionDistance) * math.Tan(slopeRad)
				localSlope = slopeRad
				localAspect = math.Pi / 2
			}

			sc, cc := b.makePair(id, fuel, cell.Vec3{X: x, Y: y, Z: z}, localSlope, localAspect)
			surface = append(surface, sc)
			canopy = append(canopy, cc)
			id++
		}
	}
	return surface, canopy, nil
}

// buildNoise generates rolling terrain from fractal simplex noise and
// estimates per-cell slope/aspect by central differences on the elevation
// field. A second noise channel perturbs the initial surface moisture.
func (b *Builder) buildNoise() (surface, canopy []cell.Cell, err error) {
	tc := b.cfg.Terrain
	fuel, err := FuelByName(tc.FuelType)
	if err != nil {
		return nil, nil, err
	}

	elevNoise := opensimplex.NewNormalized(tc.NoiseSeed)
	wetNoise := opensimplex.NewNormalized(tc.NoiseSeed + 1)

	elevation := make([]float64, tc.Width*tc.Height)
	for i := 0; i < tc.Height; i++ {
		for j := 0; j < tc.Width; j++ {
			x := float64(j) * b.cellSize
			y := float64(i) * b.cellSize
			elevation[i*tc.Width+j] = octaveNoise(elevNoise, x*tc.NoiseScale, y*tc.NoiseScale, tc.NoiseOctaves) * tc.NoiseAmplitude
		}
	}

	at := func(i, j int) float64 {
		if i < 0 {
			i = 0
		}
		if i >= tc.Height {
			i = tc.Height - 1
		}
		if j < 0 {
			j = 0
		}
		if j >= tc.Width {
			j = tc.Width - 1
		}
		return elevation[i*tc.Width+j]
	}

	surface = make([]cell.Cell, 0, tc.Width*tc.Height)
	canopy = make([]cell.Cell, 0, tc.Width*tc.Height)
	id := 0

	for i := 0; i < tc.Height; i++ {
		for j := 0; j < tc.Width; j++ {
			x := float64(j) * b.cellSize
			y := float64(i) * b.cellSize
			z := elevation[i*tc.Width+j]

			dzdx := (at(i, j+1) - at(i, j-1)) / (2 * b.cellSize)
			dzdy := (at(i+1, j) - at(i-1, j)) / (2 * b.cellSize)

			localSlope := math.Atan(math.Hypot(dzdx, dzdy))
			// Downslope bearing with 0 = north (+y).
			localAspect := math.Atan2(-dzdx, -dzdy)

			sc, cc := b.makePair(id, fuel, cell.Vec3{X: x, Y: y, Z: z}, localSlope, localAspect)

			// Wetter hollows, drier ridges.
			wet := wetNoise.Eval2(x*tc.NoiseScale, y*tc.NoiseScale)
			sc.Dynamic.Moisture = math.Max(0, tc.InitialMoisture*(0.8+0.4*wet))

			surface = append(surface, sc)
			canopy = append(canopy, cc)
			id++
		}
	}
	return surface, canopy, nil
}

// makePair creates the surface cell and its canopy counterpart at one grid
// location. Canopy IDs are offset by the grid size so IDs stay unique across
// layers.
func (b *Builder) makePair(id int, fuel FuelModel, pos cell.Vec3, slope, aspect float64) (sc, cc cell.Cell) {
	tc := b.cfg.Terrain
	gridSize := tc.Width * tc.Height

	sc = cell.New(
		cell.Static{
			ID:                id,
			Position:          pos,
			Slope:             slope,
			Aspect:            aspect,
			FuelType:          fuel.Name,
			Layer:             cell.Surface,
			CanopyBaseHeight:  fuel.CanopyBaseHeight,
			CanopyBulkDensity: fuel.CanopyBulkDensity,
			HeatContent:       fuel.HeatContent,
			IgnitionTemp:      fuel.IgnitionTemp,
		},
		cell.Dynamic{
			State:       cell.Unburned,
			FuelLoad:    tc.InitialFuelLoad,
			Moisture:    tc.InitialMoisture,
			Temperature: 20,
		},
	)
	sc.SetIgnitionParams(b.cfg.Energy.BaseIgnition, b.cfg.Energy.IgnitionMoistureFactor)

	cc = cell.New(
		cell.Static{
			ID:                id + gridSize,
			Position:          cell.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z + tc.CanopyHeightOffset},
			Slope:             slope,
			Aspect:            aspect,
			FuelType:          fuel.Name,
			Layer:             cell.Canopy,
			CanopyBaseHeight:  fuel.CanopyBaseHeight,
			CanopyBulkDensity: fuel.CanopyBulkDensity,
			HeatContent:       fuel.HeatContent,
			IgnitionTemp:      fuel.IgnitionTemp,
		},
		cell.Dynamic{
			State:       cell.Unburned,
			FuelLoad:    tc.CanopyFuelLoad,
			Moisture:    tc.CanopyMoisture,
			Temperature: 20,
		},
	)
	cc.SetIgnitionParams(b.cfg.Energy.BaseIgnition, b.cfg.Energy.IgnitionMoistureFactor)

	return sc, cc
}

// wireNeighbors links every cell to its 8-connected grid neighbors by index.
func wireNeighbors(cells []cell.Cell, width, height int) {
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			center := i*width + j
			for di := -1; di <= 1; di++ {
				for dj := -1; dj <= 1; dj++ {
					if di == 0 && dj == 0 {
						continue
					}
					ni, nj := i+di, j+dj
					if ni < 0 || ni >= height || nj < 0 || nj >= width {
						continue
					}
					cells[center].AddNeighbor(ni*width + nj)
				}
			}
		}
	}
}

// IgniteWithin transitions every cell within radius of the target point
// directly to surface fire, bypassing the energy threshold. This is the only
// way fire is ever seeded. The point must have 2 (x, y) or 3 (x, y, z)
// components; distance uses z only when provided. Returns the indices of the
// ignited cells. A malformed point is rejected before any cell is mutated.
func IgniteWithin(cells []cell.Cell, point []float64, radius float64) ([]int, error) {
	var useZ bool
	switch len(point) {
	case 2:
	case 3:
		useZ = true
	default:
		return nil, fmt.Errorf("terrain: ignition point must be (x, y) or (x, y, z), got %d components", len(point))
	}

	var ignited []int
	for i := range cells {
		c := &cells[i]
		p := c.Static.Position
		dx, dy := p.X-point[0], p.Y-point[1]
		dist := math.Hypot(dx, dy)
		if useZ {
			dz := p.Z - point[2]
			dist = math.Sqrt(dx*dx + dy*dy + dz*dz)
		}
		if dist <= radius && c.Dynamic.State == cell.Unburned {
			c.Ignite(cell.SurfaceFire)
			ignited = append(ignited, i)
		}
	}
	return ignited, nil
}

// octaveNoise sums noise octaves with doubling frequency and halving
// amplitude, normalized back to [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total, amplitude, frequency, maxValue := 0.0, 1.0, 1.0, 0.0
	for o := 0; o < octaves; o++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return total / maxValue
}

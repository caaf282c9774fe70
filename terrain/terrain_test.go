package terrain

import (
	"math"
	"testing"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
)

// testConfig loads defaults and shrinks the grid for fast builds.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Terrain.Width = 10
	cfg.Terrain.Height = 10
	return cfg
}

// ---------- Fuel catalog ----------

func TestFuelByName(t *testing.T) {
	m, err := FuelByName("pine")
	if err != nil {
		t.Fatalf("FuelByName(pine): %v", err)
	}
	if m.HeatContent != 18500 {
		t.Errorf("pine heat content = %v, want 18500", m.HeatContent)
	}
	if m.CanopyBaseHeight != 3.0 {
		t.Errorf("pine canopy base height = %v, want 3.0", m.CanopyBaseHeight)
	}
}

func TestFuelByName_Unknown(t *testing.T) {
	if _, err := FuelByName("plutonium"); err == nil {
		t.Error("expected error for unknown fuel type")
	}
}

// ---------- Ideal terrain ----------

func TestBuildIdeal_Geometry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terrain.IntersectionDistance = 40 // rows 0-4 flat, 5-9 sloped
	cfg.Terrain.SlopeAngleDeg = 30

	surface, canopy, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(surface) != 100 || len(canopy) != 100 {
		t.Fatalf("layer sizes = %d/%d, want 100/100", len(surface), len(canopy))
	}

	// Flat cell on the near side of the intersection line.
	flat := surface[2*10+3]
	if flat.Static.Position.Z != 0 || flat.Static.Slope != 0 {
		t.Errorf("flat cell has z=%v slope=%v, want 0/0", flat.Static.Position.Z, flat.Static.Slope)
	}

	// Sloped cell: z = (y - intersection) * tan(slope).
	sloped := surface[7*10+3]
	wantZ := (70.0 - 40.0) * math.Tan(30*math.Pi/180)
	if math.Abs(sloped.Static.Position.Z-wantZ) > 1e-9 {
		t.Errorf("sloped cell z = %v, want %v", sloped.Static.Position.Z, wantZ)
	}
	if math.Abs(sloped.Static.Slope-30*math.Pi/180) > 1e-9 {
		t.Errorf("sloped cell slope = %v, want 30 deg", sloped.Static.Slope)
	}
	if math.Abs(sloped.Static.Aspect-math.Pi/2) > 1e-9 {
		t.Errorf("sloped cell aspect = %v, want pi/2", sloped.Static.Aspect)
	}
}

func TestBuildIdeal_CanopyPairing(t *testing.T) {
	cfg := testConfig(t)
	surface, canopy, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range surface {
		sp := surface[i].Static.Position
		cp := canopy[i].Static.Position
		if sp.X != cp.X || sp.Y != cp.Y {
			t.Fatalf("cell %d: canopy not above surface (%v vs %v)", i, sp, cp)
		}
		if math.Abs(cp.Z-(sp.Z+cfg.Terrain.CanopyHeightOffset)) > 1e-9 {
			t.Fatalf("cell %d: canopy z offset = %v, want %v", i, cp.Z-sp.Z, cfg.Terrain.CanopyHeightOffset)
		}
		if canopy[i].Static.Layer != cell.Canopy {
			t.Fatalf("cell %d: canopy layer tag = %v", i, canopy[i].Static.Layer)
		}
	}

	if canopy[0].Static.ID != 100 {
		t.Errorf("canopy IDs must be offset by grid size, got %d", canopy[0].Static.ID)
	}
}

func TestNeighborWiring(t *testing.T) {
	cfg := testConfig(t)
	surface, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		name string
		idx  int
		want int
	}{
		{"corner", 0, 3},
		{"edge", 5, 5},
		{"interior", 5*10 + 5, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(surface[tt.idx].Neighbors); got != tt.want {
				t.Errorf("cell %d has %d neighbors, want %d", tt.idx, got, tt.want)
			}
		})
	}

	// Symmetry on the regular grid.
	for i := range surface {
		for _, n := range surface[i].Neighbors {
			found := false
			for _, back := range surface[n].Neighbors {
				if back == i {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("neighbor relation %d->%d not symmetric", i, n)
			}
		}
	}
}

// ---------- Noise terrain ----------

func TestBuildNoise_DeterministicPerSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terrain.Mode = "noise"
	cfg.Terrain.NoiseSeed = 7

	s1, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s2, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range s1 {
		if s1[i].Static.Position != s2[i].Static.Position {
			t.Fatalf("cell %d: positions differ between identical builds", i)
		}
	}
}

func TestBuildNoise_SaneAttributes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terrain.Mode = "noise"
	cfg.Terrain.NoiseSeed = 7

	surface, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for i := range surface {
		c := &surface[i]
		if c.Static.Slope < 0 || c.Static.Slope >= math.Pi/2 {
			t.Fatalf("cell %d: slope %v out of [0, pi/2)", i, c.Static.Slope)
		}
		if c.Dynamic.Moisture < 0 {
			t.Fatalf("cell %d: negative moisture %v", i, c.Dynamic.Moisture)
		}
		if c.Static.Position.Z < 0 || c.Static.Position.Z > cfg.Terrain.NoiseAmplitude {
			t.Fatalf("cell %d: elevation %v outside noise amplitude", i, c.Static.Position.Z)
		}
	}
}

func TestBuild_UnsupportedMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Terrain.Mode = "gis"

	if _, _, err := NewBuilder(cfg).Build(); err == nil {
		t.Error("expected error for unsupported terrain mode")
	}
}

// ---------- Ignition seeding ----------

func TestIgniteWithin_SingleCell(t *testing.T) {
	cfg := testConfig(t)
	surface, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Unit spacing is cell_size=10; a radius of 5 around an exact cell
	// position covers exactly that cell.
	ignited, err := IgniteWithin(surface, []float64{40, 40}, 5)
	if err != nil {
		t.Fatalf("IgniteWithin: %v", err)
	}
	if len(ignited) != 1 {
		t.Fatalf("ignited %d cells, want exactly 1", len(ignited))
	}

	burning := 0
	for i := range surface {
		if surface[i].Dynamic.State == cell.SurfaceFire {
			burning++
		} else if surface[i].Dynamic.State != cell.Unburned {
			t.Fatalf("cell %d in unexpected state %v", i, surface[i].Dynamic.State)
		}
	}
	if burning != 1 {
		t.Errorf("%d cells burning after seeding, want 1", burning)
	}
}

func TestIgniteWithin_3DPoint(t *testing.T) {
	cfg := testConfig(t)
	surface, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// With z far above the terrain, the 3D distance exceeds the radius.
	ignited, err := IgniteWithin(surface, []float64{40, 40, 100}, 5)
	if err != nil {
		t.Fatalf("IgniteWithin: %v", err)
	}
	if len(ignited) != 0 {
		t.Errorf("ignited %d cells, want 0 for distant 3D point", len(ignited))
	}
}

func TestIgniteWithin_BadArity(t *testing.T) {
	cfg := testConfig(t)
	surface, _, err := NewBuilder(cfg).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, point := range [][]float64{{}, {1}, {1, 2, 3, 4}} {
		if _, err := IgniteWithin(surface, point, 5); err == nil {
			t.Errorf("expected arity error for point %v", point)
		}
	}

	// The rejection must happen before any mutation.
	for i := range surface {
		if surface[i].Dynamic.State != cell.Unburned {
			t.Fatalf("cell %d mutated by rejected ignition", i)
		}
	}
}

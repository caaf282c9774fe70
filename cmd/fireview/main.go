// Fire spread viewer - steps a scenario live and draws both fuel layers.
//
// Usage: go run ./cmd/fireview [-config path] [-seed n]
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
	"github.com/emberworks/firecast/sim"
)

const (
	windowWidth  = 1100
	windowHeight = 820
	panelHeight  = 90
)

// cellColor maps a surface cell to its display color. Unburned cells fade
// with remaining fuel, burning cells glow, burned-out cells go gray.
func cellColor(c *cell.Cell, maxFuel float64) rl.Color {
	switch c.Dynamic.State {
	case cell.SurfaceFire:
		return rl.Orange
	case cell.CrownFire:
		return rl.Red
	case cell.BurnedOut:
		return rl.DarkGray
	}
	frac := 0.0
	if maxFuel > 0 {
		frac = c.Dynamic.FuelLoad / maxFuel
	}
	g := uint8(90 + 120*frac)
	return rl.Color{R: 30, G: g, B: 30, A: 255}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	radius := flag.Float64("radius", 10.0, "Ignition radius in meters")
	flag.Parse()

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
	center := []float64{
		float64(cfg.Terrain.Width) * cfg.Simulation.CellSize / 2,
		float64(cfg.Terrain.Height) * cfg.Simulation.CellSize / 2,
	}
	if err := automaton.SetIgnitionPoint(center, *radius); err != nil {
		slog.Error("ignition failed", "error", err)
		os.Exit(1)
	}

	rl.InitWindow(windowWidth, windowHeight, "Firecast")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	gridW, gridH := cfg.Terrain.Width, cfg.Terrain.Height
	viewH := windowHeight - panelHeight
	px := float32(windowWidth) / float32(gridW)
	py := float32(viewH) / float32(gridH)

	paused := false
	stepsPerFrame := float32(1)

	for !rl.WindowShouldClose() {
		if !paused && !automaton.Extinct() {
			for s := 0; s < int(stepsPerFrame); s++ {
				automaton.Step()
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		surface := automaton.Surface()
		canopy := automaton.Canopy()
		maxFuel := cfg.Terrain.InitialFuelLoad

		for i := range surface {
			col := i % gridW
			row := i / gridW
			x := float32(col) * px
			y := float32(viewH) - float32(row+1)*py
			rl.DrawRectangle(int32(x), int32(y), int32(px)+1, int32(py)+1, cellColor(&surface[i], maxFuel))

			// Crown fire overlay as a smaller inner mark.
			if canopy[i].Dynamic.State == cell.CrownFire {
				rl.DrawRectangle(int32(x+px/4), int32(y+py/4), int32(px/2)+1, int32(py/2)+1, rl.Red)
			}
		}

		// Control panel
		panelY := float32(viewH)
		rl.DrawRectangle(0, int32(panelY), windowWidth, panelHeight, rl.RayWhite)

		if gui.Button(rl.Rectangle{X: 10, Y: panelY + 10, Width: 110, Height: 30}, pauseLabel(paused)) {
			paused = !paused
		}

		rl.DrawText("steps/frame", 140, int32(panelY)+10, 12, rl.Gray)
		stepsPerFrame = gui.SliderBar(
			rl.Rectangle{X: 140, Y: panelY + 28, Width: 160, Height: 20},
			"1", "20",
			stepsPerFrame, 1, 20,
		)

		ns, nc := automaton.BurningCounts()
		stats := automaton.Stats()
		status := fmt.Sprintf("t=%.0f min  burning: %d surface / %d canopy  area: %.0f m^2  max I: %.0f kW/m",
			automaton.Time(), ns, nc, stats.BurnedArea, stats.MaxFireIntensity)
		rl.DrawText(status, 320, int32(panelY)+18, 16, rl.DarkGray)
		if automaton.Extinct() {
			rl.DrawText("fire extinct", 320, int32(panelY)+44, 16, rl.Maroon)
		}

		rl.EndDrawing()
	}
}

func pauseLabel(paused bool) string {
	if paused {
		return "Resume"
	}
	return "Pause"
}

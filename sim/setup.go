package sim

import (
	"fmt"
	"log/slog"

	"github.com/emberworks/firecast/terrain"
)

// InitTerrain builds both cell layers from the configured terrain mode and
// installs them. Fatal at setup: an unsupported mode or unknown fuel type is
// returned as an error before any simulation state exists.
func (a *Automaton) InitTerrain() error {
	builder := terrain.NewBuilder(a.cfg)
	surface, canopy, err := builder.Build()
	if err != nil {
		return fmt.Errorf("initializing terrain: %w", err)
	}
	a.SetLayers(surface, canopy)

	slog.Info("terrain built",
		"mode", a.cfg.Terrain.Mode,
		"width", a.cfg.Terrain.Width,
		"height", a.cfg.Terrain.Height,
		"cells_per_layer", len(surface),
	)
	return nil
}

// SetIgnitionPoint seeds fire in every surface cell within radius of the
// given 2D or 3D point, bypassing the energy threshold. This is the only way
// fire enters a run.
func (a *Automaton) SetIgnitionPoint(point []float64, radius float64) error {
	ignited, err := terrain.IgniteWithin(a.surface, point, radius)
	if err != nil {
		return err
	}
	a.burningSurface = append(a.burningSurface, ignited...)

	slog.Info("ignition seeded",
		"point", point,
		"radius", radius,
		"cells_ignited", len(ignited),
	)
	return nil
}

package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/emberworks/firecast/cell"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the mutable simulation state at one instant. Static cell
// attributes are not stored; they are rebuilt from the saved config by the
// terrain builder before a snapshot is applied.
type Snapshot struct {
	Version int     `json:"version"`
	Seed    int64   `json:"seed"`
	TimeMin float64 `json:"time_min"`

	Stats Stats `json:"stats"`

	Surface []CellSnap `json:"surface"`
	Canopy  []CellSnap `json:"canopy"`
}

// CellSnap holds one cell's dynamic state.
type CellSnap struct {
	State    uint8   `json:"state"`
	FuelLoad float64 `json:"fuel_load"`
	Moisture float64 `json:"moisture"`
	Energy   float64 `json:"energy"`
	BurnTime float64 `json:"burn_time"`
}

// SnapLayer captures a layer's dynamic state.
func SnapLayer(layer []cell.Cell) []CellSnap {
	snaps := make([]CellSnap, len(layer))
	for i := range layer {
		d := layer[i].Dynamic
		snaps[i] = CellSnap{
			State:    uint8(d.State),
			FuelLoad: d.FuelLoad,
			Moisture: d.Moisture,
			Energy:   d.Energy,
			BurnTime: d.BurnTime,
		}
	}
	return snaps
}

// ApplyLayer restores a layer's dynamic state from a snapshot slice.
func ApplyLayer(layer []cell.Cell, snaps []CellSnap) error {
	if len(layer) != len(snaps) {
		return fmt.Errorf("snapshot layer size %d does not match grid size %d", len(snaps), len(layer))
	}
	for i := range layer {
		s := snaps[i]
		layer[i].Dynamic.State = cell.State(s.State)
		layer[i].Dynamic.FuelLoad = s.FuelLoad
		layer[i].Dynamic.Energy = s.Energy
		layer[i].Dynamic.BurnTime = s.BurnTime
		// UpdateMoisture would clamp relative deltas; set directly and let
		// the threshold cache refresh via the delta-zero update.
		layer[i].Dynamic.Moisture = s.Moisture
		layer[i].UpdateMoisture(0)
	}
	return nil
}

// SaveSnapshot writes a snapshot to dir, named by its simulation time.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%06.0f.json", snapshot.TimeMin)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}

	return &snapshot, nil
}

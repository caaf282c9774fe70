package telemetry

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emberworks/firecast/cell"
)

func makeCell(id int, state cell.State, fuel, moisture float64) cell.Cell {
	return cell.New(
		cell.Static{ID: id, Layer: cell.Surface, HeatContent: 18500},
		cell.Dynamic{State: state, FuelLoad: fuel, Moisture: moisture},
	)
}

func TestSummarize(t *testing.T) {
	layer := []cell.Cell{
		makeCell(0, cell.Unburned, 1, 0.1),
		makeCell(1, cell.Unburned, 2, 0.1),
		makeCell(2, cell.SurfaceFire, 3, 0.1),
		makeCell(3, cell.BurnedOut, 4, 0.1),
	}

	s := Summarize(layer)
	if s.Cells != 4 || s.Unburned != 2 || s.Burning != 1 || s.BurnedOut != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 4/2/1/1", s.Cells, s.Unburned, s.Burning, s.BurnedOut)
	}
	if math.Abs(s.FuelMean-2.5) > 1e-9 {
		t.Errorf("fuel mean = %v, want 2.5", s.FuelMean)
	}
	if math.Abs(s.FuelStd-1.2909944487358056) > 1e-9 {
		t.Errorf("fuel std = %v, want sample std of 1..4", s.FuelStd)
	}
	if s.FuelP50 != 2 {
		t.Errorf("fuel p50 = %v, want 2", s.FuelP50)
	}
	if s.MoistureMean != 0.1 || s.MoistureStd != 0 || s.MoistureP50 != 0.1 {
		t.Errorf("moisture summary = %v/%v/%v, want 0.1/0/0.1",
			s.MoistureMean, s.MoistureStd, s.MoistureP50)
	}
}

func TestSummarize_EmptyLayer(t *testing.T) {
	s := Summarize(nil)
	if s.Cells != 0 || s.FuelMean != 0 {
		t.Errorf("empty summary = %+v, want zero value", s)
	}
}

func TestOutputManager_HistoryHeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	for i := 1; i <= 2; i++ {
		entry := NewHistoryEntry(float64(i*60), Stats{BurnedArea: float64(i) * 100}, i, 0)
		if err := om.WriteHistory(entry); err != nil {
			t.Fatalf("WriteHistory: %v", err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "history.csv"))
	if err != nil {
		t.Fatalf("reading history.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("history.csv has %d lines, want header plus 2 records", len(lines))
	}
	if !strings.HasPrefix(lines[0], "time_min") {
		t.Errorf("header = %q, want time_min first", lines[0])
	}
	if strings.HasPrefix(lines[1], "time_min") || strings.HasPrefix(lines[2], "time_min") {
		t.Error("header repeated in record lines")
	}
}

func TestOutputManager_NilIsDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager(\"\"): %v", err)
	}
	if om != nil {
		t.Fatal("empty dir must disable output")
	}

	// Every method is a no-op on the nil manager.
	if err := om.WriteHistory(HistoryEntry{}); err != nil {
		t.Errorf("WriteHistory on nil: %v", err)
	}
	if err := om.WriteCells("surface", nil); err != nil {
		t.Errorf("WriteCells on nil: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("Dir on nil = %q, want empty", om.Dir())
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestWriteCells(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	defer om.Close()

	layer := []cell.Cell{
		makeCell(0, cell.BurnedOut, 0, 0.05),
		makeCell(1, cell.Unburned, 2, 0.12),
	}
	if err := om.WriteCells("surface", layer); err != nil {
		t.Fatalf("WriteCells: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "surface.csv"))
	if err != nil {
		t.Fatalf("reading surface.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("surface.csv has %d lines, want header plus 2 records", len(lines))
	}
	if !strings.Contains(lines[1], "burned_out") {
		t.Errorf("first record %q missing state name", lines[1])
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	layer := []cell.Cell{
		makeCell(0, cell.SurfaceFire, 1.4, 0.08),
		makeCell(1, cell.Unburned, 2.0, 0.12),
	}
	layer[0].Dynamic.Energy = 42.5
	layer[0].Dynamic.BurnTime = 6

	snap := &Snapshot{
		Version: SnapshotVersion,
		Seed:    7,
		TimeMin: 120,
		Stats:   Stats{BurnedArea: 100, MaxFireIntensity: 8.5},
		Surface: SnapLayer(layer),
	}

	path, err := SaveSnapshot(snap, t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Seed != 7 || loaded.TimeMin != 120 || loaded.Stats != snap.Stats {
		t.Fatalf("loaded snapshot = %+v, want original metadata", loaded)
	}

	restored := []cell.Cell{
		makeCell(0, cell.Unburned, 2.0, 0.12),
		makeCell(1, cell.Unburned, 2.0, 0.12),
	}
	if err := ApplyLayer(restored, loaded.Surface); err != nil {
		t.Fatalf("ApplyLayer: %v", err)
	}
	for i := range layer {
		if restored[i].Dynamic != layer[i].Dynamic {
			t.Errorf("cell %d restored dynamic = %+v, want %+v",
				i, restored[i].Dynamic, layer[i].Dynamic)
		}
	}
	// The threshold cache refreshes against the restored moisture.
	if got, want := restored[1].IgnitionThreshold(), layer[1].IgnitionThreshold(); got != want {
		t.Errorf("restored ignition threshold = %v, want %v", got, want)
	}
}

func TestApplyLayer_SizeMismatch(t *testing.T) {
	layer := []cell.Cell{makeCell(0, cell.Unburned, 2, 0.12)}
	if err := ApplyLayer(layer, make([]CellSnap, 3)); err == nil {
		t.Error("expected error for mismatched snapshot size")
	}
}

func TestLoadSnapshot_RejectsUnknownVersion(t *testing.T) {
	snap := &Snapshot{Version: SnapshotVersion + 1, TimeMin: 1}
	path, err := SaveSnapshot(snap, t.TempDir())
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for unsupported snapshot version")
	}
}

package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/emberworks/firecast/cell"
	"github.com/emberworks/firecast/config"
)

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir         string
	historyFile *os.File

	// Track if the header has been written
	historyHeaderWritten bool
}

// NewOutputManager creates an output manager and initializes the output
// directory. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	historyPath := filepath.Join(dir, "history.csv")
	f, err := os.Create(historyPath)
	if err != nil {
		return nil, fmt.Errorf("creating history.csv: %w", err)
	}
	om.historyFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteHistory appends a history record to history.csv.
func (om *OutputManager) WriteHistory(entry HistoryEntry) error {
	if om == nil {
		return nil
	}

	records := []HistoryEntry{entry}

	if !om.historyHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.historyFile); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
		om.historyHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.historyFile); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
	}

	return nil
}

// CellRecord is the flattened per-cell form written to the layer dumps.
type CellRecord struct {
	ID       int     `csv:"id"`
	Layer    string  `csv:"layer"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	State    string  `csv:"state"`
	FuelLoad float64 `csv:"fuel_load"`
	Moisture float64 `csv:"moisture"`
	Energy   float64 `csv:"energy"`
	BurnTime float64 `csv:"burn_time"`
}

// CellRecords flattens a layer into CSV records.
func CellRecords(layer []cell.Cell) []CellRecord {
	records := make([]CellRecord, 0, len(layer))
	for i := range layer {
		c := &layer[i]
		records = append(records, CellRecord{
			ID:       c.Static.ID,
			Layer:    c.Static.Layer.String(),
			X:        c.Static.Position.X,
			Y:        c.Static.Position.Y,
			Z:        c.Static.Position.Z,
			State:    c.Dynamic.State.String(),
			FuelLoad: c.Dynamic.FuelLoad,
			Moisture: c.Dynamic.Moisture,
			Energy:   c.Dynamic.Energy,
			BurnTime: c.Dynamic.BurnTime,
		})
	}
	return records
}

// WriteCells dumps a layer's final state to <name>.csv in the output dir.
func (om *OutputManager) WriteCells(name string, layer []cell.Cell) error {
	if om == nil {
		return nil
	}

	path := filepath.Join(om.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.Marshal(CellRecords(layer), f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	if om.historyFile != nil {
		return om.historyFile.Close()
	}
	return nil
}

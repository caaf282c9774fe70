package terrain

import (
	_ "embed"
	"fmt"

	"github.com/gocarina/gocsv"
)

//go:embed fuels.csv
var fuelsCSV []byte

// FuelModel describes one fuel type from the embedded catalog.
type FuelModel struct {
	Name              string  `csv:"name"`
	HeatContent       float64 `csv:"heat_content"`        // kJ/kg
	IgnitionTemp      float64 `csv:"ignition_temp"`       // degC
	CanopyBaseHeight  float64 `csv:"canopy_base_height"`  // m
	CanopyBulkDensity float64 `csv:"canopy_bulk_density"` // kg/m^3
	SurfaceFuelLoad   float64 `csv:"surface_fuel_load"`   // kg/m^2
	CanopyFuelLoad    float64 `csv:"canopy_fuel_load"`    // kg/m^2
}

// fuelCatalog is loaded once from the embedded CSV.
var fuelCatalog map[string]FuelModel

func init() {
	var models []FuelModel
	if err := gocsv.UnmarshalBytes(fuelsCSV, &models); err != nil {
		panic(fmt.Sprintf("terrain: parsing embedded fuel catalog: %v", err))
	}
	fuelCatalog = make(map[string]FuelModel, len(models))
	for _, m := range models {
		fuelCatalog[m.Name] = m
	}
}

// FuelByName returns the fuel model for a catalog name.
func FuelByName(name string) (FuelModel, error) {
	m, ok := fuelCatalog[name]
	if !ok {
		return FuelModel{}, fmt.Errorf("terrain: unknown fuel type %q", name)
	}
	return m, nil
}

// FuelNames returns the catalog names, for diagnostics.
func FuelNames() []string {
	names := make([]string, 0, len(fuelCatalog))
	for name := range fuelCatalog {
		names = append(names, name)
	}
	return names
}

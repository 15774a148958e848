package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DataDir is the base directory for all data files
var DataDir string

type DatasetConfig struct {
	WaterGeoJSON    string `json:"water_geojson"`
	DrainageGeoJSON string `json:"drainage_geojson"`
	PolesWorkbook   string `json:"poles_workbook"`
	PolesBoundaries string `json:"poles_boundaries"`
	AgroWorkbook    string `json:"agro_workbook"`
	PlotShapefile   string `json:"plot_shapefile"`
	PlotColumn      string `json:"plot_column"`
	UploadDir       string `json:"upload_dir"`
}

var datasetConfig DatasetConfig

func init() {
	// Set up data directory
	if envDataDir := os.Getenv("DATA_DIR"); envDataDir != "" {
		DataDir = envDataDir
	} else {
		DataDir = filepath.Join(".", "data")
	}

	// Default paths
	datasetConfig = DatasetConfig{
		WaterGeoJSON:    "BD_CONSUMO_AGUA_AC.geojson",
		DrainageGeoJSON: "BD_BAIRROS_E_ZONA_RURAL_CONSUMO_ALL_DRENAGEM.geojson",
		PolesWorkbook:   "Postes1.xlsx",
		PolesBoundaries: "BAIRROS.shp",
		AgroWorkbook:    "dados_agro.xlsx",
		PlotShapefile:   "lotes.shp",
		PlotColumn:      "Talhão",
		UploadDir:       filepath.Join("static", "uploads"),
	}

	// Try to load config from file
	if configFile, err := os.Open("config.json"); err == nil {
		defer configFile.Close()
		json.NewDecoder(configFile).Decode(&datasetConfig)
	}
}

// GetDataFilePath returns the full path for a data file given its name.
// Remote URLs pass through untouched.
func GetDataFilePath(filename string) string {
	if IsRemote(filename) {
		return filename
	}
	return filepath.Join(DataDir, filename)
}

// IsRemote reports whether a dataset location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// GetDatasetConfig returns the dataset configuration
func GetDatasetConfig() DatasetConfig {
	return datasetConfig
}

package services

import (
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"

	"geodash/internal/models"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AllPlots disables the plot filter on the agro dashboards.
const AllPlots = "Todos"

// agroElements are the soil measurements the dashboards can interpolate,
// in the order they are offered. Only columns present in the workbook are
// exposed.
var agroElements = []string{"N", "Mg", "Ca_Mg", "P", "pH", "CTC"}

// AgroSample is one soil sample row from the workbook.
type AgroSample struct {
	Fazenda string
	Talhao  string
	Lat     float64
	Lon     float64
	Values  map[string]float64
}

// AgroService handles the agronomic dashboards: soil samples, plot
// boundaries, interpolation surfaces and the heat-overlay map.
type AgroService struct {
	samples    []AgroSample
	elements   []string
	boundaries []PlotBoundary
}

// NewAgroService loads the soil workbook and the plot boundaries. A
// missing boundary file only disables masking.
func NewAgroService(workbook, boundaryPath, plotColumn string) (*AgroService, error) {
	f, err := openWorkbook(workbook)
	if err != nil {
		return nil, fmt.Errorf("error opening agro workbook: %v", err)
	}
	defer f.Close()

	header, rows, err := readSheetRows(f)
	if err != nil {
		return nil, err
	}

	fazendaIdx := columnIndex(header, "Fazenda")
	talhaoIdx := columnIndex(header, "Talhão")
	latIdx := columnIndex(header, "Latitude")
	lonIdx := columnIndex(header, "Longitude")
	if fazendaIdx < 0 || talhaoIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, fmt.Errorf("agro workbook is missing required columns: Fazenda, Talhão, Latitude, Longitude")
	}

	s := &AgroService{}
	elementIdx := make(map[string]int)
	for _, e := range agroElements {
		if idx := columnIndex(header, e); idx >= 0 {
			s.elements = append(s.elements, e)
			elementIdx[e] = idx
		}
	}
	if len(s.elements) == 0 {
		return nil, fmt.Errorf("agro workbook has none of the element columns: %s", strings.Join(agroElements, ", "))
	}

	for _, row := range rows {
		lat, okLat := parseNumber(cellAt(row, latIdx))
		lon, okLon := parseNumber(cellAt(row, lonIdx))
		if !okLat || !okLon {
			continue
		}
		sample := AgroSample{
			Fazenda: cellAt(row, fazendaIdx),
			Talhao:  cellAt(row, talhaoIdx),
			Lat:     lat,
			Lon:     lon,
			Values:  make(map[string]float64),
		}
		for e, idx := range elementIdx {
			if v, ok := parseNumber(cellAt(row, idx)); ok {
				sample.Values[e] = v
			}
		}
		s.samples = append(s.samples, sample)
	}

	if boundaryPath != "" {
		boundaries, err := ReadPlotBoundaries(boundaryPath, plotColumn)
		if err != nil {
			log.Printf("Warning: failed to load plot boundaries: %v", err)
		} else {
			s.boundaries = boundaries
		}
	}

	log.Printf("Loaded %d soil samples, %d elements, %d plot boundaries",
		len(s.samples), len(s.elements), len(s.boundaries))
	return s, nil
}

// Options returns the plot, element and interpolation choices.
func (s *AgroService) Options() models.AgroOptions {
	talhaoSet := make(map[string]bool)
	for _, sample := range s.samples {
		if sample.Talhao != "" {
			talhaoSet[sample.Talhao] = true
		}
	}
	return models.AgroOptions{
		Talhoes:           append([]string{AllPlots}, sortedKeys(talhaoSet)...),
		Elementos:         append([]string(nil), s.elements...),
		Metodos:           []string{MethodRBF, MethodIDW, MethodNearest},
		ResolutionMin:     ResolutionMin,
		ResolutionMax:     ResolutionMax,
		ResolutionDefault: ResolutionDefault,
	}
}

// hasElement reports whether the workbook carries the element column.
func (s *AgroService) hasElement(element string) bool {
	for _, e := range s.elements {
		if e == element {
			return true
		}
	}
	return false
}

// cleanSamples filters by plot (case-insensitive substring), drops rows
// without the element value and collapses duplicate coordinates by mean.
func (s *AgroService) cleanSamples(talhao, element string) ([]Sample, error) {
	if !s.hasElement(element) {
		return nil, fmt.Errorf("unknown element: %s", element)
	}

	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[orb.Point]*acc)
	var order []orb.Point

	needle := strings.ToLower(talhao)
	for _, sample := range s.samples {
		if talhao != "" && talhao != AllPlots && !strings.Contains(strings.ToLower(sample.Talhao), needle) {
			continue
		}
		v, ok := sample.Values[element]
		if !ok {
			continue
		}
		key := orb.Point{sample.Lon, sample.Lat}
		if sums[key] == nil {
			sums[key] = &acc{}
			order = append(order, key)
		}
		sums[key].sum += v
		sums[key].count++
	}
	if len(order) == 0 {
		return nil, ErrNoFeatures
	}

	samples := make([]Sample, 0, len(order))
	for _, key := range order {
		a := sums[key]
		samples = append(samples, Sample{Lon: key.Lon(), Lat: key.Lat(), Value: a.sum / float64(a.count)})
	}
	return samples, nil
}

// Summary computes the sample statistics panel for one element.
func (s *AgroService) Summary(talhao, element string) (*models.AgroSummary, error) {
	samples, err := s.cleanSamples(talhao, element)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(samples))
	for i, sample := range samples {
		values[i] = sample.Value
	}

	mean := stat.Mean(values, nil)
	return &models.AgroSummary{
		Element: element,
		Talhao:  talhao,
		Points:  len(values),
		Max:     floats.Max(values),
		Min:     floats.Min(values),
		Mean:    mean,
		StdDev:  popStdDev(values, mean),
	}, nil
}

// popStdDev is the population standard deviation (no Bessel correction).
func popStdDev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// maskFor returns the dissolved boundary for a specific plot, or nil when
// masking does not apply ("Todos" or no boundaries loaded).
func (s *AgroService) maskFor(talhao string) orb.Geometry {
	if talhao == "" || talhao == AllPlots || len(s.boundaries) == 0 {
		return nil
	}
	mask, err := UnionBoundaries(s.boundaries, talhao)
	if err != nil {
		log.Printf("Warning: boundary mask unavailable: %v", err)
		return nil
	}
	return mask
}

// Surface interpolates one element over the grid, masked to the plot
// boundary when a specific plot is selected.
func (s *AgroService) Surface(talhao, element, method string, resolution int) (*Surface, orb.Geometry, error) {
	samples, err := s.cleanSamples(talhao, element)
	if err != nil {
		return nil, nil, err
	}

	mask := s.maskFor(talhao)
	surface, err := Interpolate(samples, method, resolution, mask)
	if err != nil {
		return nil, nil, err
	}
	return surface, mask, nil
}

// MapDoc assembles the interpolation map: heat overlay, boundary outline,
// sample markers and the colorbar.
func (s *AgroService) MapDoc(talhao, element, method string, resolution int, overlayPath string) (*models.MapDocument, error) {
	samples, err := s.cleanSamples(talhao, element)
	if err != nil {
		return nil, err
	}
	mask := s.maskFor(talhao)
	surface, err := Interpolate(samples, method, resolution, mask)
	if err != nil {
		return nil, err
	}

	center := models.Point{}
	if mask != nil {
		center = Centroid(mask)
	} else {
		for _, sample := range samples {
			center.Lat += sample.Lat
			center.Lng += sample.Lon
		}
		center.Lat /= float64(len(samples))
		center.Lng /= float64(len(samples))
	}

	overlayURL := fmt.Sprintf("%s?talhao=%s&element=%s&method=%s&resolution=%d",
		overlayPath, url.QueryEscape(talhao), url.QueryEscape(element), url.QueryEscape(surface.Method), resolution)

	layers := []models.MapLayer{
		{
			Type: models.LayerImage,
			Name: fmt.Sprintf("%s (Interpolação)", element),
			Image: &models.ImageOverlay{
				URL:     overlayURL,
				Bounds:  surface.Bounds,
				Opacity: 1,
			},
		},
	}

	if mask != nil {
		outlines := maskOutlines(mask)
		layers = append(layers, models.MapLayer{
			Type:     models.LayerOutline,
			Name:     "Limite",
			Outlines: outlines,
			Style:    &models.LayerStyle{Color: "black", Weight: 3, FillOpacity: 0, Fill: false},
		})
	}

	markers := make([]models.Marker, 0, len(samples))
	for _, sample := range samples {
		markers = append(markers, models.Marker{
			Location:  models.Point{Lat: sample.Lat, Lng: sample.Lon},
			Radius:    5,
			Color:     "white",
			FillColor: ColorHex(sample.Value, surface.Min, surface.Max),
			Tooltip:   fmt.Sprintf("Ponto - %s: %.3f", element, sample.Value),
			Popup:     fmt.Sprintf("%s: %.3f<br>Lat: %.5f<br>Lon: %.5f", element, sample.Value, sample.Lat, sample.Lon),
		})
	}
	layers = append(layers, models.MapLayer{
		Type:    models.LayerMarkers,
		Name:    "Pontos",
		Markers: markers,
	})

	return &models.MapDocument{
		Center:    center,
		Zoom:      16,
		FitBounds: &surface.Bounds,
		Tiles:     models.TilesEsriImagery,
		Layers:    layers,
		Colorbar: &models.Colorbar{
			Caption: element,
			Min:     surface.Min,
			Max:     surface.Max,
			Stops:   ColorbarStops(32),
		},
	}, nil
}

// maskOutlines extracts the exterior rings of the mask for the outline layer.
func maskOutlines(mask orb.Geometry) []models.OutlinePath {
	ringPath := func(ring orb.Ring) models.OutlinePath {
		path := models.OutlinePath{Points: make([]models.Point, 0, len(ring))}
		for _, pt := range ring {
			path.Points = append(path.Points, models.Point{Lat: pt.Lat(), Lng: pt.Lon()})
		}
		return path
	}

	var outlines []models.OutlinePath
	switch g := mask.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			outlines = append(outlines, ringPath(g[0]))
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			if len(poly) > 0 {
				outlines = append(outlines, ringPath(poly[0]))
			}
		}
	}
	return outlines
}

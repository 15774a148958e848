package services

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"geodash/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// NoFilter disables the neighborhood/power filter on the poles dashboard.
const NoFilter = "Nenhum"

// Pole is one street-light record from the workbook.
type Pole struct {
	Latitude  float64
	Longitude float64
	Bairro    string
	Potencia  string
	Lampada   string
}

// PolesService handles the street-light dashboard: workbook loading,
// dependent filters, count aggregations and the marker/boundary map.
type PolesService struct {
	poles      []Pole
	boundaries []orb.Ring
}

// NewPolesService loads the poles workbook and, when available, the
// neighborhood boundary file (GeoJSON or shapefile).
func NewPolesService(workbook, boundariesPath string) (*PolesService, error) {
	f, err := openWorkbook(workbook)
	if err != nil {
		return nil, fmt.Errorf("error opening poles workbook: %v", err)
	}
	defer f.Close()

	header, rows, err := readSheetRows(f)
	if err != nil {
		return nil, err
	}

	latIdx := columnIndex(header, "Latitude")
	lonIdx := columnIndex(header, "Longitude")
	bairroIdx := columnIndex(header, "Bairro")
	potIdx := columnIndex(header, "Potência_")
	lampIdx := columnIndex(header, "Lâmpada_A")
	if latIdx < 0 || lonIdx < 0 || bairroIdx < 0 || potIdx < 0 || lampIdx < 0 {
		return nil, fmt.Errorf("poles workbook is missing required columns: Latitude, Longitude, Bairro, Potência_, Lâmpada_A")
	}

	s := &PolesService{}
	for _, row := range rows {
		lat, okLat := parseNumber(cellAt(row, latIdx))
		lon, okLon := parseNumber(cellAt(row, lonIdx))
		if !okLat || !okLon {
			continue
		}
		s.poles = append(s.poles, Pole{
			Latitude:  lat,
			Longitude: lon,
			Bairro:    cellAt(row, bairroIdx),
			Potencia:  cellAt(row, potIdx),
			Lampada:   cellAt(row, lampIdx),
		})
	}

	if boundariesPath != "" {
		if err := s.loadBoundaries(boundariesPath); err != nil {
			log.Printf("Warning: failed to load neighborhood boundaries: %v", err)
		}
	}

	log.Printf("Loaded %d poles", len(s.poles))
	return s, nil
}

// loadBoundaries reads the neighborhood polygons from a GeoJSON file or a
// .shp main file. For a multipolygon only the largest polygon is kept;
// small satellite parts only clutter the map.
func (s *PolesService) loadBoundaries(path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		geoms, err := readPolygonShapes(path)
		if err != nil {
			return err
		}
		for _, g := range geoms {
			if ring, ok := largestExterior(g); ok {
				s.boundaries = append(s.boundaries, ring)
			}
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("error parsing boundaries GeoJSON: %v", err)
	}

	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if len(g) > 0 {
				s.boundaries = append(s.boundaries, g[0])
			}
		case orb.MultiPolygon:
			if ring, ok := largestExterior(g); ok {
				s.boundaries = append(s.boundaries, ring)
			}
		}
	}
	return nil
}

func largestExterior(mp orb.MultiPolygon) (orb.Ring, bool) {
	var best orb.Ring
	bestArea := -1.0
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		if a := planar.Area(poly); a > bestArea {
			bestArea = a
			best = poly[0]
		}
	}
	return best, best != nil
}

// potenciaEqual compares power values numerically when both sides parse.
func potenciaEqual(a, b string) bool {
	if a == b {
		return true
	}
	fa, okA := parseNumber(a)
	fb, okB := parseNumber(b)
	return okA && okB && fa == fb
}

// filter narrows the poles to the selected neighborhood and power.
func (s *PolesService) filter(bairro, potencia string) []Pole {
	result := make([]Pole, 0, len(s.poles))
	for _, p := range s.poles {
		if bairro != "" && bairro != NoFilter && p.Bairro != bairro {
			continue
		}
		if potencia != "" && potencia != NoFilter && !potenciaEqual(p.Potencia, potencia) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Options returns the filter choices. Power options narrow to the selected
// neighborhood.
func (s *PolesService) Options(bairro string) models.PolesOptions {
	bairroSet := make(map[string]bool)
	potenciaSet := make(map[string]bool)
	for _, p := range s.poles {
		bairroSet[p.Bairro] = true
		if bairro == "" || bairro == NoFilter || p.Bairro == bairro {
			potenciaSet[p.Potencia] = true
		}
	}
	return models.PolesOptions{
		Bairros:   append([]string{NoFilter}, sortedKeys(bairroSet)...),
		Potencias: append([]string{NoFilter}, sortedKeys(potenciaSet)...),
	}
}

// Summary computes the pole count and the three bar aggregations.
func (s *PolesService) Summary(bairro, potencia string) models.PolesSummary {
	poles := s.filter(bairro, potencia)

	summary := models.PolesSummary{Total: len(poles)}
	summary.Bars = append(summary.Bars,
		barBreakdown("bairro", "Quantidade de Postes por Bairro", poles, func(p Pole) (string, string) {
			return p.Bairro, ""
		}),
		barBreakdown("potencia", "Frequência de Valores da Potência_ por Bairro", poles, func(p Pole) (string, string) {
			return p.Bairro, p.Potencia
		}),
		barBreakdown("lampada", "Frequência de Tipos de Lâmpada_A por Bairro", poles, func(p Pole) (string, string) {
			return p.Bairro, p.Lampada
		}),
	)
	return summary
}

// BarData returns a single bar aggregation for the chart endpoint.
func (s *PolesService) BarData(bairro, potencia, kind string) (models.BarBreakdown, error) {
	for _, b := range s.Summary(bairro, potencia).Bars {
		if b.Kind == kind {
			return b, nil
		}
	}
	return models.BarBreakdown{}, fmt.Errorf("unknown chart kind: %s", kind)
}

func barBreakdown(kind, title string, poles []Pole, key func(Pole) (string, string)) models.BarBreakdown {
	type pair struct{ category, series string }
	counts := make(map[pair]int)
	for _, p := range poles {
		c, s := key(p)
		counts[pair{c, s}]++
	}

	pairs := make([]pair, 0, len(counts))
	for k := range counts {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].category != pairs[j].category {
			return pairs[i].category < pairs[j].category
		}
		return pairs[i].series < pairs[j].series
	})

	breakdown := models.BarBreakdown{Kind: kind, Title: title}
	for _, k := range pairs {
		breakdown.Groups = append(breakdown.Groups, models.BarGroup{
			Category: k.category,
			Series:   k.series,
			Count:    counts[k],
		})
	}
	return breakdown
}

// MapDoc assembles the boundary-and-markers map for the filtered poles.
func (s *PolesService) MapDoc(bairro, potencia, markerColor string) (*models.MapDocument, error) {
	poles := s.filter(bairro, potencia)
	if len(poles) == 0 {
		return nil, ErrNoFeatures
	}
	if markerColor == "" {
		markerColor = "#1f77b4"
	}

	markers := make([]models.Marker, 0, len(poles))
	points := make([]models.Point, 0, len(poles))
	var latSum, lonSum float64
	for _, p := range poles {
		loc := models.Point{Lat: p.Latitude, Lng: p.Longitude}
		markers = append(markers, models.Marker{
			Location:  loc,
			Radius:    10,
			Color:     markerColor,
			FillColor: markerColor,
			Tooltip:   fmt.Sprintf("%s<br>Potência: %s<br>Lâmpada: %s", p.Bairro, p.Potencia, p.Lampada),
		})
		points = append(points, loc)
		latSum += p.Latitude
		lonSum += p.Longitude
	}

	var outlines []models.OutlinePath
	for _, ring := range s.boundaries {
		path := models.OutlinePath{Points: make([]models.Point, 0, len(ring))}
		for _, pt := range ring {
			path.Points = append(path.Points, models.Point{Lat: pt.Lat(), Lng: pt.Lon()})
		}
		outlines = append(outlines, path)
	}

	bounds, _ := models.BoundsFromPoints(points)
	doc := &models.MapDocument{
		Center:    models.Point{Lat: latSum / float64(len(poles)), Lng: lonSum / float64(len(poles))},
		Zoom:      13.3,
		FitBounds: &bounds,
		Tiles:     models.TilesOpenStreetMap,
		Layers: []models.MapLayer{
			{
				Type:     models.LayerOutline,
				Name:     "Limites de Bairros",
				Outlines: outlines,
				Style:    &models.LayerStyle{Color: "red", Weight: 2, FillOpacity: 0, Fill: false},
			},
			{
				Type:    models.LayerMarkers,
				Name:    "Postes",
				Markers: markers,
			},
		},
	}
	return doc, nil
}

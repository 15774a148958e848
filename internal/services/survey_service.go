package services

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"geodash/internal/models"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/exp/slices"
)

// NotInformed is the sentinel label for missing categorical values.
const NotInformed = "Não informado"

// AllAreas disables the area filter.
const AllAreas = "Todas"

// ErrNoFeatures is returned when a filter combination matches nothing.
var ErrNoFeatures = fmt.Errorf("no features match the selected filters")

// LabelField names one categorical property and the chart title shown for it.
type LabelField struct {
	Field string
	Title string
}

// SurveySpec describes one survey-backed dashboard (water, drainage): the
// properties it reads from the GeoJSON and the pie charts it renders.
type SurveySpec struct {
	Name            string
	AreaField       string
	BairroField     string
	HouseholdField  string
	PopulationField string
	LabelFields     []LabelField
}

// SurveyService handles a GeoJSON FeatureCollection dashboard: dependent
// area/neighborhood filters, indicator sums and pie aggregations.
type SurveyService struct {
	spec SurveySpec
	fc   *geojson.FeatureCollection
}

// NewSurveyService loads and normalizes the survey GeoJSON.
func NewSurveyService(path string, spec SurveySpec) (*SurveyService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading survey GeoJSON: %v", err)
	}
	if isLFSPointer(data) {
		return nil, fmt.Errorf("%s looks like a Git LFS pointer, not GeoJSON", path)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing survey GeoJSON: %v", err)
	}

	s := &SurveyService{spec: spec, fc: fc}
	s.normalize()
	log.Printf("Loaded %d features for %s dashboard", len(fc.Features), spec.Name)
	return s, nil
}

// isLFSPointer detects a Git LFS pointer file committed in place of the data.
func isLFSPointer(data []byte) bool {
	head := data
	if len(head) > 200 {
		head = head[:200]
	}
	return bytes.Contains(head, []byte("git-lfs.github.com/spec"))
}

// normalize fills missing categorical values with the sentinel and coerces
// the numeric indicator properties.
func (s *SurveyService) normalize() {
	textFields := []string{s.spec.AreaField, s.spec.BairroField}
	for _, lf := range s.spec.LabelFields {
		textFields = append(textFields, lf.Field)
	}
	numFields := []string{s.spec.HouseholdField, s.spec.PopulationField}

	for _, f := range s.fc.Features {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		for _, field := range textFields {
			f.Properties[field] = normalizeLabel(f.Properties[field])
		}
		for _, field := range numFields {
			f.Properties[field] = toFloat(f.Properties[field])
		}
	}
}

// normalizeLabel maps nil, blank and "nan"/"None" strings to the sentinel.
func normalizeLabel(v interface{}) string {
	if v == nil {
		return NotInformed
	}
	str := fmt.Sprintf("%v", v)
	trimmed := strings.TrimSpace(str)
	if trimmed == "" || trimmed == "nan" || trimmed == "None" {
		return NotInformed
	}
	return str
}

// toFloat coerces a GeoJSON property value to a float64, defaulting to 0.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, ok := parseNumber(n); ok {
			return f
		}
	}
	return 0
}

func propString(f *geojson.Feature, field string) string {
	if v, ok := f.Properties[field].(string); ok {
		return v
	}
	return normalizeLabel(f.Properties[field])
}

// filter narrows the features to the selected area and neighborhoods.
func (s *SurveyService) filter(area string, bairros []string) []*geojson.Feature {
	result := make([]*geojson.Feature, 0, len(s.fc.Features))
	for _, f := range s.fc.Features {
		if area != "" && area != AllAreas && propString(f, s.spec.AreaField) != area {
			continue
		}
		if len(bairros) > 0 && !slices.Contains(bairros, propString(f, s.spec.BairroField)) {
			continue
		}
		result = append(result, f)
	}
	return result
}

// Options returns the filter choices. Neighborhood options narrow to the
// selected area.
func (s *SurveyService) Options(area string) models.SurveyOptions {
	areaSet := make(map[string]bool)
	bairroSet := make(map[string]bool)
	for _, f := range s.fc.Features {
		areaVal := propString(f, s.spec.AreaField)
		areaSet[areaVal] = true
		if area == "" || area == AllAreas || areaVal == area {
			bairroSet[propString(f, s.spec.BairroField)] = true
		}
	}

	opts := models.SurveyOptions{
		Areas:   append([]string{AllAreas}, sortedKeys(areaSet)...),
		Bairros: sortedKeys(bairroSet),
	}
	return opts
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary computes the headline indicators and every pie aggregation over
// the filtered features.
func (s *SurveyService) Summary(area string, bairros []string) models.SurveySummary {
	features := s.filter(area, bairros)

	var households, population float64
	for _, f := range features {
		households += toFloat(f.Properties[s.spec.HouseholdField])
		population += toFloat(f.Properties[s.spec.PopulationField])
	}

	summary := models.SurveySummary{
		Features: len(features),
		Indicators: []models.Indicator{
			{Label: "Nº Domicílios", Value: households},
			{Label: "População Estimada", Value: population},
		},
	}
	for _, lf := range s.spec.LabelFields {
		summary.Pies = append(summary.Pies, pieBreakdown(features, lf))
	}
	return summary
}

// PieData returns the aggregation for a single label field, used by the
// chart endpoint.
func (s *SurveyService) PieData(area string, bairros []string, field string) (models.PieBreakdown, error) {
	for _, lf := range s.spec.LabelFields {
		if lf.Field == field {
			return pieBreakdown(s.filter(area, bairros), lf), nil
		}
	}
	return models.PieBreakdown{}, fmt.Errorf("unknown chart field: %s", field)
}

func pieBreakdown(features []*geojson.Feature, lf LabelField) models.PieBreakdown {
	counts := make(map[string]int)
	for _, f := range features {
		counts[propString(f, lf.Field)]++
	}

	breakdown := models.PieBreakdown{Field: lf.Field, Title: lf.Title}
	for _, label := range sortedCountKeys(counts) {
		breakdown.Slices = append(breakdown.Slices, models.PieSlice{Label: label, Count: counts[label]})
	}
	return breakdown
}

func sortedCountKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MapDoc assembles the polygon-overlay map for the filtered features.
func (s *SurveyService) MapDoc(area string, bairros []string) (*models.MapDocument, error) {
	features := s.filter(area, bairros)
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}

	filtered := geojson.NewFeatureCollection()
	filtered.Features = features
	raw, err := filtered.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("error encoding filtered features: %v", err)
	}

	bound := features[0].Geometry.Bound()
	for _, f := range features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	bounds := models.LatLngBounds{
		SouthWest: models.Point{Lat: bound.Min.Lat(), Lng: bound.Min.Lon()},
		NorthEast: models.Point{Lat: bound.Max.Lat(), Lng: bound.Max.Lon()},
	}
	center := models.Point{
		Lat: (bounds.SouthWest.Lat + bounds.NorthEast.Lat) / 2,
		Lng: (bounds.SouthWest.Lng + bounds.NorthEast.Lng) / 2,
	}

	doc := &models.MapDocument{
		Center:    center,
		Zoom:      11,
		FitBounds: &bounds,
		Tiles:     models.TilesPositron,
		Layers: []models.MapLayer{
			{
				Type:    models.LayerGeoJSON,
				Name:    "Polígonos",
				GeoJSON: raw,
				Style: &models.LayerStyle{
					FillColor:   "#1f78b4",
					Color:       "black",
					Weight:      1,
					FillOpacity: 0.4,
					Fill:        true,
				},
				TooltipFields: []models.TooltipField{
					{Field: s.spec.AreaField, Alias: "Área:"},
					{Field: s.spec.BairroField, Alias: "Bairro:"},
				},
			},
		},
	}
	return doc, nil
}

// WaterSpec describes the water-consumption dashboard dataset.
func WaterSpec() SurveySpec {
	return SurveySpec{
		Name:            "water",
		AreaField:       "AREA_y",
		BairroField:     "BAIRRO_COM",
		HouseholdField:  "N_domi",
		PopulationField: "Pop_estim1",
		LabelFields: []LabelField{
			{Field: "LABEL_Q5", Title: "Fonte de água de abastecimento"},
			{Field: "LABEL_Q6", Title: "Qualidade da água"},
			{Field: "LABEL_Q7", Title: "Problemas relacionados à água"},
			{Field: "LABEL_Q8", Title: "Entrega regular de água"},
			{Field: "LABEL_Q9", Title: "Falta de água"},
			{Field: "LABEL_Q10", Title: "Poço próximo de fossa séptica"},
		},
	}
}

// DrainageSpec describes the drainage dashboard dataset.
func DrainageSpec() SurveySpec {
	return SurveySpec{
		Name:            "drainage",
		AreaField:       "AREA_y",
		BairroField:     "BAIRRO_COM",
		HouseholdField:  "N_domi",
		PopulationField: "pop_estim1",
		LabelFields: []LabelField{
			{Field: "LABEL_21", Title: "Há pavimentação asfáltica"},
			{Field: "LABEL_Q22", Title: "Há água saindo por esgoto"},
			{Field: "LABEL_Q23", Title: "Sistema de drenagem"},
			{Field: "LABEL_Q24", Title: "Problemas em período de chuva"},
			{Field: "LABEL_Q25", Title: "Problemas de drenagem"},
			{Field: "LABEL_Q26", Title: "Moradia próximo a rio"},
		},
	}
}

package models

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Point represents a geographical point with latitude and longitude
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToGeomPoint converts our Point to a go-geom Point
func (p Point) ToGeomPoint() *geom.Point {
	return geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{p.Lng, p.Lat})
}

// FromGeomPoint creates a Point from a go-geom Point
func FromGeomPoint(gp *geom.Point) Point {
	coords := gp.Coords()
	return Point{
		Lat: coords[1],
		Lng: coords[0],
	}
}

// LatLngBounds is a south-west / north-east bounding box, the shape a map
// client expects for fitBounds.
type LatLngBounds struct {
	SouthWest Point `json:"southWest"`
	NorthEast Point `json:"northEast"`
}

// BoundsFromPoints computes the bounding box of a set of points.
func BoundsFromPoints(points []Point) (LatLngBounds, bool) {
	if len(points) == 0 {
		return LatLngBounds{}, false
	}
	bounds := geom.NewBounds(geom.XY)
	for _, p := range points {
		bounds.Extend(p.ToGeomPoint())
	}
	return LatLngBounds{
		SouthWest: Point{Lat: bounds.Min(1), Lng: bounds.Min(0)},
		NorthEast: Point{Lat: bounds.Max(1), Lng: bounds.Max(0)},
	}, true
}

// Indicator is a single headline metric shown above the charts.
type Indicator struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// PieSlice is one labelled share of a categorical breakdown.
type PieSlice struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PieBreakdown is the aggregation behind one pie chart.
type PieBreakdown struct {
	Field  string     `json:"field"`
	Title  string     `json:"title"`
	Slices []PieSlice `json:"slices"`
}

// BarGroup is one bar of a grouped bar chart, keyed by the pair of
// categorical values it counts.
type BarGroup struct {
	Category string `json:"category"`
	Series   string `json:"series"`
	Count    int    `json:"count"`
}

// BarBreakdown is the aggregation behind one bar chart.
type BarBreakdown struct {
	Kind   string     `json:"kind"`
	Title  string     `json:"title"`
	Groups []BarGroup `json:"groups"`
}

// SurveyOptions lists the filter choices for the water/drainage dashboards.
// Neighborhood options depend on the selected area.
type SurveyOptions struct {
	Areas   []string `json:"areas"`
	Bairros []string `json:"bairros"`
}

// SurveySummary carries the indicators and pie aggregations for the
// water/drainage dashboards.
type SurveySummary struct {
	Features   int            `json:"features"`
	Indicators []Indicator    `json:"indicators"`
	Pies       []PieBreakdown `json:"pies"`
}

// PolesOptions lists the filter choices for the street-light dashboard.
// Power options depend on the selected neighborhood.
type PolesOptions struct {
	Bairros   []string `json:"bairros"`
	Potencias []string `json:"potencias"`
}

// PolesSummary carries the pole count and bar aggregations.
type PolesSummary struct {
	Total int            `json:"total"`
	Bars  []BarBreakdown `json:"bars"`
}

// AgroOptions lists the filter and interpolation choices for the agronomic
// dashboards.
type AgroOptions struct {
	Talhoes           []string `json:"talhoes"`
	Elementos         []string `json:"elementos"`
	Metodos           []string `json:"metodos"`
	ResolutionMin     int      `json:"resolutionMin"`
	ResolutionMax     int      `json:"resolutionMax"`
	ResolutionDefault int      `json:"resolutionDefault"`
}

// AgroSummary carries the sample statistics for the selected element.
type AgroSummary struct {
	Element string  `json:"element"`
	Talhao  string  `json:"talhao"`
	Points  int     `json:"points"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stdDev"`
}

// Solicitacao is a citizen service request as stored in Postgres.
type Solicitacao struct {
	ID        int64      `json:"id"`
	Rua       string     `json:"rua"`
	Numero    string     `json:"numero"`
	Bairro    string     `json:"bairro"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	FotoPath  *string    `json:"fotoPath"`
	Situacoes *string    `json:"situacoes"`
	CriadoEm  *time.Time `json:"criadoEm"`
}

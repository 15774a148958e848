package services

import (
	"fmt"
	"log"
	"math"
	"strings"

	"geodash/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	sfgeom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/mat"
)

// Interpolation methods offered by the agro dashboards.
const (
	MethodRBF     = "rbf"
	MethodIDW     = "idw"
	MethodNearest = "nearest"
)

// Grid resolution limits (cells per side).
const (
	ResolutionMin     = 50
	ResolutionMax     = 300
	ResolutionDefault = 140
)

// Sample is one aggregated measurement point.
type Sample struct {
	Lon   float64
	Lat   float64
	Value float64
}

// Surface is an interpolated scalar field over a regular lon/lat grid.
// Values is indexed [row][col] with row 0 at the southern edge; masked
// cells hold NaN.
type Surface struct {
	LonGrid []float64
	LatGrid []float64
	Values  [][]float64
	Bounds  models.LatLngBounds
	Method  string
	Min     float64
	Max     float64
}

// surfaceBounds derives the grid extent: the mask polygon's bounding box
// when masking, otherwise the sample extent padded by 10% per side.
func surfaceBounds(samples []Sample, mask orb.Geometry) (minLon, minLat, maxLon, maxLat float64) {
	if mask != nil {
		b := mask.Bound()
		return b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()
	}

	minLon, minLat = math.Inf(1), math.Inf(1)
	maxLon, maxLat = math.Inf(-1), math.Inf(-1)
	for _, s := range samples {
		minLon = math.Min(minLon, s.Lon)
		maxLon = math.Max(maxLon, s.Lon)
		minLat = math.Min(minLat, s.Lat)
		maxLat = math.Max(maxLat, s.Lat)
	}

	lonRange := math.Max(maxLon-minLon, 1e-6)
	latRange := math.Max(maxLat-minLat, 1e-6)
	minLon -= 0.1 * lonRange
	maxLon += 0.1 * lonRange
	minLat -= 0.1 * latRange
	maxLat += 0.1 * latRange
	return minLon, minLat, maxLon, maxLat
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Interpolate builds a surface using the requested method, falling back to
// idw and then nearest when a method fails.
func Interpolate(samples []Sample, method string, resolution int, mask orb.Geometry) (*Surface, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to interpolate")
	}
	if resolution < ResolutionMin {
		resolution = ResolutionMin
	}
	if resolution > ResolutionMax {
		resolution = ResolutionMax
	}

	minLon, minLat, maxLon, maxLat := surfaceBounds(samples, mask)
	surface := &Surface{
		LonGrid: linspace(minLon, maxLon, resolution),
		LatGrid: linspace(minLat, maxLat, resolution),
		Method:  method,
		Bounds: models.LatLngBounds{
			SouthWest: models.Point{Lat: minLat, Lng: minLon},
			NorthEast: models.Point{Lat: maxLat, Lng: maxLon},
		},
	}

	for _, m := range fallbackChain(method) {
		values, err := evaluate(m, samples, surface.LonGrid, surface.LatGrid, maxLon-minLon, maxLat-minLat)
		if err != nil {
			log.Printf("Interpolation method %s failed: %v", m, err)
			continue
		}
		surface.Method = m
		surface.Values = values
		if mask != nil {
			applyMask(surface, mask)
		}
		surface.Min, surface.Max = valueRange(surface.Values)
		return surface, nil
	}
	return nil, fmt.Errorf("all interpolation methods failed for %q", method)
}

func fallbackChain(method string) []string {
	chain := []string{method}
	if method != MethodIDW {
		chain = append(chain, MethodIDW)
	}
	if method != MethodNearest {
		chain = append(chain, MethodNearest)
	}
	return chain
}

func evaluate(method string, samples []Sample, lonGrid, latGrid []float64, dx, dy float64) ([][]float64, error) {
	switch method {
	case MethodRBF:
		return rbfSurface(samples, lonGrid, latGrid, dx, dy)
	case MethodIDW:
		return idwSurface(samples, lonGrid, latGrid), nil
	case MethodNearest:
		return nearestSurface(samples, lonGrid, latGrid), nil
	default:
		return nil, fmt.Errorf("unknown interpolation method: %s", method)
	}
}

// idwSurface is inverse-distance weighting with power 2.
func idwSurface(samples []Sample, lonGrid, latGrid []float64) [][]float64 {
	const eps = 1e-12
	values := make([][]float64, len(latGrid))
	for row, lat := range latGrid {
		values[row] = make([]float64, len(lonGrid))
		for col, lon := range lonGrid {
			var num, den float64
			for _, s := range samples {
				d2 := (lon-s.Lon)*(lon-s.Lon) + (lat-s.Lat)*(lat-s.Lat)
				w := 1.0 / (d2 + eps)
				num += w * s.Value
				den += w
			}
			values[row][col] = num / den
		}
	}
	return values
}

// nearestSurface assigns each cell the value of the closest sample.
func nearestSurface(samples []Sample, lonGrid, latGrid []float64) [][]float64 {
	values := make([][]float64, len(latGrid))
	for row, lat := range latGrid {
		values[row] = make([]float64, len(lonGrid))
		for col, lon := range lonGrid {
			best := math.Inf(1)
			var bestVal float64
			for _, s := range samples {
				d2 := (lon-s.Lon)*(lon-s.Lon) + (lat-s.Lat)*(lat-s.Lat)
				if d2 < best {
					best = d2
					bestVal = s.Value
				}
			}
			values[row][col] = bestVal
		}
	}
	return values
}

// rbfSurface fits a multiquadric radial basis function through the samples
// and evaluates it over the grid. Epsilon is max(grid span)/25; the dense
// weight system is solved with gonum. Duplicate sample coordinates make the
// system singular, which surfaces as an error and triggers the fallback.
func rbfSurface(samples []Sample, lonGrid, latGrid []float64, dx, dy float64) ([][]float64, error) {
	n := len(samples)
	eps := math.Max(dx, dy) / 25.0
	if eps <= 0 {
		eps = 1
	}
	phi := func(r float64) float64 {
		t := r / eps
		return math.Sqrt(t*t + 1)
	}

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, phi(math.Hypot(samples[i].Lon-samples[j].Lon, samples[i].Lat-samples[j].Lat)))
		}
		b.SetVec(i, samples[i].Value)
	}

	var weights mat.VecDense
	if err := weights.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("rbf system is singular: %v", err)
	}

	values := make([][]float64, len(latGrid))
	for row, lat := range latGrid {
		values[row] = make([]float64, len(lonGrid))
		for col, lon := range lonGrid {
			var sum float64
			for i, s := range samples {
				sum += weights.AtVec(i) * phi(math.Hypot(lon-s.Lon, lat-s.Lat))
			}
			values[row][col] = sum
		}
	}
	return values, nil
}

// applyMask sets every cell whose center falls outside the polygon to NaN.
func applyMask(surface *Surface, mask orb.Geometry) {
	contains := func(p orb.Point) bool {
		switch g := mask.(type) {
		case orb.Polygon:
			return planar.PolygonContains(g, p)
		case orb.MultiPolygon:
			return planar.MultiPolygonContains(g, p)
		}
		return true
	}

	for row, lat := range surface.LatGrid {
		for col, lon := range surface.LonGrid {
			if !contains(orb.Point{lon, lat}) {
				surface.Values[row][col] = math.NaN()
			}
		}
	}
}

// valueRange scans the finite cells. All-NaN surfaces collapse to [0,1];
// a flat surface widens by a hair so color normalization stays defined.
func valueRange(values [][]float64) (float64, float64) {
	vmin, vmax := math.Inf(1), math.Inf(-1)
	for _, row := range values {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vmin = math.Min(vmin, v)
			vmax = math.Max(vmax, v)
		}
	}
	if vmin > vmax {
		return 0, 1
	}
	if vmin == vmax {
		vmax = vmin + 1e-9
	}
	return vmin, vmax
}

// UnionBoundaries dissolves the plot polygons matching the selector
// (case-insensitive substring) into a single mask geometry. An unmatched
// selector falls back to the first boundary rather than erroring.
func UnionBoundaries(boundaries []PlotBoundary, selector string) (orb.Geometry, error) {
	if len(boundaries) == 0 {
		return nil, fmt.Errorf("no plot boundaries loaded")
	}

	matched := make([]PlotBoundary, 0, len(boundaries))
	needle := strings.ToLower(selector)
	for _, b := range boundaries {
		if strings.Contains(strings.ToLower(b.Name), needle) {
			matched = append(matched, b)
		}
	}
	if len(matched) == 0 {
		log.Printf("Plot %q not found in boundaries; using the first available", selector)
		matched = boundaries[:1]
	}

	union, err := sfgeom.UnmarshalWKT(wkt.MarshalString(matched[0].Geometry))
	if err != nil {
		return nil, fmt.Errorf("error converting boundary geometry: %v", err)
	}
	for _, b := range matched[1:] {
		next, err := sfgeom.UnmarshalWKT(wkt.MarshalString(b.Geometry))
		if err != nil {
			return nil, fmt.Errorf("error converting boundary geometry: %v", err)
		}
		union, err = sfgeom.Union(union, next)
		if err != nil {
			return nil, fmt.Errorf("error dissolving boundaries: %v", err)
		}
	}

	dissolved, err := wkt.Unmarshal(union.AsText())
	if err != nil {
		return nil, fmt.Errorf("error decoding dissolved boundary: %v", err)
	}
	switch dissolved.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return dissolved, nil
	}
	return nil, fmt.Errorf("dissolved boundary is not a polygon: %s", dissolved.GeoJSONType())
}

// Centroid returns the mask centroid, used to center the agro map.
func Centroid(mask orb.Geometry) models.Point {
	c, _ := planar.CentroidArea(mask)
	return models.Point{Lat: c.Lat(), Lng: c.Lon()}
}

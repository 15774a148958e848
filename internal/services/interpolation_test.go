package services

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSamples() []Sample {
	return []Sample{
		{Lon: 0, Lat: 0, Value: 10},
		{Lon: 1, Lat: 0, Value: 20},
		{Lon: 0, Lat: 1, Value: 30},
		{Lon: 1, Lat: 1, Value: 40},
	}
}

func TestSurfaceBoundsPadsSampleExtent(t *testing.T) {
	samples := []Sample{
		{Lon: 0, Lat: 0, Value: 1},
		{Lon: 1, Lat: 2, Value: 2},
	}
	minLon, minLat, maxLon, maxLat := surfaceBounds(samples, nil)
	assert.InDelta(t, -0.1, minLon, 1e-9)
	assert.InDelta(t, 1.1, maxLon, 1e-9)
	assert.InDelta(t, -0.2, minLat, 1e-9)
	assert.InDelta(t, 2.2, maxLat, 1e-9)
}

func TestSurfaceBoundsUsesMaskExtent(t *testing.T) {
	mask := orb.Polygon{{{2, 3}, {2, 5}, {4, 5}, {4, 3}, {2, 3}}}
	minLon, minLat, maxLon, maxLat := surfaceBounds(testSamples(), mask)
	assert.Equal(t, 2.0, minLon)
	assert.Equal(t, 3.0, minLat)
	assert.Equal(t, 4.0, maxLon)
	assert.Equal(t, 5.0, maxLat)
}

func TestSurfaceBoundsDegenerateExtent(t *testing.T) {
	samples := []Sample{{Lon: 5, Lat: 5, Value: 1}}
	minLon, _, maxLon, _ := surfaceBounds(samples, nil)
	assert.Less(t, minLon, maxLon)
}

func TestIDWReproducesSamples(t *testing.T) {
	samples := testSamples()
	lons := []float64{0, 1}
	lats := []float64{0, 1}

	values := idwSurface(samples, lons, lats)
	assert.InDelta(t, 10, values[0][0], 1e-6)
	assert.InDelta(t, 20, values[0][1], 1e-6)
	assert.InDelta(t, 30, values[1][0], 1e-6)
	assert.InDelta(t, 40, values[1][1], 1e-6)
}

func TestNearestSurface(t *testing.T) {
	samples := testSamples()
	values := nearestSurface(samples, []float64{0.1, 0.9}, []float64{0.1, 0.9})
	assert.Equal(t, 10.0, values[0][0])
	assert.Equal(t, 20.0, values[0][1])
	assert.Equal(t, 30.0, values[1][0])
	assert.Equal(t, 40.0, values[1][1])
}

func TestRBFReproducesSamples(t *testing.T) {
	samples := testSamples()
	lons := []float64{0, 1}
	lats := []float64{0, 1}

	values, err := rbfSurface(samples, lons, lats, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 10, values[0][0], 1e-6)
	assert.InDelta(t, 20, values[0][1], 1e-6)
	assert.InDelta(t, 30, values[1][0], 1e-6)
	assert.InDelta(t, 40, values[1][1], 1e-6)
}

func TestInterpolateClampsResolution(t *testing.T) {
	surface, err := Interpolate(testSamples(), MethodIDW, 1, nil)
	require.NoError(t, err)
	assert.Len(t, surface.Values, ResolutionMin)
	assert.Len(t, surface.Values[0], ResolutionMin)

	surface, err = Interpolate(testSamples(), MethodIDW, 10000, nil)
	require.NoError(t, err)
	assert.Len(t, surface.Values, ResolutionMax)
}

func TestInterpolateFallsBackOnUnknownMethod(t *testing.T) {
	surface, err := Interpolate(testSamples(), "cubic", ResolutionMin, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodIDW, surface.Method)
}

func TestInterpolateNoSamples(t *testing.T) {
	_, err := Interpolate(nil, MethodIDW, ResolutionMin, nil)
	assert.Error(t, err)
}

func TestInterpolateMasksOutsideCells(t *testing.T) {
	// mask covers only the south-west quarter of the sample extent
	mask := orb.Polygon{{{-0.2, -0.2}, {-0.2, 0.4}, {0.4, 0.4}, {0.4, -0.2}, {-0.2, -0.2}}}
	surface, err := Interpolate(testSamples(), MethodIDW, ResolutionMin, mask)
	require.NoError(t, err)

	var kept int
	for _, row := range surface.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				kept++
			}
		}
	}
	assert.Positive(t, kept)
	assert.InDelta(t, -0.2, surface.Bounds.SouthWest.Lng, 1e-9)
	assert.InDelta(t, 0.4, surface.Bounds.NorthEast.Lng, 1e-9)
	assert.GreaterOrEqual(t, surface.Max, surface.Min)
}

func TestInterpolateMaskedGridHoldsNaN(t *testing.T) {
	// L-shaped mask leaves the north-east corner of its own bounding box out
	mask := orb.Polygon{{
		{0, 0}, {0, 1}, {0.4, 1}, {0.4, 0.4}, {1, 0.4}, {1, 0}, {0, 0},
	}}
	surface, err := Interpolate(testSamples(), MethodIDW, ResolutionMin, mask)
	require.NoError(t, err)

	var masked int
	for _, row := range surface.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				masked++
			}
		}
	}
	assert.Positive(t, masked)
}

func TestValueRange(t *testing.T) {
	vmin, vmax := valueRange([][]float64{{1, 2}, {3, math.NaN()}})
	assert.Equal(t, 1.0, vmin)
	assert.Equal(t, 3.0, vmax)

	vmin, vmax = valueRange([][]float64{{math.NaN(), math.NaN()}})
	assert.Equal(t, 0.0, vmin)
	assert.Equal(t, 1.0, vmax)

	vmin, vmax = valueRange([][]float64{{7, 7}})
	assert.Equal(t, 7.0, vmin)
	assert.Greater(t, vmax, vmin)
}

func testBoundaries() []PlotBoundary {
	square := func(x0, y0, size float64) orb.MultiPolygon {
		return orb.MultiPolygon{{{
			{x0, y0}, {x0, y0 + size}, {x0 + size, y0 + size}, {x0 + size, y0}, {x0, y0},
		}}}
	}
	return []PlotBoundary{
		{Name: "Talhao A", Geometry: square(0, 0, 10)},
		{Name: "Talhao B", Geometry: square(20, 0, 10)},
	}
}

func TestUnionBoundariesMatchesBySubstring(t *testing.T) {
	mask, err := UnionBoundaries(testBoundaries(), "talhao a")
	require.NoError(t, err)

	b := mask.Bound()
	assert.Equal(t, 0.0, b.Min.Lon())
	assert.Equal(t, 10.0, b.Max.Lon())
}

func TestUnionBoundariesDissolvesAllMatches(t *testing.T) {
	mask, err := UnionBoundaries(testBoundaries(), "talhao")
	require.NoError(t, err)

	b := mask.Bound()
	assert.Equal(t, 0.0, b.Min.Lon())
	assert.Equal(t, 30.0, b.Max.Lon())
}

func TestUnionBoundariesFallsBackToFirst(t *testing.T) {
	mask, err := UnionBoundaries(testBoundaries(), "does-not-exist")
	require.NoError(t, err)

	b := mask.Bound()
	assert.Equal(t, 10.0, b.Max.Lon())
}

func TestUnionBoundariesEmpty(t *testing.T) {
	_, err := UnionBoundaries(nil, "x")
	assert.Error(t, err)
}

func TestCentroid(t *testing.T) {
	mask := orb.Polygon{{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}}
	c := Centroid(mask)
	assert.InDelta(t, 5, c.Lat, 1e-9)
	assert.InDelta(t, 5, c.Lng, 1e-9)
}

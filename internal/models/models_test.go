package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointGeomRoundTrip(t *testing.T) {
	p := Point{Lat: -9.97, Lng: -67.81}
	back := FromGeomPoint(p.ToGeomPoint())
	assert.Equal(t, p, back)
}

func TestBoundsFromPoints(t *testing.T) {
	bounds, ok := BoundsFromPoints([]Point{
		{Lat: -10, Lng: -68},
		{Lat: -9, Lng: -67},
		{Lat: -9.5, Lng: -67.5},
	})
	require.True(t, ok)
	assert.Equal(t, Point{Lat: -10, Lng: -68}, bounds.SouthWest)
	assert.Equal(t, Point{Lat: -9, Lng: -67}, bounds.NorthEast)
}

func TestBoundsFromPointsEmpty(t *testing.T) {
	_, ok := BoundsFromPoints(nil)
	assert.False(t, ok)
}

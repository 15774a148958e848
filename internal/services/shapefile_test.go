package services

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareRecord encodes one polygon record holding a clockwise square ring.
func squareRecord(recordNumber int, x0, y0, size float64) []byte {
	points := [][2]float64{
		{x0, y0}, {x0, y0 + size}, {x0 + size, y0 + size}, {x0 + size, y0}, {x0, y0},
	}

	content := make([]byte, 4+32+4+4+4+len(points)*16)
	binary.LittleEndian.PutUint32(content[0:4], shpTypePolygon)
	binary.LittleEndian.PutUint32(content[36:40], 1) // numParts
	binary.LittleEndian.PutUint32(content[40:44], uint32(len(points)))
	binary.LittleEndian.PutUint32(content[44:48], 0) // part 0 offset
	for i, p := range points {
		base := 48 + i*16
		binary.LittleEndian.PutUint64(content[base:base+8], math.Float64bits(p[0]))
		binary.LittleEndian.PutUint64(content[base+8:base+16], math.Float64bits(p[1]))
	}

	record := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(record[0:4], uint32(recordNumber))
	binary.BigEndian.PutUint32(record[4:8], uint32(len(content)/2))
	copy(record[8:], content)
	return record
}

func writeShpFixture(t *testing.T, records ...[]byte) string {
	t.Helper()

	data := make([]byte, shpHeaderLength)
	binary.BigEndian.PutUint32(data[0:4], shpFileCode)
	binary.LittleEndian.PutUint32(data[28:32], 1000) // version
	binary.LittleEndian.PutUint32(data[32:36], shpTypePolygon)
	for _, r := range records {
		data = append(data, r...)
	}

	path := filepath.Join(t.TempDir(), "lotes.shp")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadPlotBoundaries(t *testing.T) {
	path := writeShpFixture(t,
		squareRecord(1, 0, 0, 10),
		squareRecord(2, 20, 0, 10),
	)

	boundaries, err := ReadPlotBoundaries(path, "Talhão")
	require.NoError(t, err)
	require.Len(t, boundaries, 2)

	// no .dbf next to the .shp, names degrade to positional defaults
	assert.Equal(t, "Talhão 1", boundaries[0].Name)
	assert.Equal(t, "Talhão 2", boundaries[1].Name)

	b := boundaries[0].Geometry.Bound()
	assert.Equal(t, 0.0, b.Min.Lon())
	assert.Equal(t, 10.0, b.Max.Lon())
	assert.Equal(t, 10.0, b.Max.Lat())

	b = boundaries[1].Geometry.Bound()
	assert.Equal(t, 20.0, b.Min.Lon())
}

func TestReadPolygonShapesBadMagic(t *testing.T) {
	data := make([]byte, shpHeaderLength)
	binary.BigEndian.PutUint32(data[0:4], 1234)
	path := filepath.Join(t.TempDir(), "bad.shp")
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := readPolygonShapes(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magic")
}

func TestReadPolygonShapesUnsupportedType(t *testing.T) {
	content := make([]byte, 20)
	binary.LittleEndian.PutUint32(content[0:4], 1) // point type
	record := make([]byte, 8+len(content))
	binary.BigEndian.PutUint32(record[0:4], 1)
	binary.BigEndian.PutUint32(record[4:8], uint32(len(content)/2))
	copy(record[8:], content)

	path := writeShpFixture(t, record)
	_, err := readPolygonShapes(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shape type")
}

func TestReadPolygonShapesTruncatedRecord(t *testing.T) {
	record := squareRecord(1, 0, 0, 10)
	path := writeShpFixture(t, record[:len(record)-4])

	_, err := readPolygonShapes(path)
	assert.Error(t, err)
}

func TestSignedRingArea(t *testing.T) {
	clockwise := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.Negative(t, signedRingArea(clockwise))

	counter := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	assert.Positive(t, signedRingArea(counter))
}

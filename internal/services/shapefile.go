package services

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"github.com/paulmach/orb"
)

// Shapefile constants for the pieces of the format the plot boundaries use.
const (
	shpFileCode     = 9994
	shpTypePolygon  = 5
	shpHeaderLength = 100
)

// PlotBoundary is one named plot polygon read from the boundary shapefile.
type PlotBoundary struct {
	Name     string
	Geometry orb.MultiPolygon
}

// ReadPlotBoundaries reads polygon geometries from a .shp main file and
// attaches the plot-name attribute from the sibling .dbf table. Coordinates
// must already be geographic (EPSG:4326); no reprojection is applied.
func ReadPlotBoundaries(shpPath, nameColumn string) ([]PlotBoundary, error) {
	geoms, err := readPolygonShapes(shpPath)
	if err != nil {
		return nil, err
	}

	names, err := readPlotNames(dbfSibling(shpPath), nameColumn, len(geoms))
	if err != nil {
		return nil, err
	}

	boundaries := make([]PlotBoundary, len(geoms))
	for i, g := range geoms {
		boundaries[i] = PlotBoundary{Name: names[i], Geometry: g}
	}
	return boundaries, nil
}

func dbfSibling(shpPath string) string {
	if strings.HasSuffix(shpPath, ".shp") {
		return strings.TrimSuffix(shpPath, ".shp") + ".dbf"
	}
	return shpPath + ".dbf"
}

// readPolygonShapes parses the .shp main file. Null shapes are skipped;
// any non-polygon record is an error.
func readPolygonShapes(path string) ([]orb.MultiPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading shapefile: %v", err)
	}
	if len(data) < shpHeaderLength {
		return nil, fmt.Errorf("shapefile too short: %d bytes", len(data))
	}
	if code := binary.BigEndian.Uint32(data[0:4]); code != shpFileCode {
		return nil, fmt.Errorf("bad shapefile magic: %d", code)
	}

	var geoms []orb.MultiPolygon
	offset := shpHeaderLength
	for offset+8 <= len(data) {
		contentWords := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		contentStart := offset + 8
		contentEnd := contentStart + contentWords*2
		if contentEnd > len(data) {
			return nil, fmt.Errorf("truncated shapefile record at offset %d", offset)
		}

		record := data[contentStart:contentEnd]
		shapeType := int(binary.LittleEndian.Uint32(record[0:4]))
		switch shapeType {
		case 0: // null shape
		case shpTypePolygon:
			geom, err := parsePolygonRecord(record)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, geom)
		default:
			return nil, fmt.Errorf("unsupported shape type %d (only polygons)", shapeType)
		}
		offset = contentEnd
	}
	return geoms, nil
}

// parsePolygonRecord decodes one polygon record: bounding box, part
// offsets, then the flat point list. Clockwise rings open a new polygon,
// counter-clockwise rings are holes of the preceding one.
func parsePolygonRecord(record []byte) (orb.MultiPolygon, error) {
	// 4 bytes type + 32 bytes box + numParts + numPoints
	if len(record) < 44 {
		return nil, fmt.Errorf("polygon record too short: %d bytes", len(record))
	}
	numParts := int(binary.LittleEndian.Uint32(record[36:40]))
	numPoints := int(binary.LittleEndian.Uint32(record[40:44]))

	partsEnd := 44 + numParts*4
	pointsEnd := partsEnd + numPoints*16
	if numParts <= 0 || numPoints <= 0 || pointsEnd > len(record) {
		return nil, fmt.Errorf("malformed polygon record: %d parts, %d points", numParts, numPoints)
	}

	parts := make([]int, numParts)
	for i := range parts {
		parts[i] = int(binary.LittleEndian.Uint32(record[44+i*4 : 48+i*4]))
	}

	points := make([]orb.Point, numPoints)
	for i := range points {
		base := partsEnd + i*16
		x := math.Float64frombits(binary.LittleEndian.Uint64(record[base : base+8]))
		y := math.Float64frombits(binary.LittleEndian.Uint64(record[base+8 : base+16]))
		points[i] = orb.Point{x, y}
	}

	var geom orb.MultiPolygon
	for i, start := range parts {
		end := numPoints
		if i+1 < numParts {
			end = parts[i+1]
		}
		if start < 0 || end > numPoints || end-start < 4 {
			return nil, fmt.Errorf("malformed polygon part %d", i)
		}
		ring := orb.Ring(points[start:end])
		if signedRingArea(ring) <= 0 || len(geom) == 0 {
			// shapefile convention: exteriors wind clockwise
			geom = append(geom, orb.Polygon{ring})
		} else {
			geom[len(geom)-1] = append(geom[len(geom)-1], ring)
		}
	}
	return geom, nil
}

// signedRingArea is the shoelace area: negative for clockwise rings.
func signedRingArea(ring orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

// readPlotNames reads the plot-name column from the .dbf attribute table.
// A missing table degrades to positional names so a bare .shp still works.
func readPlotNames(dbfPath, nameColumn string, count int) ([]string, error) {
	names := make([]string, count)
	for i := range names {
		names[i] = fmt.Sprintf("Talhão %d", i+1)
	}

	if _, err := os.Stat(dbfPath); os.IsNotExist(err) {
		return names, nil
	}

	table, err := dbase.OpenTable(&dbase.Config{Filename: dbfPath, TrimSpaces: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbfPath, err)
	}
	defer table.Close()

	i := 0
	for !table.EOF() && i < count {
		row, err := table.Next()
		if err != nil {
			return nil, fmt.Errorf("error reading attribute record: %v", err)
		}
		if row.Deleted {
			continue
		}

		value, err := row.ValueByName(nameColumn)
		if err != nil {
			// DBF column names are often upper-cased on export
			value, err = row.ValueByName(strings.ToUpper(nameColumn))
		}
		if err == nil && value != nil {
			if s := strings.TrimSpace(fmt.Sprintf("%v", value)); s != "" {
				names[i] = s
			}
		}
		i++
	}
	return names, nil
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodash/internal/models"
)

func newTestPolesService(t *testing.T) *PolesService {
	t.Helper()

	path := writeWorkbook(t, "poles.xlsx", [][]interface{}{
		{"Latitude", "Longitude", "Bairro", "Potência_", "Lâmpada_A"},
		{-9.97, -67.81, "Centro", 100, "LED"},
		{-9.98, -67.82, "Centro", 150, "Sódio"},
		{-9.99, -67.83, "Bosque", 100, "LED"},
		{"", "", "Sem coordenada", 100, "LED"},
	})

	s, err := NewPolesService(path, "")
	require.NoError(t, err)
	return s
}

func TestPolesServiceLoadsShapefileBoundaries(t *testing.T) {
	workbook := writeWorkbook(t, "poles.xlsx", [][]interface{}{
		{"Latitude", "Longitude", "Bairro", "Potência_", "Lâmpada_A"},
		{-9.97, -67.81, "Centro", 100, "LED"},
	})
	shpPath := writeShpFixture(t,
		squareRecord(1, 0, 0, 10),
		squareRecord(2, 20, 0, 10),
	)

	s, err := NewPolesService(workbook, shpPath)
	require.NoError(t, err)
	require.Len(t, s.boundaries, 2)
	assert.Len(t, s.boundaries[0], 5)

	doc, err := s.MapDoc("", "", "")
	require.NoError(t, err)
	require.Equal(t, models.LayerOutline, doc.Layers[0].Type)
	assert.Len(t, doc.Layers[0].Outlines, 2)
}

func TestPolesServiceSkipsRowsWithoutCoordinates(t *testing.T) {
	s := newTestPolesService(t)
	assert.Len(t, s.poles, 3)
}

func TestPolesServiceMissingColumns(t *testing.T) {
	path := writeWorkbook(t, "bad.xlsx", [][]interface{}{
		{"Latitude", "Longitude"},
		{-9.97, -67.81},
	})
	_, err := NewPolesService(path, "")
	assert.Error(t, err)
}

func TestPolesOptionsDependOnBairro(t *testing.T) {
	s := newTestPolesService(t)

	all := s.Options("")
	assert.Equal(t, []string{NoFilter, "Bosque", "Centro"}, all.Bairros)
	assert.Equal(t, []string{NoFilter, "100", "150"}, all.Potencias)

	bosque := s.Options("Bosque")
	assert.Equal(t, []string{NoFilter, "100"}, bosque.Potencias)
}

func TestPotenciaEqualComparesNumerically(t *testing.T) {
	assert.True(t, potenciaEqual("100", "100"))
	assert.True(t, potenciaEqual("100", "100.0"))
	assert.True(t, potenciaEqual("100,0", "100"))
	assert.False(t, potenciaEqual("100", "150"))
	assert.True(t, potenciaEqual("LED", "LED"))
	assert.False(t, potenciaEqual("LED", "100"))
}

func TestPolesSummary(t *testing.T) {
	s := newTestPolesService(t)

	summary := s.Summary(NoFilter, NoFilter)
	assert.Equal(t, 3, summary.Total)
	require.Len(t, summary.Bars, 3)

	byBairro := summary.Bars[0]
	assert.Equal(t, "bairro", byBairro.Kind)
	assert.Equal(t, []models.BarGroup{
		{Category: "Bosque", Series: "", Count: 1},
		{Category: "Centro", Series: "", Count: 2},
	}, byBairro.Groups)

	filtered := s.Summary("Centro", "100.0")
	assert.Equal(t, 1, filtered.Total)
}

func TestPolesBarDataUnknownKind(t *testing.T) {
	s := newTestPolesService(t)
	_, err := s.BarData("", "", "voltagem")
	assert.Error(t, err)
}

func TestPolesMapDoc(t *testing.T) {
	s := newTestPolesService(t)

	doc, err := s.MapDoc("Centro", "", "")
	require.NoError(t, err)
	assert.Equal(t, 13.3, doc.Zoom)
	assert.Equal(t, models.TilesOpenStreetMap, doc.Tiles)

	require.Len(t, doc.Layers, 2)
	markers := doc.Layers[1]
	require.Equal(t, models.LayerMarkers, markers.Type)
	require.Len(t, markers.Markers, 2)
	assert.Equal(t, "#1f77b4", markers.Markers[0].Color)
	assert.Contains(t, markers.Markers[0].Tooltip, "Potência: 100")

	colored, err := s.MapDoc("Centro", "", "red")
	require.NoError(t, err)
	assert.Equal(t, "red", colored.Layers[1].Markers[0].Color)
}

func TestPolesMapDocNoMatches(t *testing.T) {
	s := newTestPolesService(t)
	_, err := s.MapDoc("Inexistente", "", "")
	assert.ErrorIs(t, err, ErrNoFeatures)
}

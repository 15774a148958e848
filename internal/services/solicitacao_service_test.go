package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodash/internal/config"
)

func TestParseCoord(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain", "-9.974", -9.974},
		{"comma decimal", "-2,053655", -2.053655},
		{"unicode minus", "−67.81", -67.81},
		{"trailing separator", "-9.5;", -9.5},
		{"rounds half away from zero", "-2.0536555", -2.053656},
		{"rounds down below half", "1.0000004", 1.0},
		{"surrounding spaces", "  -47.549849  ", -47.549849},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCoord(tc.input)
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 1e-9)
		})
	}
}

func TestParseCoordInvalid(t *testing.T) {
	assert.Nil(t, ParseCoord(""))
	assert.Nil(t, ParseCoord("   "))
	assert.Nil(t, ParseCoord("abc"))
	assert.Nil(t, ParseCoord("1.2.3"))
}

func TestParseCoordRejectsNonFinite(t *testing.T) {
	for _, input := range []string{"NaN", "nan", "Inf", "+Inf", "-inf", "Infinity"} {
		assert.Nil(t, ParseCoord(input), "input %q", input)
	}
}

func TestParseCoordsCombined(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLat  float64
		wantLon  float64
	}{
		{"semicolon with comma decimals", "-2,053655; -47,549849", -2.053655, -47.549849},
		{"pipe", "-2.05|-47.55", -2.05, -47.55},
		{"tab", "-2.05\t-47.55", -2.05, -47.55},
		{"whitespace", "-2.05 -47.55", -2.05, -47.55},
		{"whitespace with comma decimals", "-2,053655 -47,549849", -2.053655, -47.549849},
		{"bare comma", "-2.05,-47.55", -2.05, -47.55},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lat, lon := ParseCoordsCombined(tc.input)
			require.NotNil(t, lat)
			require.NotNil(t, lon)
			assert.InDelta(t, tc.wantLat, *lat, 1e-9)
			assert.InDelta(t, tc.wantLon, *lon, 1e-9)
		})
	}
}

func TestParseCoordsCombinedInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "-2.05", "foo bar"} {
		lat, lon := ParseCoordsCombined(input)
		assert.Nil(t, lat, "input %q", input)
		assert.Nil(t, lon, "input %q", input)
	}
}

func TestAllowedPhoto(t *testing.T) {
	assert.True(t, AllowedPhoto("foto.png"))
	assert.True(t, AllowedPhoto("FOTO.JPG"))
	assert.True(t, AllowedPhoto("foto.webp"))
	assert.False(t, AllowedPhoto("foto.txt"))
	assert.False(t, AllowedPhoto("foto"))
	assert.False(t, AllowedPhoto(""))
}

func TestSavePhoto(t *testing.T) {
	uploadDir := t.TempDir()
	s := NewSolicitacaoService(nil, config.DBConfig{Schema: "urbano", Table: "solicitacoes"}, uploadDir)

	path, err := s.SavePhoto("minha foto!.png", strings.NewReader("conteudo"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "/static/uploads/minha_foto_"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	data, err := os.ReadFile(filepath.Join(uploadDir, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, "conteudo", string(data))

	// a second upload of the same name never collides
	other, err := s.SavePhoto("minha foto!.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestSavePhotoRejectsOversizeUpload(t *testing.T) {
	uploadDir := t.TempDir()
	s := NewSolicitacaoService(nil, config.DBConfig{Schema: "urbano", Table: "solicitacoes"}, uploadDir)

	big := bytes.NewReader(make([]byte, MaxPhotoSize+1))
	_, err := s.SavePhoto("grande.png", big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")

	// no truncated file is left behind
	entries, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSavePhotoAcceptsExactCap(t *testing.T) {
	uploadDir := t.TempDir()
	s := NewSolicitacaoService(nil, config.DBConfig{Schema: "urbano", Table: "solicitacoes"}, uploadDir)

	path, err := s.SavePhoto("cheia.png", bytes.NewReader(make([]byte, MaxPhotoSize)))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(uploadDir, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, int64(MaxPhotoSize), info.Size())
}

func TestSavePhotoRejectsUnsupportedType(t *testing.T) {
	s := NewSolicitacaoService(nil, config.DBConfig{Schema: "urbano", Table: "solicitacoes"}, t.TempDir())
	_, err := s.SavePhoto("script.sh", strings.NewReader("#!/bin/sh"))
	assert.Error(t, err)
}

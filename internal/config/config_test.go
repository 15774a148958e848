package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/data.xlsx"))
	assert.True(t, IsRemote("http://example.com/data.geojson"))
	assert.False(t, IsRemote("data.geojson"))
	assert.False(t, IsRemote("/abs/path/data.geojson"))
}

func TestGetDataFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join(DataDir, "x.geojson"), GetDataFilePath("x.geojson"))

	url := "https://example.com/data.xlsx"
	assert.Equal(t, url, GetDataFilePath(url))
}

func TestDBConfigDefaults(t *testing.T) {
	cfg := GetDBConfig()
	assert.NotEmpty(t, cfg.User)
	assert.NotEmpty(t, cfg.Schema)
	assert.NotEmpty(t, cfg.Table)
}

func TestConnString(t *testing.T) {
	cfg := DBConfig{
		User: "app", Password: "secret", Host: "db", Port: "5432", Database: "urbano",
	}
	assert.Equal(t,
		"user=app password=secret host=db port=5432 dbname=urbano sslmode=disable",
		cfg.ConnString())
}

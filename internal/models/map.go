package models

import "encoding/json"

// Layer types understood by the map client.
const (
	LayerGeoJSON = "geojson"
	LayerMarkers = "markers"
	LayerImage   = "image"
	LayerOutline = "outline"
)

// TileSpec describes the base tile layer of a map.
type TileSpec struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Attribution string `json:"attribution"`
}

// LayerStyle mirrors the handful of style options the dashboards use for
// polygon overlays.
type LayerStyle struct {
	FillColor   string  `json:"fillColor,omitempty"`
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	FillOpacity float64 `json:"fillOpacity"`
	Fill        bool    `json:"fill"`
}

// TooltipField maps a feature property to the label shown in its tooltip.
type TooltipField struct {
	Field string `json:"field"`
	Alias string `json:"alias"`
}

// Marker is a single circle marker with tooltip and popup text.
type Marker struct {
	Location  Point  `json:"location"`
	Radius    int    `json:"radius"`
	Color     string `json:"color"`
	FillColor string `json:"fillColor"`
	Tooltip   string `json:"tooltip,omitempty"`
	Popup     string `json:"popup,omitempty"`
}

// ImageOverlay places a rendered raster between two corners of the map.
type ImageOverlay struct {
	URL     string       `json:"url"`
	Bounds  LatLngBounds `json:"bounds"`
	Opacity float64      `json:"opacity"`
}

// OutlinePath is a single closed boundary line.
type OutlinePath struct {
	Points []Point `json:"points"`
}

// MapLayer is one layer of a map document. Exactly one of the payload
// fields is set, according to Type.
type MapLayer struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	GeoJSON       json.RawMessage `json:"geojson,omitempty"`
	Style         *LayerStyle     `json:"style,omitempty"`
	TooltipFields []TooltipField  `json:"tooltipFields,omitempty"`
	Markers       []Marker        `json:"markers,omitempty"`
	Image         *ImageOverlay   `json:"image,omitempty"`
	Outlines      []OutlinePath   `json:"outlines,omitempty"`
}

// Colorbar describes the legend for a continuous overlay.
type Colorbar struct {
	Caption string   `json:"caption"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Stops   []string `json:"stops"`
}

// MapDocument is the renderer output for the interactive map: everything a
// thin map client needs to draw one dashboard view.
type MapDocument struct {
	Center    Point         `json:"center"`
	Zoom      float64       `json:"zoom"`
	FitBounds *LatLngBounds `json:"fitBounds,omitempty"`
	Tiles     TileSpec      `json:"tiles"`
	Layers    []MapLayer    `json:"layers"`
	Colorbar  *Colorbar     `json:"colorbar,omitempty"`
}

// Base tile layers used by the dashboards.
var (
	TilesPositron = TileSpec{
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
		Name:        "cartodbpositron",
		Attribution: "© OpenStreetMap contributors, © CARTO",
	}
	TilesEsriImagery = TileSpec{
		URL:         "https://services.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Name:        "Satélite (Esri.WorldImagery)",
		Attribution: "Esri, Maxar, Earthstar Geographics",
	}
	TilesOpenStreetMap = TileSpec{
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Name:        "open-street-map",
		Attribution: "© OpenStreetMap contributors",
	}
)

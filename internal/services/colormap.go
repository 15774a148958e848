package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
)

// viridisAnchors are evenly spaced control colors of the viridis colormap;
// intermediate values are linearly interpolated.
var viridisAnchors = []color.NRGBA{
	{0x44, 0x01, 0x54, 0xff},
	{0x48, 0x28, 0x78, 0xff},
	{0x3e, 0x49, 0x89, 0xff},
	{0x31, 0x68, 0x8e, 0xff},
	{0x26, 0x82, 0x8e, 0xff},
	{0x1f, 0x9e, 0x89, 0xff},
	{0x35, 0xb7, 0x79, 0xff},
	{0x6e, 0xce, 0x58, 0xff},
	{0xb5, 0xde, 0x2b, 0xff},
	{0xfd, 0xe7, 0x25, 0xff},
}

// Viridis maps t in [0,1] to the viridis colormap.
func Viridis(t float64) color.NRGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(viridisAnchors)-1)
	lo := int(pos)
	if lo >= len(viridisAnchors)-1 {
		return viridisAnchors[len(viridisAnchors)-1]
	}
	frac := pos - float64(lo)
	a, b := viridisAnchors[lo], viridisAnchors[lo+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.NRGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xff}
}

// ColorHex maps a value within [vmin,vmax] to a viridis hex color.
func ColorHex(v, vmin, vmax float64) string {
	t := 0.0
	if vmax > vmin {
		t = (v - vmin) / (vmax - vmin)
	}
	c := Viridis(t)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorbarStops samples the colormap into n hex stops for the legend.
func ColorbarStops(n int) []string {
	stops := make([]string, n)
	for i := range stops {
		stops[i] = ColorHex(float64(i), 0, float64(n-1))
	}
	return stops
}

// overlayAlpha is the opacity of the heat overlay inside the mask.
const overlayAlpha = 199 // 0.78 * 255

// RenderOverlayPNG rasterizes a surface to a PNG heat overlay: viridis
// inside the mask, fully transparent outside, rows flipped so the first
// image row is the northern edge.
func RenderOverlayPNG(surface *Surface) ([]byte, error) {
	height := len(surface.Values)
	if height == 0 {
		return nil, fmt.Errorf("empty surface")
	}
	width := len(surface.Values[0])

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := surface.Values[height-1-y]
		for x := 0; x < width; x++ {
			v := row[x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue // zero value is already transparent
			}
			t := (v - surface.Min) / (surface.Max - surface.Min)
			c := Viridis(t)
			c.A = overlayAlpha
			img.SetNRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("error encoding overlay PNG: %v", err)
	}
	return buf.Bytes(), nil
}

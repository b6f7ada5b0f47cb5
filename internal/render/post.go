package render

import (
	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/srgb"
)

// PostPipeline groups post stages; all are optional.
type PostPipeline struct {
	// ToneMap runs only while a lookup table is active.
	ToneMap func([]Color, *lut.Cube)
	// Encode converts linear values to what the display buffer stores.
	Encode func([]Color)
}

// DefaultPost tonemaps through the active table and applies the display
// transfer.
func DefaultPost() PostPipeline {
	return PostPipeline{ToneMap: LUTToneMap, Encode: DisplayEncode}
}

// LUTToneMap maps each pixel through c.
func LUTToneMap(buf []Color, c *lut.Cube) {
	if c == nil {
		return
	}
	for i, px := range buf {
		r, g, b := c.Apply(float64(px.R), float64(px.G), float64(px.B))
		buf[i] = Color{float32(r), float32(g), float32(b)}
	}
}

// DisplayEncode stores srgb.Decode of each channel, so reading a pixel back
// through srgb.Encode recovers the tonemapped linear value.
func DisplayEncode(buf []Color) {
	for i, px := range buf {
		r, g, b := srgb.DecodeRGB(float64(px.R), float64(px.G), float64(px.B))
		buf[i] = Color{float32(r), float32(g), float32(b)}
	}
}

// Package srgb implements the piecewise power-law response curve used to move
// between linear light and display-encoded values.
//
//	encode(x) = x / Phi                      x <  X
//	          = ((x + A) / (1 + A)) ^ Gamma  x >= X
//
//	decode(y) = y * Phi                      y <  Y
//	          = y ^ (1/Gamma) * (1 + A) - A  y >= Y
//
// The constants match the renderer's colour pipeline, whose linear segment
// meets the gamma segment with matching slope (X = A / (Gamma - 1)).
package srgb

import "math"

const (
	Phi   = 12.9232102
	Gamma = 2.4
	A     = 0.055
	X     = 0.039285
	Y     = 0.0030399
)

// Encode maps a linear value onto the display curve. Negative input is
// clamped to 0.
func Encode(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x < X {
		return x / Phi
	}
	return math.Pow((x+A)/(1+A), Gamma)
}

// Decode is the inverse of Encode. Negative input is clamped to 0.
func Decode(y float64) float64 {
	if y <= 0 {
		return 0
	}
	if y < Y {
		return y * Phi
	}
	return math.Pow(y, 1/Gamma)*(1+A) - A
}

// EncodeRGB applies Encode to each channel.
func EncodeRGB(r, g, b float64) (float64, float64, float64) {
	return Encode(r), Encode(g), Encode(b)
}

// DecodeRGB applies Decode to each channel.
func DecodeRGB(r, g, b float64) (float64, float64, float64) {
	return Decode(r), Decode(g), Decode(b)
}

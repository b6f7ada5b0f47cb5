// Package scene holds the stimulus data model shared by the planners, the
// capture loop and the render host.
package scene

import "math"

// LambertPeak is the peak-channel response of a white Lambertian plane lit
// frontally at unit illuminance.
const LambertPeak = 0.822

type Vec3 struct{ X, Y, Z float64 }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Len() float64       { return math.Sqrt(v.Dot(v)) }

// Angle returns the angle between v and o in radians.
func (v Vec3) Angle(o Vec3) float64 {
	c := v.Dot(o) / (v.Len() * o.Len())
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// RGB is a linear three-channel colour.
type RGB struct{ R, G, B float64 }

func (c RGB) Max() float64 { return math.Max(c.R, math.Max(c.G, c.B)) }

func (c RGB) Scale(s float64) RGB { return RGB{c.R * s, c.G * s, c.B * s} }

func (c RGB) Finite() bool {
	return finite(c.R) && finite(c.G) && finite(c.B)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Params is the full parameter set for one stimulus: the plane's material
// colour M and normal N, the directional light's colour D, direction L and
// intensity Id, the ambient colour A and intensity Ia, and the run exposure E.
type Params struct {
	M  RGB
	N  Vec3
	D  RGB
	L  Vec3
	Id float64
	A  RGB
	Ia float64
	E  float64
}

// Valid reports whether intensities are finite and nonnegative.
func (p Params) Valid() bool {
	return finite(p.Id) && finite(p.Ia) && p.Id >= 0 && p.Ia >= 0
}

// Axis is the reference direction of the sampling cone and the default
// orientation of both the plane normal and the light.
var Axis = Vec3{0, 0, -1}

// Frontal returns a white plane lit head-on by a white light of intensity i
// with no ambient term. Sweeps render this scene so the output depends only
// on i and the active lookup table.
func Frontal(i float64) Params {
	white := RGB{1, 1, 1}
	return Params{M: white, N: Axis, D: white, L: Axis, Id: i}
}

// Hooks are the capabilities the render host exposes to a trial.
type Hooks struct {
	// ApplyParameters pushes p onto the scene objects.
	ApplyParameters func(p Params)
	// SelectLookup activates the colour lookup asset for a sweep delta.
	SelectLookup func(delta int) error
}

// Trial is one planned stimulus, ready to be applied and later logged.
type Trial interface {
	// Ordinal is the 1-based position of the trial in its run.
	Ordinal() int
	// Fields are the logged parameter values in schema order.
	Fields() []float64
	Apply(h Hooks) error
}

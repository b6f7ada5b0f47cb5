// Package plane renders the calibration scene: a single flat patch filling
// the centre of the view, surrounded by sky lit only by the ambient term.
package plane

import (
	"math"

	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/srgb"
)

// Lambertian shades the plane as a diffuse reflector:
//
//	u = k * m * (Id * encode(d) * max(n·l, 0) / π + Ia * a) * 2^-E
type Lambertian struct{}

func (Lambertian) Name() string { return "lambertian" }

func (Lambertian) Render(dst []render.Color, dim render.Dimensions, u *render.Uniforms) {
	p := u.Scene
	cos := math.Max(p.N.Dot(p.L), 0)
	gain := math.Exp2(-p.E)
	dr, dg, db := srgb.EncodeRGB(p.D.R, p.D.G, p.D.B)
	direct := scene.RGB{R: dr, G: dg, B: db}.Scale(p.Id * cos / math.Pi)
	ambient := p.A.Scale(p.Ia)

	surface := scene.RGB{
		R: scene.LambertPeak * p.M.R * (direct.R + ambient.R),
		G: scene.LambertPeak * p.M.G * (direct.G + ambient.G),
		B: scene.LambertPeak * p.M.B * (direct.B + ambient.B),
	}.Scale(gain)
	fill(dst, dim, color(surface), color(ambient.Scale(gain)))
}

// Unlit shows the material colour regardless of lighting.
type Unlit struct{}

func (Unlit) Name() string { return "unlit" }

func (Unlit) Render(dst []render.Color, dim render.Dimensions, u *render.Uniforms) {
	fill(dst, dim, color(u.Scene.M), render.Color{})
}

// Register adds both materials to reg.
func Register(reg *render.Registry) {
	reg.Register(Lambertian{})
	reg.Register(Unlit{})
}

func color(c scene.RGB) render.Color {
	return render.Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}

// fill paints the centre half of the view with surface and the rest with sky.
func fill(dst []render.Color, dim render.Dimensions, surface, sky render.Color) {
	x0, x1 := dim.W/4, dim.W-dim.W/4
	y0, y1 := dim.H/4, dim.H-dim.H/4
	for y := 0; y < dim.H; y++ {
		for x := 0; x < dim.W; x++ {
			i := y*dim.W + x
			if x >= x0 && x < x1 && y >= y0 && y < y1 {
				dst[i] = surface
			} else {
				dst[i] = sky
			}
		}
	}
}

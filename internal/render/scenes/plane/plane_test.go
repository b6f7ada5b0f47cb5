package plane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
)

func TestLambertianFrontal(t *testing.T) {
	dim := render.Dimensions{W: 8, H: 8}
	dst := make([]render.Color, 64)
	u := &render.Uniforms{Scene: scene.Frontal(math.Pi)}
	Lambertian{}.Render(dst, dim, u)

	centre := dst[4*8+4]
	assert.InDelta(t, scene.LambertPeak, centre.R, 1e-6)
	assert.InDelta(t, scene.LambertPeak, centre.B, 1e-6)
	assert.Equal(t, render.Color{}, dst[0], "sky has no ambient")
}

func TestLambertianOccludedAndExposure(t *testing.T) {
	dim := render.Dimensions{W: 4, H: 4}
	dst := make([]render.Color, 16)
	p := scene.Frontal(10)
	p.L = scene.Vec3{X: 0, Y: 0, Z: 1}
	p.A = scene.RGB{R: 1, G: 0.5, B: 0}
	p.Ia = 2
	p.E = 1
	Lambertian{}.Render(dst, dim, &render.Uniforms{Scene: p})

	centre := dst[2*4+2]
	assert.InDelta(t, scene.LambertPeak*1*2*0.5, centre.R, 1e-6)
	assert.InDelta(t, scene.LambertPeak*0.5*2*0.5, centre.G, 1e-6)
	assert.InDelta(t, 1.0, dst[0].R, 1e-6)
}

func TestUnlitIgnoresLight(t *testing.T) {
	dim := render.Dimensions{W: 4, H: 4}
	dst := make([]render.Color, 16)
	p := scene.Params{M: scene.RGB{R: 0.2, G: 0.4, B: 0.6}, Id: 100}
	Unlit{}.Render(dst, dim, &render.Uniforms{Scene: p})
	assert.InDelta(t, 0.4, dst[2*4+2].G, 1e-6)

	reg := render.NewRegistry()
	Register(reg)
	assert.ElementsMatch(t, []string{"lambertian", "unlit"}, reg.List())
}

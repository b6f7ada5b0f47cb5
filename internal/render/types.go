package render

import "github.com/coreman2200/rendercal/internal/scene"

type Color struct{ R, G, B float32 }

// Dimensions of the viewport in pixels.
type Dimensions struct{ W, H int }

// Rect is a pixel region with its origin at the top-left.
type Rect struct{ X, Y, W, H int }

// CenterRect returns a size×size region centred on the viewport.
func CenterRect(dim Dimensions, size int) Rect {
	return Rect{X: dim.W/2 - size/2, Y: dim.H/2 - size/2, W: size, H: size}
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) In(dim Dimensions) bool {
	return r.X >= 0 && r.Y >= 0 && r.X+r.W <= dim.W && r.Y+r.H <= dim.H
}

// Uniforms is the scene state visible to a renderer for one frame.
type Uniforms struct {
	Scene scene.Params
}

// Renderer writes linear radiance for every pixel of dst.
type Renderer interface {
	Name() string
	Render(dst []Color, dim Dimensions, u *Uniforms)
}

type Registry struct{ m map[string]Renderer }

func NewRegistry() *Registry { return &Registry{m: map[string]Renderer{}} }

func (r *Registry) Register(rr Renderer) {
	if rr == nil {
		return
	}
	r.m[rr.Name()] = rr
}

func (r *Registry) Get(name string) (Renderer, bool) { rr, ok := r.m[name]; return rr, ok }
func (r *Registry) List() []string {
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	return out
}

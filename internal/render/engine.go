package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/scene"
)

// Camera names rendered each frame.
const (
	MainCamera   = "main"
	ShadowCamera = "shadow"
)

// FrameEvent is delivered after each camera finishes a frame.
type FrameEvent struct {
	Camera string
	Frame  uint64
}

// Engine is the render host: it owns the scene, renders it once per frame
// for each camera, runs the post pipeline on the main camera and exposes the
// resulting framebuffer.
//
// Scene parameters and lookup selections are latched at the end of a frame,
// so a change made between frames K-1 and K first shows up in frame K+1.
type Engine struct {
	Dim     Dimensions
	Cameras []string
	Tonemap bool

	RActive Renderer
	Lookups *lut.Library

	pending, active       Uniforms
	lutPending, lutActive *lut.Cube

	// framebuffers
	Buf []Color // linear radiance of the last main pass
	Out []Color // post-processed framebuffer

	post   PostPipeline
	frame  uint64
	postMS float64

	subs    map[int]func(FrameEvent)
	nextSub int

	statsMu sync.Mutex
	stats   Stats
}

// Stats are the timings of the last completed frame.
type Stats struct {
	Frame    uint64  `json:"frame"`
	RenderMS float64 `json:"render_ms"`
	PostMS   float64 `json:"post_ms"`
}

// NewEngine allocates buffers and returns an Engine rendering a shadow pass
// followed by the main camera.
func NewEngine(dim Dimensions, r Renderer, lookups *lut.Library) (*Engine, error) {
	if dim.W <= 0 || dim.H <= 0 {
		return nil, errors.New("invalid dimensions")
	}
	n := dim.W * dim.H
	e := &Engine{
		Dim:     dim,
		Cameras: []string{ShadowCamera, MainCamera},
		RActive: r,
		Lookups: lookups,
		Buf:     make([]Color, n),
		Out:     make([]Color, n),
		post:    DefaultPost(),
		subs:    map[int]func(FrameEvent){},
	}
	return e, nil
}

func (e *Engine) SetPost(p PostPipeline) { e.post = p }

// SetRenderer switches the active renderer immediately.
func (e *Engine) SetRenderer(name string, reg *Registry) error {
	if reg == nil {
		return errors.New("registry is nil")
	}
	rr, ok := reg.Get(name)
	if !ok {
		return errors.New("renderer not found: " + name)
	}
	e.RActive = rr
	return nil
}

// ApplyParameters stages p for the next frame.
func (e *Engine) ApplyParameters(p scene.Params) { e.pending.Scene = p }

// SelectLookup stages the table for delta. A missing asset is an error and
// leaves the current selection untouched.
func (e *Engine) SelectLookup(delta int) error {
	if e.Lookups == nil {
		return fmt.Errorf("%w: no lookup library (delta %d)", lut.ErrMissingAsset, delta)
	}
	c, err := e.Lookups.Select(delta)
	if err != nil {
		return err
	}
	e.lutPending = c
	return nil
}

// Hooks exposes the engine as a trial's scene boundary.
func (e *Engine) Hooks() scene.Hooks {
	return scene.Hooks{ApplyParameters: e.ApplyParameters, SelectLookup: e.SelectLookup}
}

// OnFrameRendered subscribes fn to per-camera completion events. The
// returned func removes the subscription.
func (e *Engine) OnFrameRendered(fn func(FrameEvent)) (remove func()) {
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() { delete(e.subs, id) }
}

// Stats may be called from any goroutine.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// Frame is the number of frames rendered so far.
func (e *Engine) Frame() uint64 { return e.frame }

// RenderOnce renders every camera for one frame and notifies subscribers
// after each camera completes.
func (e *Engine) RenderOnce() error {
	start := time.Now()
	e.frame++
	for _, cam := range e.Cameras {
		if cam == MainCamera {
			e.renderMain()
		}
		e.notify(FrameEvent{Camera: cam, Frame: e.frame})
	}
	e.active = e.pending
	e.lutActive = e.lutPending
	e.statsMu.Lock()
	e.stats.Frame = e.frame
	e.stats.RenderMS = float64(time.Since(start).Microseconds()) / 1000.0
	e.stats.PostMS = e.postMS
	e.statsMu.Unlock()
	return nil
}

func (e *Engine) renderMain() {
	if e.RActive != nil {
		e.RActive.Render(e.Buf, e.Dim, &e.active)
	}
	copy(e.Out, e.Buf)

	postStart := time.Now()
	if e.Tonemap && e.post.ToneMap != nil && e.lutActive != nil {
		e.post.ToneMap(e.Out, e.lutActive)
	}
	if e.post.Encode != nil {
		e.post.Encode(e.Out)
	}
	e.postMS = float64(time.Since(postStart).Microseconds()) / 1000.0
}

func (e *Engine) notify(ev FrameEvent) {
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := e.subs[id]; ok {
			fn(ev)
		}
	}
}

// ReadRegion copies r out of the last main-camera framebuffer, row by row.
func (e *Engine) ReadRegion(r Rect) ([]Color, error) {
	if r.Empty() || !r.In(e.Dim) {
		return nil, fmt.Errorf("region %+v outside %dx%d viewport", r, e.Dim.W, e.Dim.H)
	}
	out := make([]Color, 0, r.W*r.H)
	for y := r.Y; y < r.Y+r.H; y++ {
		row := y * e.Dim.W
		out = append(out, e.Out[row+r.X:row+r.X+r.W]...)
	}
	return out, nil
}

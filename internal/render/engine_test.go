package render

import (
	"errors"
	"testing"

	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/srgb"
)

// fakeRenderer paints every pixel with the light intensity.
type fakeRenderer struct{ name string }

func (f *fakeRenderer) Name() string { return f.name }
func (f *fakeRenderer) Render(dst []Color, dim Dimensions, u *Uniforms) {
	v := float32(u.Scene.Id)
	for i := range dst {
		dst[i] = Color{v, v, v}
	}
}

func newTestEngine(t *testing.T, lib *lut.Library) *Engine {
	t.Helper()
	e, err := NewEngine(Dimensions{W: 8, H: 6}, &fakeRenderer{name: "fake"}, lib)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	e.SetPost(PostPipeline{})
	return e
}

func TestNewEngineRejectsEmptyViewport(t *testing.T) {
	if _, err := NewEngine(Dimensions{W: 0, H: 4}, nil, nil); err == nil {
		t.Fatalf("expected error for empty viewport")
	}
}

func TestParametersVisibleNextFrame(t *testing.T) {
	e := newTestEngine(t, nil)
	e.ApplyParameters(scene.Params{Id: 0.5})
	if err := e.RenderOnce(); err != nil {
		t.Fatalf("render: %v", err)
	}
	if e.Out[0].R != 0 {
		t.Fatalf("parameters leaked into the frame they were applied before: %#v", e.Out[0])
	}
	if err := e.RenderOnce(); err != nil {
		t.Fatalf("render 2: %v", err)
	}
	if e.Out[0].R != 0.5 {
		t.Fatalf("expected 0.5 one frame later, got %#v", e.Out[0])
	}
}

func TestCallbacksPerCameraAndRemove(t *testing.T) {
	e := newTestEngine(t, nil)
	var seen []FrameEvent
	remove := e.OnFrameRendered(func(ev FrameEvent) { seen = append(seen, ev) })
	_ = e.RenderOnce()
	if len(seen) != 2 || seen[0].Camera != ShadowCamera || seen[1].Camera != MainCamera || seen[1].Frame != 1 {
		t.Fatalf("unexpected events: %#v", seen)
	}
	remove()
	_ = e.RenderOnce()
	if len(seen) != 2 {
		t.Fatalf("callback fired after removal: %#v", seen)
	}
	if e.Frame() != 2 {
		t.Fatalf("frame = %d", e.Frame())
	}
}

func TestReadRegion(t *testing.T) {
	e := newTestEngine(t, nil)
	for i := range e.Out {
		e.Out[i] = Color{R: float32(i)}
	}
	px, err := e.ReadRegion(Rect{X: 2, Y: 1, W: 2, H: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []float32{10, 11, 18, 19}
	for i, p := range px {
		if p.R != want[i] {
			t.Fatalf("pixel %d = %v, want %v", i, p.R, want[i])
		}
	}
	if _, err := e.ReadRegion(Rect{X: 7, Y: 0, W: 2, H: 1}); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}
	if r := CenterRect(e.Dim, 4); r != (Rect{X: 2, Y: 1, W: 4, H: 4}) {
		t.Fatalf("centre rect = %+v", r)
	}
}

func TestSelectLookupMissing(t *testing.T) {
	e := newTestEngine(t, lut.NewLibrary())
	err := e.SelectLookup(4)
	if !errors.Is(err, lut.ErrMissingAsset) {
		t.Fatalf("expected missing asset, got %v", err)
	}
	e = newTestEngine(t, nil)
	if err := e.Hooks().SelectLookup(1); !errors.Is(err, lut.ErrMissingAsset) {
		t.Fatalf("expected missing asset without library, got %v", err)
	}
}

func TestTonemapLatchesWithScene(t *testing.T) {
	lib, err := lut.DeltaLibrary(lut.DefaultKnots)
	if err != nil {
		t.Fatalf("library: %v", err)
	}
	e := newTestEngine(t, lib)
	e.SetPost(DefaultPost())
	e.Tonemap = true

	knot := lut.DefaultKnots[9]
	e.ApplyParameters(scene.Params{Id: knot})
	if err := e.SelectLookup(10); err != nil {
		t.Fatalf("select: %v", err)
	}
	_ = e.RenderOnce()
	_ = e.RenderOnce()
	got := srgb.Encode(float64(e.Out[0].R))
	if got < 0.999 || got > 1.001 {
		t.Fatalf("expected tonemapped peak at knot, got %v", got)
	}
}

func TestStatsTrackLastFrame(t *testing.T) {
	e := newTestEngine(t, nil)
	if st := e.Stats(); st.Frame != 0 {
		t.Fatalf("stats before any frame: %#v", st)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = e.Stats()
		}
	}()
	for i := 0; i < 3; i++ {
		if err := e.RenderOnce(); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	<-done
	st := e.Stats()
	if st.Frame != 3 || st.RenderMS < 0 || st.PostMS < 0 || st.PostMS > st.RenderMS {
		t.Fatalf("unexpected stats: %#v", st)
	}
}

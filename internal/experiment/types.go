package experiment

import (
	"github.com/coreman2200/rendercal/internal/diagnostics"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/trials"
)

// Planner produces the trials of one run. Next returns false once the
// run's budget is spent.
type Planner interface {
	Schema() trials.Schema
	Next() (scene.Trial, bool, error)
}

// Host is the render side of the loop.
type Host interface {
	RenderOnce() error
	OnFrameRendered(fn func(render.FrameEvent)) (remove func())
}

// Observer is told about every logged trial and raised diagnostic.
type Observer interface {
	OnTrial(r trials.Record)
	OnDiagnostic(d diagnostics.Diagnostic)
}

// RunState enumerates runner states.
type RunState string

const (
	Idle    RunState = "idle"
	Running RunState = "running"
	Done    RunState = "done"
	Aborted RunState = "aborted"
	Failed  RunState = "failed"
)

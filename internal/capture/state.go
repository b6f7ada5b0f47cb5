// Package capture decides, frame by frame, when a stimulus may be applied and
// when the framebuffer holds a trustworthy sample of it.
//
// A capture walks Idle → Armed → Settling → Ready → Idle. Arming happens
// when new parameters are applied. Each completion event from the primary
// camera counts towards the settle delay; once the delay is met the region
// is read exactly once and the capture is Ready until the driving loop
// consumes it.
package capture

import (
	"errors"
	"fmt"

	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
)

var (
	ErrInFlight = errors.New("capture: armed while a capture is in flight")
	ErrNotReady = errors.New("capture: no sample ready")
)

type Phase uint8

const (
	Idle Phase = iota
	Armed
	Settling
	Ready
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Settling:
		return "settling"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Action is what the driving loop should do after a tick.
type Action uint8

const (
	// BurnIn: the renderer is still warming up.
	BurnIn Action = iota
	// Wait: a capture is in flight.
	Wait
	// Next: nothing in flight; plan and apply the next trial, then Arm.
	Next
	// Consume: a sample is ready; log it, then plan the next trial.
	Consume
)

func (a Action) String() string {
	switch a {
	case BurnIn:
		return "burn-in"
	case Wait:
		return "wait"
	case Next:
		return "next"
	case Consume:
		return "consume"
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Reduce selects how the probed region collapses to one colour.
type Reduce uint8

const (
	First Reduce = iota
	Mean
)

type Config struct {
	// Wait is the settle delay in primary-camera completion events.
	Wait int
	// BurnIn is the number of ticks before the first capture may arm.
	BurnIn int
	// Camera names the primary output view; other views are ignored.
	Camera string
	Region render.Rect
	Reduce Reduce
}

// DefaultConfig probes a 4×4 region at the centre of dim.
func DefaultConfig(dim render.Dimensions) Config {
	return Config{
		Wait:   2,
		BurnIn: 30,
		Camera: render.MainCamera,
		Region: render.CenterRect(dim, 4),
	}
}

func (c Config) Validate() error {
	if c.Wait < 1 {
		return fmt.Errorf("capture: wait %d < 1", c.Wait)
	}
	if c.BurnIn < 0 {
		return fmt.Errorf("capture: burn-in %d < 0", c.BurnIn)
	}
	if c.Camera == "" {
		return errors.New("capture: no primary camera")
	}
	if c.Region.Empty() {
		return errors.New("capture: empty region")
	}
	return nil
}

// State is the whole capture state. Transitions are methods on the value
// and return the successor; nothing mutates in place.
type State struct {
	Phase   Phase
	Ticks   int // driving-loop ticks seen
	Elapsed int // primary-camera completions since arming
	Sample  scene.RGB
}

// Tick advances the frame counter and reports what the loop should do.
func (s State) Tick(c Config) (State, Action) {
	s.Ticks++
	if s.Ticks < c.BurnIn {
		return s, BurnIn
	}
	switch s.Phase {
	case Idle:
		return s, Next
	case Ready:
		return s, Consume
	}
	return s, Wait
}

// Arm starts a capture. Arming anything but an Idle state is a programming
// error and panics.
func (s State) Arm() State {
	if s.Phase != Idle {
		panic(fmt.Errorf("%w (phase %s)", ErrInFlight, s.Phase))
	}
	s.Phase = Armed
	s.Elapsed = 0
	s.Sample = scene.RGB{}
	return s
}

// Observe applies one completion event. It reports true when the settle
// delay has just been met and the framebuffer must be read now.
func (s State) Observe(c Config, ev render.FrameEvent) (State, bool) {
	if ev.Camera != c.Camera {
		return s, false
	}
	if s.Phase != Armed && s.Phase != Settling {
		return s, false
	}
	s.Phase = Settling
	s.Elapsed++
	return s, s.Elapsed >= c.Wait
}

// Resolve stores the sample read after the settle delay.
func (s State) Resolve(sample scene.RGB) State {
	if s.Phase != Settling {
		panic(fmt.Errorf("capture: resolve in phase %s", s.Phase))
	}
	s.Phase = Ready
	s.Sample = sample
	return s
}

// Consume hands out the ready sample and returns to Idle. Consuming twice
// panics.
func (s State) Consume() (State, scene.RGB) {
	if s.Phase != Ready {
		panic(fmt.Errorf("%w (phase %s)", ErrNotReady, s.Phase))
	}
	out := s.Sample
	s.Phase = Idle
	s.Elapsed = 0
	s.Sample = scene.RGB{}
	return s, out
}

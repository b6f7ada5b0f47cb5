package capture

import (
	"fmt"

	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/scene"
)

// Framebuffer is the read side of the render host.
type Framebuffer interface {
	ReadRegion(r render.Rect) ([]render.Color, error)
}

// Machine threads a State through the driving loop. Completion events are
// queued by OnFrameRendered and applied at the start of the next Step, so
// every event from frame K is seen before the tick of frame K+1.
type Machine struct {
	cfg     Config
	fb      Framebuffer
	state   State
	pending []render.FrameEvent
	reads   int
}

func New(cfg Config, fb Framebuffer) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fb == nil {
		return nil, fmt.Errorf("capture: nil framebuffer")
	}
	return &Machine{cfg: cfg, fb: fb}, nil
}

func (m *Machine) Config() Config { return m.cfg }
func (m *Machine) State() State   { return m.state }

// Reads counts framebuffer reads performed.
func (m *Machine) Reads() int { return m.reads }

// OnFrameRendered queues ev. Subscribe it to the render host.
func (m *Machine) OnFrameRendered(ev render.FrameEvent) {
	m.pending = append(m.pending, ev)
}

// Step applies queued events, then ticks.
func (m *Machine) Step() (Action, error) {
	for _, ev := range m.pending {
		next, read := m.state.Observe(m.cfg, ev)
		if read {
			px, err := m.fb.ReadRegion(m.cfg.Region)
			if err != nil {
				m.pending = m.pending[:0]
				return Wait, fmt.Errorf("read framebuffer: %w", err)
			}
			m.reads++
			next = next.Resolve(reduce(px, m.cfg.Reduce))
		}
		m.state = next
	}
	m.pending = m.pending[:0]

	var act Action
	m.state, act = m.state.Tick(m.cfg)
	return act, nil
}

// Arm starts a capture for parameters just applied.
func (m *Machine) Arm() { m.state = m.state.Arm() }

// Consume takes the ready sample.
func (m *Machine) Consume() scene.RGB {
	var out scene.RGB
	m.state, out = m.state.Consume()
	return out
}

// Reset discards any capture in flight.
func (m *Machine) Reset() {
	m.state = State{Ticks: m.state.Ticks}
	m.pending = m.pending[:0]
}

func reduce(px []render.Color, how Reduce) scene.RGB {
	if len(px) == 0 {
		return scene.RGB{}
	}
	if how == First {
		p := px[0]
		return scene.RGB{R: float64(p.R), G: float64(p.G), B: float64(p.B)}
	}
	var sum scene.RGB
	for _, p := range px {
		sum.R += float64(p.R)
		sum.G += float64(p.G)
		sum.B += float64(p.B)
	}
	return sum.Scale(1 / float64(len(px)))
}

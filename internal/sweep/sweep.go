// Package sweep steps a light intensity across a range for each delta index
// in turn, so that the lookup table selected for each delta can be located
// in luminance.
package sweep

import (
	"errors"
	"fmt"
	"math"

	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/trials"
)

const MaxDelta = 32

type Config struct {
	// Start is the first delta index.
	Start     int
	LightMin  float64
	LightMax  float64
	Increment float64
	// Knots, when set, narrows each delta's range around its knot.
	Knots   *KnotTable
	Margins Margins
}

func DefaultConfig() Config {
	return Config{Start: 1, LightMin: 1e-4, LightMax: 400, Increment: 1.01, Margins: DefaultMargins()}
}

func (c Config) Validate() error {
	switch {
	case c.Start < 1 || c.Start > MaxDelta:
		return fmt.Errorf("sweep: start delta %d outside 1..%d", c.Start, MaxDelta)
	case c.LightMin <= 0 || c.LightMax <= c.LightMin:
		return fmt.Errorf("sweep: bad light range [%g, %g]", c.LightMin, c.LightMax)
	case c.Increment <= 1:
		return fmt.Errorf("sweep: increment %g must exceed 1", c.Increment)
	case c.Margins.Below < 0 || c.Margins.Above < 0:
		return fmt.Errorf("sweep: negative knot margin %+v", c.Margins)
	}
	if c.Knots != nil {
		return c.Knots.Validate()
	}
	return nil
}

// Bound is the point budget of a fixed-range sweep. A delta stops once the
// intensity exceeds its ceiling, so it yields floor(log(max/min)/log(increment))+1
// points, the ceiling itself included when the ratio is an exact power.
func (c Config) Bound() int {
	steps := math.Log(c.LightMax/c.LightMin) / math.Log(c.Increment)
	return (int(math.Floor(steps+1e-9)) + 1) * (MaxDelta - c.Start + 1)
}

// State is the controller position. Intensity is Floor * Increment^Step.
type State struct {
	Delta     int
	Step      int
	Intensity float64
	Floor     float64
	Ceiling   float64
	Done      bool
}

// Controller is a deterministic trial planner.
type Controller struct {
	cfg     Config
	state   State
	n       int
	started bool
}

func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Schema() trials.Schema {
	return trials.Schema{
		Mode:            "sweep",
		Columns:         []trials.Column{{Name: "delta_m", Precision: 0}, {Name: "i_d", Precision: 9}},
		OutputPrecision: 6,
	}
}

func (c *Controller) enter(delta int) {
	lo, hi := c.cfg.LightMin, c.cfg.LightMax
	if c.cfg.Knots != nil {
		lo, hi = c.cfg.Knots.Range(delta, lo, hi, c.cfg.Margins)
	}
	c.state = State{Delta: delta, Floor: lo, Ceiling: hi, Intensity: lo}
}

// Next returns the next sweep point, or false after the last delta passes
// its ceiling.
func (c *Controller) Next() (scene.Trial, bool, error) {
	if c.state.Done {
		return nil, false, nil
	}
	changed := false
	if !c.started {
		c.started = true
		c.enter(c.cfg.Start)
		changed = true
	} else {
		s := c.state
		s.Step++
		s.Intensity = s.Floor * math.Pow(c.cfg.Increment, float64(s.Step))
		if s.Intensity > s.Ceiling {
			if s.Delta >= MaxDelta {
				c.state.Done = true
				return nil, false, nil
			}
			c.enter(s.Delta + 1)
			changed = true
		} else {
			c.state = s
		}
	}
	c.n++
	return &Point{N: c.n, Delta: c.state.Delta, Intensity: c.state.Intensity, NewDelta: changed}, true, nil
}

// Point is one sweep trial.
type Point struct {
	N         int
	Delta     int
	Intensity float64
	// NewDelta is set on the first point of each delta.
	NewDelta bool
}

func (p *Point) Ordinal() int      { return p.N }
func (p *Point) Fields() []float64 { return []float64{float64(p.Delta), p.Intensity} }

// Apply selects the delta's lookup table on the first point of each delta
// and renders the frontal scene at the point's intensity.
func (p *Point) Apply(h scene.Hooks) error {
	if p.NewDelta {
		if h.SelectLookup == nil {
			return errors.New("sweep: host cannot select lookup assets")
		}
		if err := h.SelectLookup(p.Delta); err != nil {
			return fmt.Errorf("select delta %d: %w", p.Delta, err)
		}
	}
	if h.ApplyParameters == nil {
		return errors.New("sweep: host cannot apply parameters")
	}
	h.ApplyParameters(scene.Frontal(p.Intensity))
	return nil
}

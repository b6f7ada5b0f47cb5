package config

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/rendercal/internal/capture"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/stimulus"
	"github.com/coreman2200/rendercal/internal/sweep"
)

func (c *Config) Dimensions() render.Dimensions {
	return render.Dimensions{W: c.Viewport.Width, H: c.Viewport.Height}
}

func (c *Config) StimulusConfig() (stimulus.Config, error) {
	mode, err := stimulus.ParseMode(c.Mode)
	if err != nil {
		return stimulus.Config{}, err
	}
	s := stimulus.DefaultConfig()
	s.Mode = mode
	s.Samples = c.Samples
	s.MaxDeclination = c.MaxDeclination
	s.Exposure = c.Exposure
	s.LightingScale = c.LightingScale
	s.MaxUK = c.MaxUK
	return s, s.Validate()
}

// SweepConfig loads the knot table when one is configured.
func (c *Config) SweepConfig() (sweep.Config, error) {
	s := sweep.Config{
		Start:     c.Sweep.Start,
		LightMin:  c.Sweep.LightMin,
		LightMax:  c.Sweep.LightMax,
		Increment: c.Sweep.Increment,
		Margins:   sweep.Margins{Below: c.Sweep.FloorMargin, Above: c.Sweep.CeilingMargin},
	}
	if c.Sweep.Knots != "" {
		k, err := sweep.LoadKnots(c.Sweep.Knots)
		if err != nil {
			return sweep.Config{}, fmt.Errorf("sweep.knots: %w", err)
		}
		s.Knots = k
	}
	return s, s.Validate()
}

func (c *Config) CaptureConfig() (capture.Config, error) {
	dim := c.Dimensions()
	cc := capture.Config{
		Wait:   c.Capture.Wait,
		BurnIn: c.Capture.BurnIn,
		Camera: c.Capture.Camera,
		Region: render.CenterRect(dim, c.Capture.Region),
	}
	if cc.Camera == "" {
		cc.Camera = render.MainCamera
	}
	switch c.Capture.Reduce {
	case "", "first":
		cc.Reduce = capture.First
	case "mean":
		cc.Reduce = capture.Mean
	default:
		return capture.Config{}, fmt.Errorf("capture.reduce %q: want first or mean", c.Capture.Reduce)
	}
	return cc, cc.Validate()
}

// Pace converts Rate into the minimum time between frames; zero when unset.
func (c *Config) Pace() (time.Duration, error) {
	if c.Rate == "" {
		return 0, nil
	}
	var f physic.Frequency
	if err := f.Set(c.Rate); err != nil {
		return 0, fmt.Errorf("rate %q: %w", c.Rate, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("rate %q must be positive", c.Rate)
	}
	return f.Period(), nil
}

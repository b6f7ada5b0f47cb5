// Package stimulus plans random scenes for perceptual experiments, either by
// drawing light intensities directly or by back-solving them from a target
// rendered luminance.
package stimulus

import (
	"errors"
	"fmt"
	"math"

	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/trials"
)

// ErrDegenerate means the bounded resample could not find usable geometry.
var ErrDegenerate = errors.New("stimulus: degenerate target-luminance draw")

type Mode uint8

const (
	Direct Mode = iota
	TargetLuminance
)

func (m Mode) String() string {
	if m == TargetLuminance {
		return "target"
	}
	return "direct"
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "direct":
		return Direct, nil
	case "target":
		return TargetLuminance, nil
	}
	return 0, fmt.Errorf("unknown stimulus mode %q", s)
}

type Config struct {
	Mode Mode
	// Samples is the trial budget; 0 runs until aborted.
	Samples int
	// MaxDeclination bounds the normal and light directions, in degrees.
	MaxDeclination float64
	// Exposure E scales every intensity by 2^E.
	Exposure      float64
	LightingScale float64
	// Direct-mode intensity ranges before scaling.
	DirectRange  [2]float64
	AmbientRange [2]float64
	// MaxUK bounds the target luminance.
	MaxUK       float64
	Reflectance float64
	// MinIncidence is the smallest n·l accepted in target mode.
	MinIncidence float64
	// MaxAttempts bounds resampling within one trial; MaxSkips bounds
	// consecutive skipped trials before the run is stopped.
	MaxAttempts int
	MaxSkips    int
}

func DefaultConfig() Config {
	return Config{
		Mode:           TargetLuminance,
		Samples:        5000,
		MaxDeclination: 60,
		LightingScale:  1,
		DirectRange:    [2]float64{0, 2 * math.Pi},
		AmbientRange:   [2]float64{0, 2},
		MaxUK:          10,
		Reflectance:    scene.LambertPeak,
		MinIncidence:   1e-3,
		MaxAttempts:    16,
		MaxSkips:       8,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Samples < 0:
		return fmt.Errorf("stimulus: samples %d < 0", c.Samples)
	case c.MaxDeclination <= 0 || c.MaxDeclination > 180:
		return fmt.Errorf("stimulus: max declination %g outside (0, 180]", c.MaxDeclination)
	case c.LightingScale < 0:
		return fmt.Errorf("stimulus: lighting scale %g < 0", c.LightingScale)
	case c.DirectRange[0] < 0 || c.DirectRange[1] < c.DirectRange[0]:
		return fmt.Errorf("stimulus: bad direct range %v", c.DirectRange)
	case c.AmbientRange[0] < 0 || c.AmbientRange[1] < c.AmbientRange[0]:
		return fmt.Errorf("stimulus: bad ambient range %v", c.AmbientRange)
	case c.Mode == TargetLuminance && c.MaxUK < 0:
		return fmt.Errorf("stimulus: max_uk %g < 0", c.MaxUK)
	case c.Reflectance <= 0:
		return fmt.Errorf("stimulus: reflectance %g <= 0", c.Reflectance)
	case c.MaxAttempts < 1 || c.MaxSkips < 1:
		return errors.New("stimulus: attempts and skips must be positive")
	}
	return nil
}

// Trial is one planned stimulus.
type Trial struct {
	N      int
	Mode   Mode
	Params scene.Params
	// TargetUK and Split are the target-mode draws.
	TargetUK float64
	Split    float64
}

func (t *Trial) Ordinal() int { return t.N }

// Fields follow Columns.
func (t *Trial) Fields() []float64 {
	p := t.Params
	f := []float64{
		p.E,
		p.M.R, p.M.G, p.M.B,
		p.N.X, p.N.Y, p.N.Z,
		p.L.X, p.L.Y, p.L.Z,
		p.Id,
		p.D.R, p.D.G, p.D.B,
		p.Ia,
		p.A.R, p.A.G, p.A.B,
	}
	if t.Mode == TargetLuminance {
		f = append(f, t.TargetUK, t.Split)
	}
	return f
}

func (t *Trial) Apply(h scene.Hooks) error {
	if h.ApplyParameters == nil {
		return errors.New("stimulus: host cannot apply parameters")
	}
	h.ApplyParameters(t.Params)
	return nil
}

// Columns are the logged parameter columns for mode.
func Columns(mode Mode) []trials.Column {
	names := []string{
		"e",
		"m_r", "m_g", "m_b",
		"n_x", "n_y", "n_z",
		"l_x", "l_y", "l_z",
		"i_d",
		"d_r", "d_g", "d_b",
		"i_a",
		"a_r", "a_g", "a_b",
	}
	if mode == TargetLuminance {
		names = append(names, "target_uk", "p")
	}
	return trials.Cols(6, names...)
}

package stimulus

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rendercal/internal/diagnostics"
	"github.com/coreman2200/rendercal/internal/sampler"
	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/srgb"
	"github.com/coreman2200/rendercal/internal/trials"
)

const minChannel = 1e-6

// Planner draws one Trial per call to Next.
type Planner struct {
	cfg Config
	s   *sampler.Sampler
	n   int

	// Skipped counts trials abandoned after MaxAttempts resamples.
	Skipped int
	Report  diagnostics.Reporter
}

func NewPlanner(cfg Config, s *sampler.Sampler) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("stimulus: nil sampler")
	}
	return &Planner{cfg: cfg, s: s}, nil
}

func (p *Planner) Schema() trials.Schema {
	return trials.Schema{Mode: p.cfg.Mode.String(), Columns: Columns(p.cfg.Mode), OutputPrecision: 6}
}

// Next plans the next trial, or reports false once Samples trials exist.
func (p *Planner) Next() (scene.Trial, bool, error) {
	if p.cfg.Samples > 0 && p.n >= p.cfg.Samples {
		return nil, false, nil
	}
	for skips := 1; ; skips++ {
		t, err := p.draw()
		if err == nil {
			p.n++
			t.N = p.n
			return t, true, nil
		}
		p.Skipped++
		log.Warn().Err(err).Int("trial", p.n+1).Int("skipped", p.Skipped).Msg("skipping degenerate trial")
		p.Report.Report(diagnostics.Diagnostic{
			Severity:       diagnostics.Warn,
			Code:           diagnostics.CodeDegenerate,
			Summary:        "Target-luminance back-solve had no usable geometry",
			Detail:         err.Error(),
			LikelyCauses:   []string{"light nearly parallel to the plane", "black material or ambient colour"},
			SuggestedFixes: []string{"narrow max_declination", "raise max_attempts"},
			Evidence:       map[string]any{"trial": p.n + 1, "attempts": p.cfg.MaxAttempts},
		})
		if skips >= p.cfg.MaxSkips {
			return nil, false, fmt.Errorf("%w: %d consecutive trials skipped", ErrDegenerate, skips)
		}
	}
}

func (p *Planner) draw() (*Trial, error) {
	if p.cfg.Mode == TargetLuminance {
		return p.drawTarget()
	}
	return p.drawDirect(), nil
}

func (p *Planner) drawDirect() *Trial {
	c := p.cfg
	gain := c.LightingScale * math.Exp2(c.Exposure)
	par := scene.Params{
		M: p.s.RandomColor(),
		N: p.s.RandomUnitVector(c.MaxDeclination),
		D: p.s.RandomColor(),
		L: p.s.RandomUnitVector(c.MaxDeclination),
		A: p.s.RandomColor(),
		E: c.Exposure,
	}
	par.Id = gain * p.s.Uniform(c.DirectRange[0], c.DirectRange[1])
	par.Ia = gain * p.s.Uniform(c.AmbientRange[0], c.AmbientRange[1])
	return &Trial{Mode: Direct, Params: par}
}

// drawTarget back-solves intensities so the plane's peak channel renders at
// target_uk:
//
//	illum = target_uk / (k * max(m))
//	i_d   = p*illum / (encode(max(d)) * max(n·l, 0) / π)
//	i_a   = (1-p)*illum / max(a)
//
// Draws that would divide by (near) zero are redrawn, up to MaxAttempts.
func (p *Planner) drawTarget() (*Trial, error) {
	c := p.cfg
	par := scene.Params{
		M: p.s.RandomColor(),
		N: p.s.RandomUnitVector(c.MaxDeclination),
		D: p.s.RandomColor(),
		L: p.s.RandomUnitVector(c.MaxDeclination),
		A: p.s.RandomColor(),
		E: c.Exposure,
	}
	target := p.s.Uniform(0, c.MaxUK)
	split := p.s.Uniform(0, 1)
	gain := math.Exp2(c.Exposure)

	var reason string
	for attempt := 1; ; attempt++ {
		reason = ""
		cos := math.Max(par.N.Dot(par.L), 0)
		light := srgb.Encode(par.D.Max())
		switch {
		case par.M.Max() < minChannel:
			reason = "material"
			par.M = p.s.RandomColor()
		case cos < c.MinIncidence:
			reason = "incidence"
			par.N = p.s.RandomUnitVector(c.MaxDeclination)
			par.L = p.s.RandomUnitVector(c.MaxDeclination)
		case light < minChannel:
			reason = "light"
			par.D = p.s.RandomColor()
		case par.A.Max() < minChannel:
			reason = "ambient"
			par.A = p.s.RandomColor()
		default:
			illum := target / (c.Reflectance * par.M.Max())
			par.Id = gain * split * illum / (light * cos / math.Pi)
			par.Ia = gain * (1 - split) * illum / par.A.Max()
			if par.Valid() {
				return &Trial{Mode: TargetLuminance, Params: par, TargetUK: target, Split: split}, nil
			}
			reason = "non-finite intensity"
			par.N = p.s.RandomUnitVector(c.MaxDeclination)
			par.L = p.s.RandomUnitVector(c.MaxDeclination)
		}
		log.Debug().Str("reason", reason).Int("attempt", attempt).Msg("resampling stimulus")
		if attempt >= c.MaxAttempts {
			return nil, fmt.Errorf("%w after %d attempts (%s)", ErrDegenerate, attempt, reason)
		}
	}
}

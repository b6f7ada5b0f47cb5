// Package knots estimates the tonemapper's knot points from a delta sweep
// log. Each delta table outputs 1 at its own knot only, so the luminance at
// which a delta's sampled output peaks is that delta's knot.
package knots

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/coreman2200/rendercal/internal/scene"
	"github.com/coreman2200/rendercal/internal/srgb"
	"github.com/coreman2200/rendercal/internal/sweep"
	"github.com/coreman2200/rendercal/internal/trials"
)

type Config struct {
	// Reflectance converts intensity to luminance: u = k * i_d / π.
	Reflectance float64
	// Edge is the output level that marks the clamped end of the lowest
	// usable delta; Saturated marks the top delta's plateau.
	Edge      float64
	Saturated float64
}

func DefaultConfig() Config {
	return Config{Reflectance: scene.LambertPeak, Edge: 0.99, Saturated: 0.999}
}

// placeholder knots for the two deltas below any renderable luminance
var floorKnots = []float64{0, 1e-9}

type sample struct{ u, t float64 }

// Extract reads delta_m, i_d and v_r from a sweep log and returns one knot
// per delta from 1 to the highest delta present.
func Extract(tab trials.Table, cfg Config) (*sweep.KnotTable, error) {
	if cfg.Reflectance <= 0 {
		return nil, errors.New("knots: reflectance must be positive")
	}
	deltas, err := tab.Column("delta_m")
	if err != nil {
		return nil, err
	}
	ids, err := tab.Column("i_d")
	if err != nil {
		return nil, err
	}
	vr, err := tab.Column("v_r")
	if err != nil {
		return nil, err
	}

	by := map[int][]sample{}
	n := 0
	for i, d := range deltas {
		m := int(d)
		by[m] = append(by[m], sample{u: cfg.Reflectance * ids[i] / math.Pi, t: srgb.Encode(vr[i])})
		if m > n {
			n = m
		}
	}
	if n < 3 {
		return nil, fmt.Errorf("knots: log reaches delta %d, need at least 3", n)
	}

	out := make([]float64, n)
	copy(out, floorKnots)
	for m := 3; m <= n; m++ {
		ss := by[m]
		if len(ss) == 0 {
			return nil, fmt.Errorf("knots: no samples for delta %d", m)
		}
		sort.Slice(ss, func(a, b int) bool { return ss[a].u < ss[b].u })
		j := -1
		switch m {
		case 3:
			for i, s := range ss {
				if s.t > cfg.Edge {
					j = i
				}
			}
		case n:
			for i, s := range ss {
				if s.t >= cfg.Saturated {
					j = i
					break
				}
			}
		default:
			j = 0
			for i, s := range ss {
				if s.t > ss[j].t {
					j = i
				}
			}
		}
		if j < 0 {
			return nil, fmt.Errorf("knots: delta %d never reaches its threshold", m)
		}
		out[m-1] = ss[j].u
	}
	return &sweep.KnotTable{Knots: out, Reflectance: cfg.Reflectance}, nil
}

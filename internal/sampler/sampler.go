// Package sampler draws random colours and random unit directions inside a
// declination cone around scene.Axis.
package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/coreman2200/rendercal/internal/scene"
)

// Strategy selects how declination is drawn.
type Strategy uint8

const (
	// Naive draws declination uniformly. Directions bunch up near the cone
	// edge and thin out near the axis, because equal declination bands do
	// not cover equal solid angle. Kept for reproducing older runs.
	Naive Strategy = iota
	// AreaUniform inverts the spherical-cap CDF so directions are uniform
	// over the cap's area.
	AreaUniform
)

func (s Strategy) String() string {
	switch s {
	case Naive:
		return "naive"
	case AreaUniform:
		return "area"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy accepts the names returned by String.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "naive":
		return Naive, nil
	case "area", "":
		return AreaUniform, nil
	}
	return 0, fmt.Errorf("unknown sampler strategy %q", name)
}

// Sampler wraps a seeded source so whole runs are reproducible.
type Sampler struct {
	rng      *rand.Rand
	Strategy Strategy
	// Symmetric makes the naive strategy draw declination on
	// [-max, +max] instead of [0, max].
	Symmetric bool
}

func New(seed int64, st Strategy) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed)), Strategy: st}
}

// Uniform returns a draw from [lo, hi).
func (s *Sampler) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// RandomColor draws each channel independently from U[0,1).
func (s *Sampler) RandomColor() scene.RGB {
	return scene.RGB{R: s.rng.Float64(), G: s.rng.Float64(), B: s.rng.Float64()}
}

// RandomUnitVector returns a unit vector within maxDeclDeg of scene.Axis.
func (s *Sampler) RandomUnitVector(maxDeclDeg float64) scene.Vec3 {
	if s.Strategy == Naive {
		return NaiveDirection(s.rng, maxDeclDeg, s.Symmetric)
	}
	return CapDirection(s.rng, maxDeclDeg)
}

// NaiveDirection draws azimuth on [0, 2π) and declination uniformly on
// [0, max], or [-max, max] when symmetric.
func NaiveDirection(rng *rand.Rand, maxDeclDeg float64, symmetric bool) scene.Vec3 {
	az := 2 * math.Pi * rng.Float64()
	maxRad := maxDeclDeg * math.Pi / 180
	decl := maxRad * rng.Float64()
	if symmetric {
		decl = maxRad * (2*rng.Float64() - 1)
	}
	return direction(az, decl)
}

// CapDirection draws a direction uniformly over the spherical cap of
// half-angle maxDeclDeg:
//
//	decl = acos(1 + u*(cos(max) - 1))
func CapDirection(rng *rand.Rand, maxDeclDeg float64) scene.Vec3 {
	az := 2 * math.Pi * rng.Float64()
	maxRad := maxDeclDeg * math.Pi / 180
	u := rng.Float64()
	decl := math.Acos(1 + u*(math.Cos(maxRad)-1))
	return direction(az, decl)
}

func direction(az, decl float64) scene.Vec3 {
	sd := math.Sin(decl)
	return scene.Vec3{X: sd * math.Cos(az), Y: sd * math.Sin(az), Z: -math.Cos(decl)}
}

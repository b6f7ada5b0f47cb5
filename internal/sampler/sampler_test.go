package sampler

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/rendercal/internal/scene"
)

const draws = 100000

// ksD returns the Kolmogorov–Smirnov statistic of xs against cdf.
func ksD(xs []float64, cdf func(float64) float64) float64 {
	sort.Float64s(xs)
	n := float64(len(xs))
	d := 0.0
	for i, x := range xs {
		f := cdf(x)
		d = math.Max(d, math.Max(f-float64(i)/n, float64(i+1)/n-f))
	}
	return d
}

// ksCritical01 is the large-sample critical value for p = 0.01.
func ksCritical01(n int) float64 { return 1.628 / math.Sqrt(float64(n)) }

func TestRandomColorUniform(t *testing.T) {
	s := New(7, AreaUniform)
	const bins = 10
	var sum [3]float64
	var hist [3][bins]int
	for i := 0; i < draws; i++ {
		c := s.RandomColor()
		for ch, v := range []float64{c.R, c.G, c.B} {
			require.True(t, v >= 0 && v < 1, "channel out of range: %v", v)
			sum[ch] += v
			hist[ch][int(v*bins)]++
		}
	}
	// chi-square, 9 degrees of freedom, p = 0.001
	const chiCrit = 27.877
	expected := float64(draws) / bins
	for ch := 0; ch < 3; ch++ {
		assert.InDelta(t, 0.5, sum[ch]/draws, 0.01, "channel %d mean", ch)
		chi := 0.0
		for _, o := range hist[ch] {
			d := float64(o) - expected
			chi += d * d / expected
		}
		assert.Less(t, chi, chiCrit, "channel %d chi-square", ch)
	}
}

func TestConeContainment(t *testing.T) {
	limit := 30*math.Pi/180 + 1e-4*math.Pi/180
	cases := []struct {
		name string
		s    *Sampler
	}{
		{"naive", New(1, Naive)},
		{"naive-symmetric", &Sampler{rng: rand.New(rand.NewSource(2)), Strategy: Naive, Symmetric: true}},
		{"area", New(3, AreaUniform)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < draws; i++ {
				v := tc.s.RandomUnitVector(30)
				if math.Abs(v.Len()-1) > 1e-12 {
					t.Fatalf("not unit length: %v", v)
				}
				if a := v.Angle(scene.Axis); a > limit {
					t.Fatalf("angle %g deg outside cone", a*180/math.Pi)
				}
			}
		})
	}
}

func cosDeclinations(s *Sampler, maxDeg float64) []float64 {
	out := make([]float64, draws)
	for i := range out {
		out[i] = -s.RandomUnitVector(maxDeg).Z
	}
	return out
}

func TestAreaUniformPassesKS(t *testing.T) {
	lo := math.Cos(60 * math.Pi / 180)
	uniform := func(c float64) float64 { return (c - lo) / (1 - lo) }
	d := ksD(cosDeclinations(New(11, AreaUniform), 60), uniform)
	assert.Less(t, d, ksCritical01(draws))
}

func TestNaiveFailsKS(t *testing.T) {
	lo := math.Cos(60 * math.Pi / 180)
	uniform := func(c float64) float64 { return (c - lo) / (1 - lo) }

	d := ksD(cosDeclinations(New(11, Naive), 60), uniform)
	assert.Greater(t, d, ksCritical01(draws))

	sym := New(12, Naive)
	sym.Symmetric = true
	d = ksD(cosDeclinations(sym, 60), uniform)
	assert.Greater(t, d, ksCritical01(draws))
}

func TestSeedReproducible(t *testing.T) {
	a, b := New(42, AreaUniform), New(42, AreaUniform)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.RandomColor(), b.RandomColor())
		assert.Equal(t, a.RandomUnitVector(60), b.RandomUnitVector(60))
		assert.Equal(t, a.Uniform(0, 3), b.Uniform(0, 3))
	}
}

func TestParseStrategy(t *testing.T) {
	st, err := ParseStrategy("naive")
	require.NoError(t, err)
	assert.Equal(t, Naive, st)
	st, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, AreaUniform, st)
	_, err = ParseStrategy("sobol")
	assert.Error(t, err)
	assert.Equal(t, "area", AreaUniform.String())
}

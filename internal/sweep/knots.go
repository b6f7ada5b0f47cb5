package sweep

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/rendercal/internal/scene"
)

// KnotTable lists, per delta index, the unprocessed luminance at which the
// tonemap table for that delta peaks. Knots[m-1] belongs to delta m.
type KnotTable struct {
	Knots       []float64 `yaml:"knots"`
	Reflectance float64   `yaml:"reflectance,omitempty"`
}

// Validate requires MaxDelta nondecreasing, nonnegative entries.
func (k KnotTable) Validate() error {
	if len(k.Knots) < MaxDelta {
		return fmt.Errorf("knot table has %d entries, need %d", len(k.Knots), MaxDelta)
	}
	for i, v := range k.Knots {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("knot %d is %g", i+1, v)
		}
		if i > 0 && v < k.Knots[i-1] {
			return fmt.Errorf("knot %d (%g) below knot %d (%g)", i+1, v, i, k.Knots[i-1])
		}
	}
	return nil
}

func (k KnotTable) reflectance() float64 {
	if k.Reflectance > 0 {
		return k.Reflectance
	}
	return scene.LambertPeak
}

// Intensity converts a luminance u into the light intensity that renders it
// on the frontal sweep scene: u = k * i / π.
func (k KnotTable) Intensity(u float64) float64 {
	return u * math.Pi / k.reflectance()
}

// Margins widen a knot-mode range around the neighbouring knots. Zero
// fields take the defaults, 0.95 below and 1.05 above.
type Margins struct {
	Below float64
	Above float64
}

func DefaultMargins() Margins { return Margins{Below: 0.95, Above: 1.05} }

func (m Margins) orDefault() Margins {
	d := DefaultMargins()
	if m.Below > 0 {
		d.Below = m.Below
	}
	if m.Above > 0 {
		d.Above = m.Above
	}
	return d
}

// Range returns the sweep floor and ceiling for delta: Below times the
// intensity of knot delta-1 up to Above times that of knot delta+1, clamped
// to [min, max]. The last delta has no upper neighbour and is capped by its
// own knot. An empty range falls back to [min, max].
func (k KnotTable) Range(delta int, min, max float64, m Margins) (float64, float64) {
	m = m.orDefault()
	lo, hi := min, max
	if delta > 1 {
		lo = math.Max(min, m.Below*k.Intensity(k.Knots[delta-2]))
	}
	top := delta
	if delta >= MaxDelta || top >= len(k.Knots) {
		top = delta - 1
	}
	hi = math.Min(max, m.Above*k.Intensity(k.Knots[top]))
	if lo >= hi {
		return min, max
	}
	return lo, hi
}

func LoadKnots(path string) (*KnotTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var k KnotTable
	if err := yaml.Unmarshal(b, &k); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &k, nil
}

func SaveKnots(path string, k *KnotTable) error {
	b, err := yaml.Marshal(k)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

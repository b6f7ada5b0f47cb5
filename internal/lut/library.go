package lut

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrMissingAsset is returned when no table is registered for a delta.
var ErrMissingAsset = errors.New("missing lookup asset")

// Library maps sweep delta indices to lookup tables.
type Library struct{ m map[int]*Cube }

func NewLibrary() *Library { return &Library{m: map[int]*Cube{}} }

func (l *Library) Add(delta int, c *Cube) {
	if c == nil {
		return
	}
	l.m[delta] = c
}

// Select resolves delta to its table.
func (l *Library) Select(delta int) (*Cube, error) {
	c, ok := l.m[delta]
	if !ok {
		return nil, fmt.Errorf("%w: %s (delta %d)", ErrMissingAsset, DeltaName(delta), delta)
	}
	return c, nil
}

// Deltas lists the registered indices in ascending order.
func (l *Library) Deltas() []int {
	out := make([]int, 0, len(l.m))
	for k := range l.m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// DeltaLibrary generates one delta table per knot.
func DeltaLibrary(knots []float64) (*Library, error) {
	if len(knots) == 0 {
		return nil, errNoKnots
	}
	l := NewLibrary()
	for m := 1; m <= len(knots); m++ {
		c, err := Delta(knots, m)
		if err != nil {
			return nil, err
		}
		l.Add(m, c)
	}
	return l, nil
}

// LoadDir loads every delta_NN.cube present in dir for NN in 1..count.
// Missing files are left unregistered so Select reports them.
func LoadDir(dir string, knots []float64, count int) (*Library, error) {
	l := NewLibrary()
	for m := 1; m <= count; m++ {
		path := filepath.Join(dir, DeltaName(m)+".cube")
		c, err := Load(path, knots)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l.Add(m, c)
	}
	return l, nil
}

// SaveDir writes every table in the library as delta_NN.cube.
func (l *Library) SaveDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, m := range l.Deltas() {
		if err := l.m[m].Save(filepath.Join(dir, DeltaName(m)+".cube")); err != nil {
			return err
		}
	}
	return nil
}

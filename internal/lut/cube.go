// Package lut holds the colour lookup tables used by the render host's
// tonemap stage. A table samples the tonemap output at a fixed set of knot
// points along each input channel.
package lut

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DefaultKnots are the unprocessed input values at which the renderer's
// tonemapper samples its table, measured from delta sweeps.
var DefaultKnots = []float64{
	0, 1e-09, 1.657e-09, 0.002830, 0.007137, 0.01269, 0.02051, 0.03086,
	0.04479, 0.06444, 0.08989, 0.1252, 0.1726, 0.2370, 0.3253, 0.4422,
	0.6039, 0.8207, 1.104, 1.495, 2.032, 2.756, 3.738, 5.083,
	6.864, 9.347, 12.62, 17.18, 23.24, 31.48, 42.75, 57.66,
}

// Cube is an n×n×n RGB table over Knots. Data is stored red-fastest, the
// row order of .cube files.
type Cube struct {
	Title string
	Knots []float64
	Data  [][3]float64
}

func (c *Cube) Size() int { return len(c.Knots) }

func (c *Cube) index(r, g, b int) int {
	n := len(c.Knots)
	return r + n*g + n*n*b
}

// Channels builds a cube whose output channels depend only on their own
// input channel: out_k = t[i][k] at knot i.
func Channels(knots []float64, t [][3]float64) (*Cube, error) {
	n := len(knots)
	if len(t) != n {
		return nil, fmt.Errorf("lut: %d outputs for %d knots", len(t), n)
	}
	c := &Cube{Knots: knots, Data: make([][3]float64, n*n*n)}
	for b := 0; b < n; b++ {
		for g := 0; g < n; g++ {
			for r := 0; r < n; r++ {
				c.Data[c.index(r, g, b)] = [3]float64{t[r][0], t[g][1], t[b][2]}
			}
		}
	}
	return c, nil
}

// Delta builds the table for sweep index m (1-based): output 1 at knot m and
// 0 everywhere else, on every channel.
func Delta(knots []float64, m int) (*Cube, error) {
	if m < 1 || m > len(knots) {
		return nil, fmt.Errorf("lut: delta %d outside 1..%d", m, len(knots))
	}
	t := make([][3]float64, len(knots))
	t[m-1] = [3]float64{1, 1, 1}
	c, err := Channels(knots, t)
	if err != nil {
		return nil, err
	}
	c.Title = DeltaName(m)
	return c, nil
}

// DeltaName is the asset name for sweep index m.
func DeltaName(m int) string { return fmt.Sprintf("delta_%02d", m) }

// Apply tonemaps one linear colour. Inputs are clamped to
// [Knots[2], Knots[n-1]]; the first two knots are placeholders below any
// renderable value.
func (c *Cube) Apply(r, g, b float64) (float64, float64, float64) {
	n := len(c.Knots)
	lo := c.Knots[0]
	if n > 2 {
		lo = c.Knots[2]
	}
	hi := c.Knots[n-1]
	ri, rw := c.locate(clamp(r, lo, hi))
	gi, gw := c.locate(clamp(g, lo, hi))
	bi, bw := c.locate(clamp(b, lo, hi))

	var out [3]float64
	for db := 0; db < 2; db++ {
		wb := weight(bw, db)
		for dg := 0; dg < 2; dg++ {
			wg := weight(gw, dg)
			for dr := 0; dr < 2; dr++ {
				w := weight(rw, dr) * wg * wb
				if w == 0 {
					continue
				}
				v := c.Data[c.index(min(ri+dr, n-1), min(gi+dg, n-1), min(bi+db, n-1))]
				out[0] += w * v[0]
				out[1] += w * v[1]
				out[2] += w * v[2]
			}
		}
	}
	return out[0], out[1], out[2]
}

// locate returns the lower knot index bracketing x and the fractional
// position inside that interval.
func (c *Cube) locate(x float64) (int, float64) {
	n := len(c.Knots)
	i := sort.SearchFloat64s(c.Knots, x)
	if i == 0 {
		return 0, 0
	}
	if i >= n {
		return n - 1, 0
	}
	if c.Knots[i] == x {
		return i, 0
	}
	i--
	span := c.Knots[i+1] - c.Knots[i]
	if span <= 0 {
		return i, 0
	}
	return i, (x - c.Knots[i]) / span
}

func weight(f float64, d int) float64 {
	if d == 0 {
		return 1 - f
	}
	return f
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Write emits c in .cube text format.
func (c *Cube) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TITLE %q\n", c.Title)
	fmt.Fprintf(bw, "LUT_3D_SIZE %d\n", len(c.Knots))
	fmt.Fprintln(bw, "DOMAIN_MIN 0.0 0.0 0.0")
	fmt.Fprintln(bw, "DOMAIN_MAX 1.0 1.0 1.0")
	for _, v := range c.Data {
		fmt.Fprintf(bw, "%.6f %.6f %.6f\n", v[0], v[1], v[2])
	}
	return bw.Flush()
}

// Read parses a .cube file whose axes are sampled at knots.
func Read(r io.Reader, knots []float64) (*Cube, error) {
	c := &Cube{Knots: knots}
	size := 0
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "TITLE":
			c.Title = strings.Trim(strings.TrimSpace(strings.TrimPrefix(text, "TITLE")), `"`)
			continue
		case "LUT_3D_SIZE":
			if len(fields) != 2 {
				return nil, fmt.Errorf("lut: line %d: malformed size", line)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("lut: line %d: %w", line, err)
			}
			size = n
			continue
		case "DOMAIN_MIN", "DOMAIN_MAX", "LUT_1D_SIZE":
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("lut: line %d: want 3 values, got %d", line, len(fields))
		}
		var v [3]float64
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("lut: line %d: %w", line, err)
			}
			v[i] = x
		}
		c.Data = append(c.Data, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	n := len(knots)
	if size != 0 && size != n {
		return nil, fmt.Errorf("lut: size %d does not match %d knots", size, n)
	}
	if len(c.Data) != n*n*n {
		return nil, fmt.Errorf("lut: %d rows, want %d", len(c.Data), n*n*n)
	}
	return c, nil
}

// Load reads a .cube file from disk.
func Load(path string, knots []float64) (*Cube, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(f, knots)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path.
func (c *Cube) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var errNoKnots = errors.New("lut: no knots")

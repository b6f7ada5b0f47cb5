// Package trials records one row per completed capture: the trial ordinal,
// the planner's parameter fields and the sampled output colour.
package trials

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/coreman2200/rendercal/internal/scene"
)

var ErrFieldCount = errors.New("field count does not match schema")

// OrdinalColumn is the first column of every log.
const OrdinalColumn = "sampleNumber"

// OutputColumns are the last three columns of every log.
var OutputColumns = []string{"v_r", "v_g", "v_b"}

// Column is one logged parameter. Precision is the number of decimal places.
type Column struct {
	Name      string
	Precision int
}

// Cols builds columns sharing one precision.
func Cols(precision int, names ...string) []Column {
	out := make([]Column, len(names))
	for i, n := range names {
		out[i] = Column{Name: n, Precision: precision}
	}
	return out
}

// Schema lists the parameter columns between the ordinal and the outputs.
type Schema struct {
	Mode    string
	Columns []Column
	// OutputPrecision applies to the sampled colour channels.
	OutputPrecision int
}

// Header returns all column names in order.
func (s Schema) Header() []string {
	h := make([]string, 0, len(s.Columns)+4)
	h = append(h, OrdinalColumn)
	for _, c := range s.Columns {
		h = append(h, c.Name)
	}
	return append(h, OutputColumns...)
}

// Record is one completed trial.
type Record struct {
	Ordinal int
	Fields  []float64
	Output  scene.RGB
}

// Row formats r at the schema's fixed precisions.
func (s Schema) Row(r Record) ([]string, error) {
	if len(r.Fields) != len(s.Columns) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(r.Fields), len(s.Columns))
	}
	row := make([]string, 0, len(r.Fields)+4)
	row = append(row, strconv.Itoa(r.Ordinal))
	for i, v := range r.Fields {
		row = append(row, ftoa(v, s.Columns[i].Precision))
	}
	for _, v := range []float64{r.Output.R, r.Output.G, r.Output.B} {
		row = append(row, ftoa(v, s.OutputPrecision))
	}
	return row, nil
}

func ftoa(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

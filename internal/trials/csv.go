package trials

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSV writes a comma-separated log. Each line is rendered in memory and
// handed to the writer in a single Write. When the writer can also truncate
// and seek (an *os.File does), a failed write is rolled back to the end of
// the previous record.
type CSV struct {
	w    io.Writer
	rb   rollbacker
	c    io.Closer
	off  int64
	err  error
	line bytes.Buffer
}

type rollbacker interface {
	Truncate(size int64) error
	Seek(offset int64, whence int) (int64, error)
}

// CreateCSV creates (or truncates) the file at path.
func CreateCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	c := NewCSV(f)
	c.c = f
	return c, nil
}

// NewCSV writes to w. Close does not close w.
func NewCSV(w io.Writer) *CSV {
	c := &CSV{w: w}
	if rb, ok := w.(rollbacker); ok {
		c.rb = rb
		if off, err := rb.Seek(0, io.SeekCurrent); err == nil {
			c.off = off
		}
	}
	return c
}

func (c *CSV) Begin(s Schema) error {
	return c.writeLine(s.Header())
}

func (c *CSV) Append(s Schema, r Record) error {
	row, err := s.Row(r)
	if err != nil {
		return err
	}
	return c.writeLine(row)
}

func (c *CSV) writeLine(fields []string) error {
	c.line.Reset()
	cw := csv.NewWriter(&c.line)
	if err := cw.Write(fields); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if c.err != nil {
		return c.err
	}
	n, err := c.w.Write(c.line.Bytes())
	if err == nil && n < c.line.Len() {
		err = io.ErrShortWrite
	}
	if err != nil {
		err = fmt.Errorf("write log line: %w", err)
		if n > 0 {
			if rerr := c.rollback(); rerr != nil {
				// a fragment is stuck in the sink; refuse further records
				c.err = fmt.Errorf("%w (rollback: %v)", err, rerr)
				return c.err
			}
		}
		return err
	}
	c.off += int64(n)
	return nil
}

// rollback drops whatever the failed write left after the last record.
func (c *CSV) rollback() error {
	if c.rb == nil {
		return errors.New("writer cannot truncate")
	}
	if err := c.rb.Truncate(c.off); err != nil {
		return err
	}
	_, err := c.rb.Seek(c.off, io.SeekStart)
	return err
}

func (c *CSV) Close() error {
	if c.c == nil {
		return nil
	}
	if f, ok := c.c.(*os.File); ok {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("sync log: %w", err)
		}
	}
	return c.c.Close()
}

// Table is a log read back into memory.
type Table struct {
	Header []string
	Rows   [][]float64
}

// Column returns the values of the named column.
func (t Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not in log", name)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// ReadCSV parses a log written by CSV.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read log: %w", err)
	}
	if len(recs) == 0 {
		return Table{}, fmt.Errorf("read log: empty")
	}
	t := Table{Header: recs[0], Rows: make([][]float64, 0, len(recs)-1)}
	for i, rec := range recs[1:] {
		row := make([]float64, len(rec))
		for j, s := range rec {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Table{}, fmt.Errorf("read log line %d col %q: %w", i+2, t.Header[j], err)
			}
			row[j] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

package trials

import (
	"errors"
	"fmt"
)

// Sink persists records. Begin is called once before the first Append.
type Sink interface {
	Begin(s Schema) error
	Append(s Schema, r Record) error
	Close() error
}

// Logger appends records to every sink in order. Any sink failure is
// returned to the caller; nothing is retried.
type Logger struct {
	schema Schema
	sinks  []Sink
	last   int
	count  int
}

// NewLogger writes the schema header to each sink.
func NewLogger(schema Schema, sinks ...Sink) (*Logger, error) {
	if len(sinks) == 0 {
		return nil, errors.New("trials: no sinks")
	}
	for _, s := range sinks {
		if err := s.Begin(schema); err != nil {
			return nil, fmt.Errorf("begin log: %w", err)
		}
	}
	return &Logger{schema: schema, sinks: sinks}, nil
}

func (l *Logger) Schema() Schema { return l.schema }

// Count is the number of records appended so far.
func (l *Logger) Count() int { return l.count }

// Append writes r. Ordinals must strictly increase.
func (l *Logger) Append(r Record) error {
	if r.Ordinal <= l.last {
		return fmt.Errorf("trials: ordinal %d after %d", r.Ordinal, l.last)
	}
	if len(r.Fields) != len(l.schema.Columns) {
		return fmt.Errorf("trials: %w: got %d, want %d", ErrFieldCount, len(r.Fields), len(l.schema.Columns))
	}
	for _, s := range l.sinks {
		if err := s.Append(l.schema, r); err != nil {
			return fmt.Errorf("append trial %d: %w", r.Ordinal, err)
		}
	}
	l.last = r.Ordinal
	l.count++
	return nil
}

// Close closes every sink and returns the first error.
func (l *Logger) Close() error {
	var first error
	for _, s := range l.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

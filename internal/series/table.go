package series

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLengthMismatch is returned when parallel sequences differ in length.
	ErrLengthMismatch = errors.New("sequence length mismatch")

	// ErrNotMonotonic is returned when timestamps decrease.
	ErrNotMonotonic = errors.New("timestamps are not monotonic")

	// ErrUnknownChannel is returned when a column name is not in the table.
	ErrUnknownChannel = errors.New("unknown channel")
)

// Table is a normalized import: one timestamp column plus named numeric
// channels of the same length, ordered by time.
type Table struct {
	Time    []time.Time
	Columns []string // channel names in file order
	Data    map[string][]Value
}

// NewTable returns an empty table ready to receive columns.
func NewTable() *Table {
	return &Table{
		Time:    make([]time.Time, 0),
		Columns: make([]string, 0),
		Data:    make(map[string][]Value),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Time)
}

// AddColumn appends a channel. The name must be new and values must match
// the timestamp column in length.
func (t *Table) AddColumn(name string, values []Value) error {
	if _, ok := t.Data[name]; ok {
		return fmt.Errorf("series: duplicate column %q", name)
	}
	if len(values) != len(t.Time) {
		return fmt.Errorf("series: column %q has %d rows, want %d: %w", name, len(values), len(t.Time), ErrLengthMismatch)
	}
	t.Columns = append(t.Columns, name)
	t.Data[name] = values
	return nil
}

// Column returns the named channel.
func (t *Table) Column(name string) ([]Value, error) {
	values, ok := t.Data[name]
	if !ok {
		return nil, fmt.Errorf("series: %q: %w", name, ErrUnknownChannel)
	}
	return values, nil
}

// Offsets returns the timestamps as durations from the first sample.
func (t *Table) Offsets() []time.Duration {
	return Offsets(t.Time)
}

// Select returns a copy holding only the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	out := &Table{
		Time:    make([]time.Time, len(rows)),
		Columns: append([]string(nil), t.Columns...),
		Data:    make(map[string][]Value, len(t.Data)),
	}
	for i, r := range rows {
		out.Time[i] = t.Time[r]
	}
	for _, name := range t.Columns {
		src := t.Data[name]
		dst := make([]Value, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		out.Data[name] = dst
	}
	return out
}

// Validate checks that every column matches the timestamp column and that
// timestamps never decrease.
func (t *Table) Validate() error {
	for _, name := range t.Columns {
		values, ok := t.Data[name]
		if !ok {
			return fmt.Errorf("series: column %q listed but has no data: %w", name, ErrUnknownChannel)
		}
		if len(values) != len(t.Time) {
			return fmt.Errorf("series: column %q has %d rows, want %d: %w", name, len(values), len(t.Time), ErrLengthMismatch)
		}
	}
	return CheckMonotonic(t.Time)
}

// Offsets converts absolute timestamps to durations from ts[0]. Differences
// use the monotonic-safe time.Time.Sub, so time zones never enter the math.
func Offsets(ts []time.Time) []time.Duration {
	out := make([]time.Duration, len(ts))
	if len(ts) == 0 {
		return out
	}
	origin := ts[0]
	for i, t := range ts {
		out[i] = t.Sub(origin)
	}
	return out
}

// CheckMonotonic reports the first index where ts decreases.
func CheckMonotonic(ts []time.Time) error {
	for i := 1; i < len(ts); i++ {
		if ts[i].Before(ts[i-1]) {
			return fmt.Errorf("series: index %d (%s) before index %d (%s): %w",
				i, ts[i].Format(time.RFC3339Nano), i-1, ts[i-1].Format(time.RFC3339Nano), ErrNotMonotonic)
		}
	}
	return nil
}

// CheckMonotonicOffsets is CheckMonotonic for duration timelines.
func CheckMonotonicOffsets(ts []time.Duration) error {
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			return fmt.Errorf("series: index %d (%s) before index %d (%s): %w", i, ts[i], i-1, ts[i-1], ErrNotMonotonic)
		}
	}
	return nil
}

package model

import (
	"fmt"
	"math"
	"time"
)

// Undefined returns the value stored at positions without enough history.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v marks an undefined position.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

// TimeSeries is a time-indexed table of float columns. Every column has
// exactly one value per index position. A TimeSeries is treated as
// immutable: WithColumn and WithColumns return a new series and share the
// untouched column buffers with the receiver.
type TimeSeries struct {
	Symbol string

	index   []time.Time
	columns map[string][]float64
	order   []string
}

// NewTimeSeries builds a series from price bars. An empty bar slice yields a
// valid series with zero rows and all base columns present.
func NewTimeSeries(symbol string, bars []PriceBar) (*TimeSeries, error) {
	n := len(bars)
	index := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range bars {
		index[i] = b.Time
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = float64(b.Volume)
	}
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	return &TimeSeries{
		Symbol: symbol,
		index:  index,
		columns: map[string][]float64{
			ColOpen:   open,
			ColHigh:   high,
			ColLow:    low,
			ColClose:  closes,
			ColVolume: volume,
		},
		order: append([]string(nil), BaseColumns...),
	}, nil
}

// NewTable builds a series from an index and named columns. names fixes the
// column order; every name must have an entry in columns.
func NewTable(symbol string, index []time.Time, names []string, columns map[string][]float64) (*TimeSeries, error) {
	if err := checkIndex(index); err != nil {
		return nil, err
	}
	ts := &TimeSeries{
		Symbol:  symbol,
		index:   append([]time.Time(nil), index...),
		columns: make(map[string][]float64, len(names)),
	}
	for _, name := range names {
		values, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("table column %q: %w", name, ErrColumnNotFound)
		}
		if len(values) != len(index) {
			return nil, fmt.Errorf("table column %q has %d values for %d rows: %w",
				name, len(values), len(index), ErrLengthMismatch)
		}
		if _, dup := ts.columns[name]; !dup {
			ts.order = append(ts.order, name)
		}
		ts.columns[name] = append([]float64(nil), values...)
	}
	return ts, nil
}

func checkIndex(index []time.Time) error {
	for i := 1; i < len(index); i++ {
		if !index[i].After(index[i-1]) {
			return fmt.Errorf("row %d (%s) after %s: %w",
				i, index[i].Format(time.RFC3339), index[i-1].Format(time.RFC3339), ErrNonMonotonic)
		}
	}
	return nil
}

// Len returns the number of rows.
func (ts *TimeSeries) Len() int { return len(ts.index) }

// Empty reports whether the series has no rows.
func (ts *TimeSeries) Empty() bool { return len(ts.index) == 0 }

// Index returns a copy of the timestamps.
func (ts *TimeSeries) Index() []time.Time {
	return append([]time.Time(nil), ts.index...)
}

// Time returns the timestamp at row i.
func (ts *TimeSeries) Time(i int) time.Time { return ts.index[i] }

// Columns returns the column names in insertion order.
func (ts *TimeSeries) Columns() []string {
	return append([]string(nil), ts.order...)
}

// HasColumn reports whether name is present.
func (ts *TimeSeries) HasColumn(name string) bool {
	_, ok := ts.columns[name]
	return ok
}

// Column returns a copy of the named column.
func (ts *TimeSeries) Column(name string) ([]float64, error) {
	values, ok := ts.columns[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrColumnNotFound)
	}
	return append([]float64(nil), values...), nil
}

// Value returns the value of column name at row i, or NaN if absent.
func (ts *TimeSeries) Value(name string, i int) float64 {
	values, ok := ts.columns[name]
	if !ok || i < 0 || i >= len(values) {
		return math.NaN()
	}
	return values[i]
}

// Latest returns the last value of column name, or NaN.
func (ts *TimeSeries) Latest(name string) float64 {
	return ts.Value(name, ts.Len()-1)
}

// WithColumn returns a series with name added or replaced. A replaced
// column keeps its position.
func (ts *TimeSeries) WithColumn(name string, values []float64) (*TimeSeries, error) {
	return ts.WithColumns([]string{name}, map[string][]float64{name: values})
}

// WithColumns merges several columns in one step. names fixes the order in
// which new columns are appended. The values are taken over by the returned
// series and must not be modified afterwards.
func (ts *TimeSeries) WithColumns(names []string, values map[string][]float64) (*TimeSeries, error) {
	for _, name := range names {
		col, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("merge column %q: %w", name, ErrColumnNotFound)
		}
		if len(col) != len(ts.index) {
			return nil, fmt.Errorf("merge column %q has %d values for %d rows: %w",
				name, len(col), len(ts.index), ErrLengthMismatch)
		}
	}

	out := &TimeSeries{
		Symbol:  ts.Symbol,
		index:   ts.index,
		columns: make(map[string][]float64, len(ts.columns)+len(names)),
		order:   append([]string(nil), ts.order...),
	}
	for name, col := range ts.columns {
		out.columns[name] = col
	}
	for _, name := range names {
		if _, exists := out.columns[name]; !exists {
			out.order = append(out.order, name)
		}
		out.columns[name] = values[name]
	}
	return out, nil
}

// Bars rebuilds price bars from the base columns. Missing base columns
// produce NaN fields (zero volume).
func (ts *TimeSeries) Bars() []PriceBar {
	bars := make([]PriceBar, ts.Len())
	for i := range bars {
		vol := ts.Value(ColVolume, i)
		if math.IsNaN(vol) {
			vol = 0
		}
		bars[i] = PriceBar{
			Time:   ts.index[i],
			Open:   ts.Value(ColOpen, i),
			High:   ts.Value(ColHigh, i),
			Low:    ts.Value(ColLow, i),
			Close:  ts.Value(ColClose, i),
			Volume: int64(vol),
		}
	}
	return bars
}

package exporter

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"PriceSentinel/internal/model"
)

// DateColumn is the header of the timestamp column.
const DateColumn = "Date"

// DateLayout formats row timestamps.
const DateLayout = "2006-01-02"

// RecordSet is a row-oriented view of a series.
type RecordSet struct {
	Symbol string
	Header []string
	Rows   []Row
}

// Row holds one bar: its timestamp and one value per non-date header entry.
// Undefined values are NaN.
type Row struct {
	Time   time.Time
	Values []float64
}

// Sink persists a record set at a destination.
type Sink interface {
	Write(ctx context.Context, rs *RecordSet, destination string) error
}

// Shape converts a series into a record set.
func Shape(ts *model.TimeSeries) *RecordSet {
	names := ts.Columns()
	rs := &RecordSet{
		Symbol: ts.Symbol,
		Header: append([]string{DateColumn}, names...),
		Rows:   make([]Row, ts.Len()),
	}
	for i := range rs.Rows {
		values := make([]float64, len(names))
		for j, name := range names {
			values[j] = ts.Value(name, i)
		}
		rs.Rows[i] = Row{Time: ts.Time(i), Values: values}
	}
	return rs
}

// Export shapes ts and writes it to sink.
func Export(ctx context.Context, ts *model.TimeSeries, sink Sink, destination string) error {
	rs := Shape(ts)
	if err := sink.Write(ctx, rs, destination); err != nil {
		return fmt.Errorf("export %s to %s: %w", ts.Symbol, destination, err)
	}
	return nil
}

// Strings renders a row as text cells. Undefined values become empty cells.
func (r Row) Strings() []string {
	cells := make([]string, 0, len(r.Values)+1)
	cells = append(cells, r.Time.Format(DateLayout))
	for _, v := range r.Values {
		cells = append(cells, FormatValue(v))
	}
	return cells
}

// FormatValue renders v with the shortest exact representation, or "" for
// undefined values.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package calculator

import (
	"context"
	"fmt"

	"PriceSentinel/internal/model"

	"golang.org/x/sync/errgroup"
)

// Params holds the window sizes used by Enrich.
type Params struct {
	MAWindow        int
	STDWindow       int
	RSIWindow       int
	MACDShort       int
	MACDLong        int
	MACDSignal      int
	BollingerWindow int
	NumStdDev       float64
}

// DefaultParams returns the conventional indicator settings.
func DefaultParams() Params {
	return Params{
		MAWindow:        5,
		STDWindow:       20,
		RSIWindow:       14,
		MACDShort:       12,
		MACDLong:        26,
		MACDSignal:      9,
		BollingerWindow: 20,
		NumStdDev:       2,
	}
}

// columnSet is the output of one indicator: ordered names and the buffers
// that indicator owns until merge.
type columnSet struct {
	names  []string
	values map[string][]float64
}

func newColumnSet(name string, values []float64) columnSet {
	return columnSet{
		names:  []string{name},
		values: map[string][]float64{name: values},
	}
}

func (c *columnSet) add(name string, values []float64) {
	c.names = append(c.names, name)
	c.values[name] = values
}

// indicator computes derived columns from the close prices only.
type indicator struct {
	name    string
	compute func(closes []float64) (columnSet, error)
}

func closePrices(ts *model.TimeSeries) ([]float64, error) {
	closes, err := ts.Column(model.ColClose)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMissingColumn, err)
	}
	return closes, nil
}

func apply(ts *model.TimeSeries, ind indicator) (*model.TimeSeries, error) {
	closes, err := closePrices(ts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ind.name, err)
	}
	cs, err := ind.compute(closes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ind.name, err)
	}
	return ts.WithColumns(cs.names, cs.values)
}

func (p Params) indicators() []indicator {
	return []indicator{
		movingAverage(p.MAWindow),
		relativeStrength(p.RSIWindow),
		movingAverageConvergence(p.MACDShort, p.MACDLong, p.MACDSignal),
		standardDeviation(p.STDWindow),
		bollingerBands(p.BollingerWindow, p.NumStdDev),
	}
}

// Enrich computes every indicator concurrently and merges the results into
// a new series in one step. The close column is read once and shared
// read-only between workers; each worker owns its output buffers. Column
// order is fixed regardless of which worker finishes first.
func Enrich(ctx context.Context, ts *model.TimeSeries, p Params) (*model.TimeSeries, error) {
	closes, err := closePrices(ts)
	if err != nil {
		return nil, err
	}

	inds := p.indicators()
	results := make([]columnSet, len(inds))

	g, gctx := errgroup.WithContext(ctx)
	for i, ind := range inds {
		i, ind := i, ind
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cs, err := ind.compute(closes)
			if err != nil {
				return fmt.Errorf("%s: %w", ind.name, err)
			}
			results[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var names []string
	values := make(map[string][]float64)
	for _, cs := range results {
		for _, name := range cs.names {
			names = append(names, name)
			values[name] = cs.values[name]
		}
	}
	return ts.WithColumns(names, values)
}

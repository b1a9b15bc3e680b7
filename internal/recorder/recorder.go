package recorder

import (
	"errors"
	"time"

	"PriceSentinel/internal/collector"
	"PriceSentinel/internal/model"
)

// ErrNoRuns is returned by LastRun when nothing was recorded for a symbol.
var ErrNoRuns = errors.New("no recorded runs")

// RunRecord is the audit entry of one analysis run. Undefined statistics
// (empty series, indicator warm-up) are NaN.
type RunRecord struct {
	ID           string
	Symbol       string
	Range        string
	Source       string
	Bars         int
	AverageClose float64
	MinClose     float64
	MaxClose     float64
	PercentSwing float64
	Threshold    *float64
	Exceeded     *bool
	LatestClose  float64
	LatestRSI    float64
	LatestMACD   float64
	RecordedAt   time.Time
}

// FromResult builds the record of a collector run.
func FromResult(res *collector.Result) *RunRecord {
	r := res.Report
	return &RunRecord{
		Symbol:       r.Symbol,
		Range:        res.Request.Range.String(),
		Source:       res.Source,
		Bars:         r.Count,
		AverageClose: r.AverageClose,
		MinClose:     r.MinClose,
		MaxClose:     r.MaxClose,
		PercentSwing: r.PercentSwing,
		Threshold:    r.Threshold,
		Exceeded:     r.ThresholdExceeded,
		LatestClose:  res.Series.Latest(model.ColClose),
		LatestRSI:    res.Series.Latest(model.ColRSI),
		LatestMACD:   res.Series.Latest(model.ColMACD),
		RecordedAt:   res.FetchedAt,
	}
}

// Alert reports whether the run exceeded its threshold.
func (r *RunRecord) Alert() bool {
	return r.Exceeded != nil && *r.Exceeded
}

// Recorder persists run history.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	LastRun(symbol string) (*RunRecord, error)
	Close() error
}

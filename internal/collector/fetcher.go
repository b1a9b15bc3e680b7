package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"PriceSentinel/internal/model"
)

// ErrUnknownTicker is returned by Validate for symbols the source does not know.
var ErrUnknownTicker = errors.New("unknown ticker")

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	// Fetch returns the series for ticker over r, or an error wrapping
	// model.ErrDataUnavailable when the source has no bars.
	Fetch(ctx context.Context, ticker string, r Range) (*model.TimeSeries, error)
	// Validate checks that the source knows ticker.
	Validate(ctx context.Context, ticker string) error
	Name() string
}

// DateLayout is the format of Range start and end dates.
const DateLayout = "2006-01-02"

// Periods lists the look-back periods accepted by Range.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// Range selects history either by a look-back Period or by an explicit
// Start/End date pair. Exactly one form must be set.
type Range struct {
	Period string
	Start  string
	End    string
}

// PeriodRange returns a look-back range such as "1mo".
func PeriodRange(period string) Range { return Range{Period: period} }

// DateRange returns an explicit range of YYYY-MM-DD dates.
func DateRange(start, end string) Range { return Range{Start: start, End: end} }

// IsDates reports whether the range uses explicit dates.
func (r Range) IsDates() bool { return r.Start != "" || r.End != "" }

// Validate checks the range form and values.
func (r Range) Validate() error {
	if r.IsDates() {
		if r.Period != "" {
			return errors.New("range: set either a period or start/end dates, not both")
		}
		start, err := time.Parse(DateLayout, r.Start)
		if err != nil {
			return fmt.Errorf("range: start date: %w", err)
		}
		end, err := time.Parse(DateLayout, r.End)
		if err != nil {
			return fmt.Errorf("range: end date: %w", err)
		}
		if !end.After(start) {
			return fmt.Errorf("range: end %s must be after start %s", r.End, r.Start)
		}
		return nil
	}
	if r.Period == "" {
		return errors.New("range: set either a period or start/end dates")
	}
	for _, p := range Periods {
		if r.Period == p {
			return nil
		}
	}
	return fmt.Errorf("range: unsupported period %q (want one of %s)", r.Period, strings.Join(Periods, ", "))
}

// Bounds resolves the range into a [start, end) interval relative to now.
func (r Range) Bounds(now time.Time) (start, end time.Time, err error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if r.IsDates() {
		start, _ = time.Parse(DateLayout, r.Start)
		end, _ = time.Parse(DateLayout, r.End)
		return start, end, nil
	}
	end = now
	switch r.Period {
	case "1d":
		start = now.AddDate(0, 0, -1)
	case "5d":
		start = now.AddDate(0, 0, -5)
	case "1mo":
		start = now.AddDate(0, -1, 0)
	case "3mo":
		start = now.AddDate(0, -3, 0)
	case "6mo":
		start = now.AddDate(0, -6, 0)
	case "1y":
		start = now.AddDate(-1, 0, 0)
	case "2y":
		start = now.AddDate(-2, 0, 0)
	case "5y":
		start = now.AddDate(-5, 0, 0)
	case "10y":
		start = now.AddDate(-10, 0, 0)
	case "ytd":
		start = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	case "max":
		start = time.Unix(0, 0).UTC()
	}
	return start, end, nil
}

// String names the range for file names and logs, e.g. "1mo" or
// "2024-01-01_to_2024-03-01".
func (r Range) String() string {
	if r.IsDates() {
		return r.Start + "_to_" + r.End
	}
	return r.Period
}

// sortAndDedupe orders bars by time and keeps the last bar for repeated
// timestamps, which chart APIs emit for the live session.
func sortAndDedupe(bars []model.PriceBar) []model.PriceBar {
	if len(bars) < 2 {
		return bars
	}
	sortBars(bars)
	out := bars[:1]
	for _, b := range bars[1:] {
		if b.Time.Equal(out[len(out)-1].Time) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sortBars(bars []model.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}

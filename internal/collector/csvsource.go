package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"PriceSentinel/internal/model"
)

// CSVFetcher loads a series from a CSV file with a Date column followed by
// numeric columns, such as a previous export. Path may contain {ticker}.
// Every column of the file is kept, so the series can lack Close.
// Periods are ignored because the file is a fixed snapshot; date ranges
// filter rows to [start, end).
type CSVFetcher struct {
	Path string
}

// NewCSVFetcher creates a file-backed fetcher.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path}
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) path(ticker string) string {
	return strings.ReplaceAll(f.Path, "{ticker}", strings.ToUpper(ticker))
}

// Validate checks that the ticker's file exists.
func (f *CSVFetcher) Validate(_ context.Context, ticker string) error {
	if _, err := os.Stat(f.path(ticker)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("csv %s: %w", f.path(ticker), ErrUnknownTicker)
		}
		return err
	}
	return nil
}

var csvDateLayouts = []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05"}

func parseCSVTime(s string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Fetch reads the ticker's file.
func (f *CSVFetcher) Fetch(ctx context.Context, ticker string, r Range) (*model.TimeSeries, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.path(ticker))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("csv %s: %w", f.path(ticker), model.ErrDataUnavailable)
		}
		return nil, err
	}
	defer file.Close()
	return readCSVSeries(ctx, strings.ToUpper(ticker), file, r)
}

func readCSVSeries(ctx context.Context, symbol string, src io.Reader, r Range) (*model.TimeSeries, error) {
	reader := csv.NewReader(src)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv %s: empty file: %w", symbol, model.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if len(header) == 0 || !strings.EqualFold(strings.TrimPrefix(header[0], "\ufeff"), "Date") {
		return nil, fmt.Errorf("csv %s: first column must be Date, got %q", symbol, header)
	}
	names := make([]string, 0, len(header)-1)
	seen := make(map[string]bool, len(header)-1)
	for _, h := range header[1:] {
		name := strings.TrimSpace(h)
		if seen[name] {
			return nil, fmt.Errorf("csv %s: duplicate column %q", symbol, name)
		}
		seen[name] = true
		names = append(names, name)
	}

	var from, to time.Time
	if r.IsDates() {
		from, to, _ = r.Bounds(time.Now())
	}

	var index []time.Time
	columns := make(map[string][]float64, len(names))
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		ts, err := parseCSVTime(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if r.IsDates() && (ts.Before(from) || !ts.Before(to)) {
			continue
		}
		index = append(index, ts)
		for j, name := range names {
			v := math.NaN()
			if cell := strings.TrimSpace(rec[j+1]); cell != "" {
				if v, err = strconv.ParseFloat(cell, 64); err != nil {
					return nil, fmt.Errorf("csv line %d column %s: %w", line, name, err)
				}
			}
			columns[name] = append(columns[name], v)
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("csv %s %s: %w", symbol, r, model.ErrDataUnavailable)
	}
	return model.NewTable(symbol, index, names, columns)
}

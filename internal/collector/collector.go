package collector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"PriceSentinel/internal/analysis"
	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/metrics"
	"PriceSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Bars    []model.PriceBar
	Err     error
	Unknown map[string]bool
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, ticker string, r Range) (*model.TimeSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars
	if bars == nil {
		bars = generateMockBars(m.Price, 30)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("mock: %s %s: %w", ticker, r, model.ErrDataUnavailable)
	}
	return model.NewTimeSeries(strings.ToUpper(ticker), bars)
}

func (m *MockFetcher) Validate(_ context.Context, ticker string) error {
	if m.Unknown[strings.ToUpper(ticker)] {
		return fmt.Errorf("mock: %s: %w", ticker, ErrUnknownTicker)
	}
	return nil
}

func generateMockBars(basePrice float64, count int) []model.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Request describes one analysis run.
type Request struct {
	Ticker    string
	Range     Range
	Threshold *float64
}

// Result is the outcome of a run.
type Result struct {
	Request   Request
	Source    string
	Series    *model.TimeSeries
	Report    *model.FluctuationReport
	FetchedAt time.Time
}

// Collector orchestrates data fetching, indicator computation and the
// fluctuation analysis.
type Collector struct {
	Fetcher Fetcher
	Params  calculator.Params
	Metrics *metrics.Metrics
	// SkipValidation disables the ticker lookup before fetching.
	SkipValidation bool
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, params calculator.Params) *Collector {
	return &Collector{Fetcher: fetcher, Params: params}
}

// Run fetches the series, enriches it with every indicator and analyzes the
// close-price swing. Errors from the data source are returned unchanged in
// their chain; nothing is retried or substituted.
func (c *Collector) Run(ctx context.Context, req Request) (res *Result, err error) {
	defer func() { c.Metrics.ObserveRun(err) }()

	if strings.TrimSpace(req.Ticker) == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if err := req.Range.Validate(); err != nil {
		return nil, err
	}

	if !c.SkipValidation {
		if err := c.Fetcher.Validate(ctx, req.Ticker); err != nil {
			c.Metrics.ObserveFetchError(c.Fetcher.Name())
			return nil, fmt.Errorf("validate ticker %s: %w", req.Ticker, err)
		}
	}

	series, err := c.Fetcher.Fetch(ctx, req.Ticker, req.Range)
	if err != nil {
		c.Metrics.ObserveFetchError(c.Fetcher.Name())
		return nil, fmt.Errorf("fetch %s (%s): %w", req.Ticker, c.Fetcher.Name(), err)
	}
	log.Printf("[INFO] fetched %d bars for %s (%s) from %s", series.Len(), series.Symbol, req.Range, c.Fetcher.Name())

	start := time.Now()
	enriched, err := calculator.Enrich(ctx, series, c.Params)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	c.Metrics.ObserveEnrich(time.Since(start))

	report, err := analysis.AnalyzeFluctuation(enriched, req.Threshold)
	if err != nil {
		return nil, fmt.Errorf("analyze fluctuation: %w", err)
	}
	c.Metrics.ObserveReport(enriched.Len(), report)

	return &Result{
		Request:   req,
		Source:    c.Fetcher.Name(),
		Series:    enriched,
		Report:    report,
		FetchedAt: time.Now(),
	}, nil
}

package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceSentinel/internal/model"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// FinanceGoFetcher implements Fetcher on top of the finance-go Yahoo client.
// Bar values arrive as decimals and are converted to float64.
type FinanceGoFetcher struct {
	Now func() time.Time
}

// NewFinanceGoFetcher creates a finance-go backed fetcher.
func NewFinanceGoFetcher() *FinanceGoFetcher {
	return &FinanceGoFetcher{Now: time.Now}
}

func (f *FinanceGoFetcher) Name() string { return "financego" }

func toFloat64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

// Fetch iterates the daily chart for ticker over r.
func (f *FinanceGoFetcher) Fetch(ctx context.Context, ticker string, r Range) (*model.TimeSeries, error) {
	start, end, err := r.Bounds(f.Now())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &chart.Params{
		Symbol:   strings.ToUpper(ticker),
		Interval: datetime.OneDay,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
	}
	iter := chart.Get(params)

	var bars []model.PriceBar
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := iter.Bar()
		bars = append(bars, model.PriceBar{
			Time:   time.Unix(int64(b.Timestamp), 0),
			Open:   toFloat64(b.Open),
			High:   toFloat64(b.High),
			Low:    toFloat64(b.Low),
			Close:  toFloat64(b.Close),
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("financego chart %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("financego: %s %s: %w", ticker, r, model.ErrDataUnavailable)
	}
	return model.NewTimeSeries(strings.ToUpper(ticker), sortAndDedupe(bars))
}

// Validate looks the ticker up through the quote endpoint.
func (f *FinanceGoFetcher) Validate(ctx context.Context, ticker string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q, err := quote.Get(ticker)
	if err != nil {
		return fmt.Errorf("financego quote %s: %w", ticker, err)
	}
	if q == nil || !strings.EqualFold(q.Symbol, ticker) {
		return fmt.Errorf("financego: %s: %w", ticker, ErrUnknownTicker)
	}
	return nil
}

package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/exporter"
	"PriceSentinel/internal/metrics"
	"PriceSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes ...float64) []model.PriceBar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return bars
}

func TestRange_Validate(t *testing.T) {
	tests := []struct {
		name string
		r    Range
		ok   bool
	}{
		{"period", PeriodRange("1mo"), true},
		{"ytd", PeriodRange("ytd"), true},
		{"dates", DateRange("2024-01-01", "2024-02-01"), true},
		{"empty", Range{}, false},
		{"unknown period", PeriodRange("7w"), false},
		{"both", Range{Period: "1mo", Start: "2024-01-01", End: "2024-02-01"}, false},
		{"bad date", DateRange("2024-13-01", "2024-02-01"), false},
		{"missing end", Range{Start: "2024-01-01"}, false},
		{"reversed", DateRange("2024-02-01", "2024-01-01"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRange_BoundsAndString(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	start, end, err := PeriodRange("3mo").Bounds(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	start, _, err = PeriodRange("ytd").Bounds(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)

	r := DateRange("2024-01-01", "2024-02-01")
	start, end, err = r.Bounds(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", start.Format(DateLayout))
	assert.Equal(t, "2024-02-01", end.Format(DateLayout))
	assert.Equal(t, "2024-01-01_to_2024-02-01", r.String())
	assert.Equal(t, "1mo", PeriodRange("1mo").String())
}

func TestSortAndDedupe(t *testing.T) {
	bars := barsFromCloses(1, 2, 3)
	bars[0], bars[2] = bars[2], bars[0]
	dup := bars[1]
	dup.Close = 99
	bars = append(bars, dup)

	out := sortAndDedupe(bars)
	require.Len(t, out, 3)
	assert.Equal(t, []float64{1, 99, 3}, []float64{out[0].Close, out[1].Close, out[2].Close})
}

const yahooResponse = `{"chart":{"result":[{"meta":{"symbol":"AAPL","exchangeTimezoneName":"UTC"},
"timestamp":[1704326400,1704240000,1704412800,1704499200],
"indicators":{"quote":[{"open":[101,100,null,103],"high":[102,101,null,104],"low":[100,99,null,102],
"close":[101.5,100.5,null,103.5],"volume":[2000,1000,null,4000]}]}}],"error":null}}`

func TestYahooFetcher_Fetch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		fmt.Fprint(w, yahooResponse)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	ts, err := f.Fetch(context.Background(), "AAPL", PeriodRange("1mo"))
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "range=1mo")
	assert.Contains(t, gotQuery, "interval=1d")

	assert.Equal(t, "AAPL", ts.Symbol)
	require.Equal(t, 3, ts.Len(), "null bar skipped")
	closes, err := ts.Column(model.ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5, 101.5, 103.5}, closes, "sorted by time")
	assert.Equal(t, 4000.0, ts.Latest(model.ColVolume))
}

// A bar with prices for the open but none for the close is the session
// still trading; it must not enter the series as a zero close.
const yahooPartialResponse = `{"chart":{"result":[{"meta":{"symbol":"AAPL","exchangeTimezoneName":"UTC"},
"timestamp":[1704240000,1704326400,1704412800,1704499200],
"indicators":{"quote":[{"open":[100,101,102,103],"high":[101,102,103,104],"low":[99,100,null,102],
"close":[100.5,101.5,102.5,null],"volume":[1000,2000,3000,null]}]}}],"error":null}}`

func TestYahooFetcher_DropsBarWithoutClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, yahooPartialResponse)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	ts, err := f.Fetch(context.Background(), "AAPL", PeriodRange("5d"))
	require.NoError(t, err)
	closes, err := ts.Column(model.ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5, 101.5, 102.5}, closes)
	lows, err := ts.Column(model.ColLow)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(lows[2]), "missing low is undefined, not 0")

	res, err := NewCollector(f, calculator.DefaultParams()).Run(context.Background(),
		Request{Ticker: "AAPL", Range: PeriodRange("5d"), Threshold: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 100.5, res.Report.MinClose)
	assert.InDelta(t, 1.99, res.Report.PercentSwing, 0.01)
	assert.False(t, res.Report.Alert())
}

func TestYahooFetcher_DateRangeUsesPeriodParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, yahooResponse)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), "AAPL", DateRange("2024-01-01", "2024-01-10"))
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "period1=1704067200")
	assert.Contains(t, gotQuery, "period2=1704844800")
}

func TestYahooFetcher_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.Fetch(context.Background(), "AAPL", PeriodRange("1d"))
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}

func TestYahooFetcher_Validate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/NOPE" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			return
		}
		fmt.Fprint(w, yahooResponse)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	assert.NoError(t, f.Validate(context.Background(), "aapl"))
	assert.ErrorIs(t, f.Validate(context.Background(), "NOPE"), ErrUnknownTicker)
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/quote":
			if r.URL.Query().Get("symbol") == "NOPE" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"price": 101.5}`)
		case "/api/v1/bars/daily":
			assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
			fmt.Fprint(w, `[{"timestamp":1704153600,"open":1,"high":2,"low":0.5,"close":1.5,"volume":10},
				{"timestamp":1704067200,"open":1,"high":2,"low":0.5,"close":1.2,"volume":5}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL+"/", "secret", "")
	require.NoError(t, f.Validate(context.Background(), "AAPL"))
	assert.ErrorIs(t, f.Validate(context.Background(), "NOPE"), ErrUnknownTicker)

	ts, err := f.Fetch(context.Background(), "AAPL", DateRange("2024-01-01", "2024-01-03"))
	require.NoError(t, err)
	closes, err := ts.Column(model.ColClose)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.2, 1.5}, closes)
}

func TestCSVFetcher_RoundTripsExport(t *testing.T) {
	dir := t.TempDir()
	src, err := model.NewTimeSeries("AAPL", barsFromCloses(100, 101, 102, 103, 104, 105))
	require.NoError(t, err)
	enriched, err := calculator.AddMovingAverage(src, 3)
	require.NoError(t, err)
	require.NoError(t, exporter.Export(context.Background(), enriched, exporter.NewCSVSink(dir), "AAPL.csv"))

	f := NewCSVFetcher(filepath.Join(dir, "{ticker}.csv"))
	require.NoError(t, f.Validate(context.Background(), "aapl"))

	ts, err := f.Fetch(context.Background(), "aapl", PeriodRange("max"))
	require.NoError(t, err)
	assert.Equal(t, enriched.Columns(), ts.Columns())
	assert.True(t, math.IsNaN(ts.Value(model.ColMovingAverage, 0)))
	assert.Equal(t, 104.0, ts.Latest(model.ColMovingAverage))

	filtered, err := f.Fetch(context.Background(), "aapl", DateRange("2024-01-02", "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.Len())
}

func TestCSVFetcher_WithoutClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "X.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Open\n2024-01-01,1\n2024-01-02,2\n"), 0644))

	ts, err := NewCSVFetcher(path).Fetch(context.Background(), "X", PeriodRange("1mo"))
	require.NoError(t, err)
	assert.False(t, ts.HasColumn(model.ColClose))

	_, err = NewCSVFetcher(filepath.Join(dir, "missing.csv")).Fetch(context.Background(), "X", PeriodRange("1mo"))
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.ErrorIs(t, NewCSVFetcher(filepath.Join(dir, "missing.csv")).Validate(context.Background(), "X"), ErrUnknownTicker)
}

func TestCSVFetcher_DuplicateColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "X.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Close, Close\n2024-01-01,1,2\n2024-01-02,3,4\n"), 0644))

	_, err := NewCSVFetcher(path).Fetch(context.Background(), "X", PeriodRange("1mo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate column "Close"`)
}

func TestToFloat64(t *testing.T) {
	assert.Equal(t, 101.25, toFloat64(decimal.NewFromFloat(101.25)))
}

func ptr(v float64) *float64 { return &v }

func TestCollector_Run(t *testing.T) {
	m := metrics.New()
	c := NewCollector(&MockFetcher{Bars: barsFromCloses(100, 102, 101, 105, 103, 110, 108, 112, 115, 111)}, calculator.DefaultParams())
	c.Metrics = m

	res, err := c.Run(context.Background(), Request{Ticker: "aapl", Range: PeriodRange("1mo"), Threshold: ptr(5)})
	require.NoError(t, err)

	assert.Equal(t, "mock", res.Source)
	assert.Equal(t, "AAPL", res.Report.Symbol)
	assert.InDelta(t, 15.0, res.Report.PercentSwing, 1e-9)
	assert.True(t, res.Report.Alert())
	assert.True(t, res.Series.HasColumn(model.ColSignalLine))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("AAPL")))
}

func TestCollector_RunPropagatesDataUnavailable(t *testing.T) {
	m := metrics.New()
	c := NewCollector(&MockFetcher{Bars: []model.PriceBar{}}, calculator.DefaultParams())
	c.Metrics = m

	_, err := c.Run(context.Background(), Request{Ticker: "AAPL", Range: PeriodRange("1mo")})
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchErrors.WithLabelValues("mock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("error")))
}

func TestCollector_RunErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		fetcher *MockFetcher
		req     Request
		want    error
	}{
		{"unknown ticker", &MockFetcher{Price: 100, Unknown: map[string]bool{"ZZZ": true}}, Request{Ticker: "zzz", Range: PeriodRange("1mo")}, ErrUnknownTicker},
		{"source error", &MockFetcher{Err: boom}, Request{Ticker: "AAPL", Range: PeriodRange("1mo")}, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCollector(tt.fetcher, calculator.DefaultParams()).Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewCollector(&MockFetcher{Price: 100}, calculator.DefaultParams()).Run(context.Background(), Request{Ticker: " ", Range: PeriodRange("1mo")})
	assert.Error(t, err)
	_, err = NewCollector(&MockFetcher{Price: 100}, calculator.DefaultParams()).Run(context.Background(), Request{Ticker: "AAPL"})
	assert.Error(t, err)
}

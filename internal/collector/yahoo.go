package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PriceSentinel/internal/model"

	"golang.org/x/time/rate"
)

// DefaultYahooBaseURL is the Yahoo Finance chart API host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Now       func() time.Time
	// Limiter paces chart requests; Yahoo answers bursts with 429.
	Limiter *rate.Limiter
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: DefaultYahooBaseURL,
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		Now:     time.Now,
		Limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat reports the numeric value of a decoded quote cell and whether it
// was present. Yahoo sends null for cells it has no price for.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// price is toFloat with a missing cell mapped to NaN.
func price(v interface{}) float64 {
	if f, ok := toFloat(v); ok {
		return f
	}
	return math.NaN()
}

func at(values []interface{}, i int) interface{} {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func (f *YahooFetcher) chartURL(symbol string, r Range) (string, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	if r.IsDates() {
		start, end, err := r.Bounds(f.Now())
		if err != nil {
			return "", err
		}
		q.Set("period1", strconv.FormatInt(start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	} else {
		q.Set("range", r.Period)
	}
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s",
		strings.TrimRight(f.BaseURL, "/"), url.PathEscape(f.yahooSymbol(symbol)), q.Encode()), nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, u string) (*yahooChart, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("yahoo rate limit: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo: %s: %w", chart.Chart.Error.Description, ErrUnknownTicker)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	return &chart, nil
}

// Fetch returns daily bars for ticker over r.
func (f *YahooFetcher) Fetch(ctx context.Context, ticker string, r Range) (*model.TimeSeries, error) {
	u, err := f.chartURL(ticker, r)
	if err != nil {
		return nil, err
	}
	chart, err := f.fetchChart(ctx, u)
	if err != nil {
		return nil, err
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %s %s: %w", ticker, r, model.ErrDataUnavailable)
	}

	result := chart.Chart.Result[0]
	loc := time.UTC
	if result.Meta.ExchangeTimezoneName != "" {
		if l, err := time.LoadLocation(result.Meta.ExchangeTimezoneName); err == nil {
			loc = l
		}
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c, ok := toFloat(at(quote.Close, i))
		if !ok {
			continue // no close: holiday or the session still in progress
		}
		vol, _ := toFloat(at(quote.Volume, i))
		bars = append(bars, model.PriceBar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   price(at(quote.Open, i)),
			High:   price(at(quote.High, i)),
			Low:    price(at(quote.Low, i)),
			Close:  c,
			Volume: int64(vol),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo: %s %s: %w", ticker, r, model.ErrDataUnavailable)
	}

	return model.NewTimeSeries(strings.ToUpper(ticker), sortAndDedupe(bars))
}

// Validate asks the chart API for the ticker's metadata and compares the
// returned symbol.
func (f *YahooFetcher) Validate(ctx context.Context, ticker string) error {
	u, err := f.chartURL(ticker, PeriodRange("5d"))
	if err != nil {
		return err
	}
	chart, err := f.fetchChart(ctx, u)
	if err != nil {
		return err
	}
	if len(chart.Chart.Result) == 0 {
		return fmt.Errorf("yahoo: %s: %w", ticker, ErrUnknownTicker)
	}
	if got := chart.Chart.Result[0].Meta.Symbol; !strings.EqualFold(got, f.yahooSymbol(ticker)) {
		return fmt.Errorf("yahoo: %s resolved to %q: %w", ticker, got, ErrUnknownTicker)
	}
	return nil
}

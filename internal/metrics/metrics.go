package metrics

import (
	"context"
	"log"
	"net/http"
	"time"

	"PriceSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the analysis pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec // labels: result=ok|error
	AlertsTotal    *prometheus.CounterVec // labels: symbol
	FetchErrors    *prometheus.CounterVec // labels: provider
	EnrichDuration prometheus.Histogram
	BarsFetched    *prometheus.GaugeVec // labels: symbol
	PercentSwing   *prometheus.GaugeVec // labels: symbol
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_runs_total",
			Help: "Analysis runs by outcome",
		}, []string{"result"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Runs whose percent swing exceeded the threshold",
		}, []string{"symbol"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_errors_total",
			Help: "Data source failures",
		}, []string{"provider"}),
		EnrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_enrich_duration_seconds",
			Help:    "Indicator engine latency per series",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		BarsFetched: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_bars_fetched",
			Help: "Bars in the most recent series",
		}, []string{"symbol"}),
		PercentSwing: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_percent_swing",
			Help: "Close-price swing of the most recent run, in percent",
		}, []string{"symbol"}),
	}

	m.Registry.MustRegister(
		m.RunsTotal,
		m.AlertsTotal,
		m.FetchErrors,
		m.EnrichDuration,
		m.BarsFetched,
		m.PercentSwing,
	)
	return m
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}

// ObserveFetchError counts a data source failure.
func (m *Metrics) ObserveFetchError(provider string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(provider).Inc()
}

// ObserveEnrich records indicator engine latency.
func (m *Metrics) ObserveEnrich(d time.Duration) {
	if m == nil {
		return
	}
	m.EnrichDuration.Observe(d.Seconds())
}

// ObserveReport records the size and swing of a run and counts alerts.
func (m *Metrics) ObserveReport(bars int, r *model.FluctuationReport) {
	if m == nil || r == nil {
		return
	}
	m.BarsFetched.WithLabelValues(r.Symbol).Set(float64(bars))
	m.PercentSwing.WithLabelValues(r.Symbol).Set(r.PercentSwing)
	if r.Alert() {
		m.AlertsTotal.WithLabelValues(r.Symbol).Inc()
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics over HTTP.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics server for m.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[INFO] metrics server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("[WARN] metrics server shutdown: %v", err)
	}
}

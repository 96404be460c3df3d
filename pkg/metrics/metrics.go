// Package metrics exposes harvest progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "psharvest"

// Metrics holds the harvest collectors.
type Metrics struct {
	Rounds        prometheus.Counter
	EmptyRounds   prometheus.Counter
	Pages         *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	RawItems      prometheus.Counter
	JunkRemoved   prometheus.Counter
	Records       prometheus.Gauge
	LiveQueries   prometheus.Gauge
	Backoff       prometheus.Gauge
}

// New registers the harvest collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Rounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Harvest rounds completed",
		}),
		EmptyRounds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_rounds_total",
			Help:      "Rounds that returned no items",
		}),
		Pages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Page fetches by subreddit and outcome (ok, empty, or the error type)",
		}, []string{"subreddit", "outcome"}),
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch and decode one page",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
		}),
		RawItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raw_items_total",
			Help:      "Distinct raw items received",
		}),
		JunkRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "junk_removed_total",
			Help:      "Records dropped for a sentinel author",
		}),
		Records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Records currently held",
		}),
		LiveQueries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_queries",
			Help:      "Queries that have not been exhausted",
		}),
		Backoff: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backoff_seconds",
			Help:      "Current wait applied after an empty round",
		}),
	}
}

// ObservePage records the outcome of a single page fetch.
func (m *Metrics) ObservePage(subreddit, outcome string, took time.Duration) {
	m.Pages.WithLabelValues(subreddit, outcome).Inc()
	m.FetchDuration.Observe(took.Seconds())
}

// Server serves the registry's metrics over HTTP.
type Server struct {
	srv *http.Server
}

// NewServer exposes gatherer on addr at path.
func NewServer(addr, path string, gatherer prometheus.Gatherer) *Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start listens in the background. Listener errors are sent on the returned
// channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"MarketSniper/internal/ports"
)

const namespace = "marketsniper"

// Collector implements ports.Metrics on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	pages       prometheus.Counter
	rateLimited prometheus.Counter
	inspections prometheus.Counter
	cartAdded   prometheus.Counter
	purchases   *prometheus.CounterVec
	rate        prometheus.Gauge
}

var _ ports.Metrics = (*Collector)(nil)

// NewCollector registers all series plus the Go runtime collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_requested_total",
			Help:      "Listing pages requested from the marketplace.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Listing fetches rejected with HTTP 429.",
		}),
		inspections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspection_errors_total",
			Help:      "Distinct inspection errors reported per task pass.",
		}),
		cartAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_entries_added_total",
			Help:      "Listings accepted into the cart.",
		}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_attempts_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_rate",
			Help:      "Last sampled quote/base exchange rate.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.pages,
		c.rateLimited,
		c.inspections,
		c.cartAdded,
		c.purchases,
		c.rate,
	)
	return c
}

func (c *Collector) PagesRequested(n int)           { c.pages.Add(float64(n)) }
func (c *Collector) RateLimited()                   { c.rateLimited.Inc() }
func (c *Collector) InspectionFailures(n int)       { c.inspections.Add(float64(n)) }
func (c *Collector) CartEntriesAdded(n int)         { c.cartAdded.Add(float64(n)) }
func (c *Collector) PurchaseAttempt(outcome string) { c.purchases.WithLabelValues(outcome).Inc() }
func (c *Collector) ExchangeRate(rate float64)      { c.rate.Set(rate) }

// Router serves /metrics and /healthz.
func (c *Collector) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	return r
}

// Server is the metrics listener.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer binds the collector's router to addr.
func NewServer(addr string, c *Collector, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           c.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start listens in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package metrics provides Prometheus collectors for the API client and the
// search and form components.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricRequestsTotal          = "crm_api_requests_total"
	MetricRequestDurationSeconds = "crm_api_request_duration_seconds"
	MetricSearchesTotal          = "crm_search_results_total"
	MetricStaleSearchesTotal     = "crm_search_stale_discarded_total"
	MetricSubmissionsTotal       = "crm_submissions_total"
)

// Search result sources
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Metrics groups the collectors shared by the client components.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
	searchesTotal          *prometheus.CounterVec
	staleSearchesTotal     prometheus.Counter
	submissionsTotal       *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRequestsTotal,
				Help: "Total API requests by operation and HTTP status (0 for transport failures)",
			},
			[]string{"op", "status"},
		),
		requestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRequestDurationSeconds,
				Help:    "API request latency in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchesTotal,
				Help: "Applied catalog searches by result source (remote or local fallback)",
			},
			[]string{"source"},
		),
		staleSearchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricStaleSearchesTotal,
				Help: "Search completions discarded because the query had changed",
			},
		),
		submissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSubmissionsTotal,
				Help: "Form submissions by form and outcome",
			},
			[]string{"form", "outcome"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDurationSeconds,
		m.searchesTotal,
		m.staleSearchesTotal,
		m.submissionsTotal,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one API call. status is 0 when no response was received.
func (m *Metrics) ObserveRequest(op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	m.requestDurationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// SearchApplied records a search whose results reached the widget state
func (m *Metrics) SearchApplied(source string) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(source).Inc()
}

// SearchDiscarded records a stale search completion
func (m *Metrics) SearchDiscarded() {
	if m == nil {
		return
	}
	m.staleSearchesTotal.Inc()
}

// Submission records the outcome of a form submission
func (m *Metrics) Submission(form, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(form, outcome).Inc()
}

// Handler returns the HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

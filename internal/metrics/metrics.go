// Package metrics holds the Prometheus collectors of the catalog service.
// Every method is safe on a nil *Metrics, which disables collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	reconcileTotal    *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	lookupFailures    prometheus.Counter
	invalidations     *prometheus.CounterVec
	deleteFailures    *prometheus.CounterVec
	viewRefresh       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation passes by mode and outcome",
		}, []string{"mode", "outcome"}),

		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation passes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_failures_total",
			Help:      "Metadata lookups that failed and were treated as missing",
		}),

		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Invalidation signals by source",
		}, []string{"source"}),

		deleteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_failures_total",
			Help:      "Failed or partial deletes by kind",
		}, []string{"kind"}),

		viewRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_refresh_total",
			Help:      "View cache reloads by view and outcome",
		}, []string{"view", "outcome"}),
	}

	m.registry.MustRegister(
		m.reconcileTotal,
		m.reconcileDuration,
		m.lookupFailures,
		m.invalidations,
		m.deleteFailures,
		m.viewRefresh,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry to tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveReconcile records one reconciliation pass.
func (m *Metrics) ObserveReconcile(mode string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(mode, outcome(err)).Inc()
	m.reconcileDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
}

// LookupFailed counts a swallowed metadata lookup failure.
func (m *Metrics) LookupFailed() {
	if m == nil {
		return
	}
	m.lookupFailures.Inc()
}

// Invalidation counts a signal from source ("local", "delayed", "relay", "slot").
func (m *Metrics) Invalidation(source string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(source).Inc()
}

// DeleteFailed counts a failed delete by kind ("asset", "orphan_asset", "orphan_metadata").
func (m *Metrics) DeleteFailed(kind string) {
	if m == nil {
		return
	}
	m.deleteFailures.WithLabelValues(kind).Inc()
}

// ViewRefreshed counts one view reload.
func (m *Metrics) ViewRefreshed(view string, err error) {
	if m == nil {
		return
	}
	m.viewRefresh.WithLabelValues(view, outcome(err)).Inc()
}

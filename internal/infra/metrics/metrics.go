// Package metrics exposes the Prometheus collectors of the auth service on a dedicated registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tenantauth"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	authEvents      *prometheus.CounterVec
	cleanupDeleted  *prometheus.CounterVec
	cleanupRuns     *prometheus.CounterVec
	cleanupDuration prometheus.Histogram
	auditDropped    prometheus.Counter
}

// New builds the collectors on a fresh registry that also carries the Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return buildMetrics(registry)
}

func buildMetrics(registry *prometheus.Registry) *Metrics {
	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_total",
		Help:      "Authentication events partitioned by event and outcome.",
	}, []string{"event", "outcome"})
	cleanupDeleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_deleted_total",
		Help:      "Expired token rows removed by the cleanup job, by kind.",
	}, []string{"kind"})
	cleanupRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_runs_total",
		Help:      "Cleanup job executions partitioned by status.",
	}, []string{"status"})
	cleanupDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cleanup_duration_seconds",
		Help:      "Duration in seconds of cleanup job executions.",
		Buckets:   prometheus.DefBuckets,
	})
	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Audit events dropped because the write buffer was full.",
	})
	registry.MustRegister(authEvents, cleanupDeleted, cleanupRuns, cleanupDuration, auditDropped)

	return &Metrics{
		registry:        registry,
		authEvents:      authEvents,
		cleanupDeleted:  cleanupDeleted,
		cleanupRuns:     cleanupRuns,
		cleanupDuration: cleanupDuration,
		auditDropped:    auditDropped,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// AuthEvent counts one authentication event.
func (m *Metrics) AuthEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(event, outcome).Inc()
}

// CleanupDeleted adds the number of rows a cleanup pass removed.
func (m *Metrics) CleanupDeleted(kind string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.cleanupDeleted.WithLabelValues(kind).Add(float64(count))
}

// AuditDropped counts one audit event lost to back pressure.
func (m *Metrics) AuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// Tracker instruments a single cleanup run.
type Tracker struct {
	metrics *Metrics
	start   time.Time
}

// TrackCleanup starts timing a cleanup run.
func (m *Metrics) TrackCleanup() *Tracker {
	return &Tracker{metrics: m, start: time.Now()}
}

// End records the run status and duration and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.cleanupRuns.WithLabelValues(status).Inc()
	t.metrics.cleanupDuration.Observe(time.Since(t.start).Seconds())

	return err
}

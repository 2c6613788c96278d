// Package metrics exposes Prometheus instruments for plan operations.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qist"

// Metrics holds the collectors registered on its own registry
type Metrics struct {
	registry *prometheus.Registry

	plansCreated      prometheus.Counter
	plansDeleted      prometheus.Counter
	payments          *prometheus.CounterVec
	redistributedRows prometheus.Histogram
	unabsorbed        prometheus.Counter
	conflicts         prometheus.Counter
	duration          *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		plansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_created_total",
			Help:      "Installment plans created.",
		}),
		plansDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_deleted_total",
			Help:      "Installment plans deleted.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_operations_total",
			Help:      "Payment mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		redistributedRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redistributed_installments",
			Help:      "Pending installments touched by one redistribution.",
			Buckets:   []float64{1, 2, 3, 6, 12, 24, 60},
		}),
		unabsorbed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unabsorbed_shortfalls_total",
			Help:      "Payments whose delta could not be fully redistributed.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrent_modifications_total",
			Help:      "Mutations rejected because the plan changed underneath them.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of plan operations including lock wait.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.plansCreated,
		m.plansDeleted,
		m.payments,
		m.redistributedRows,
		m.unabsorbed,
		m.conflicts,
		m.duration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PlanCreated() {
	if m == nil {
		return
	}
	m.plansCreated.Inc()
}

func (m *Metrics) PlanDeleted() {
	if m == nil {
		return
	}
	m.plansDeleted.Inc()
}

// PaymentOperation counts a payment mutation; outcome is "ok" or an error class
func (m *Metrics) PaymentOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Redistributed(rows int) {
	if m == nil || rows == 0 {
		return
	}
	m.redistributedRows.Observe(float64(rows))
}

func (m *Metrics) UnabsorbedShortfall() {
	if m == nil {
		return
	}
	m.unabsorbed.Inc()
}

func (m *Metrics) ConcurrentModification() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// ObserveDuration records the time elapsed since start
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

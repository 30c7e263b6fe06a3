package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cart_recovery"

// CaptureMetrics counts abandoned-cart lifecycle events.
type CaptureMetrics struct {
	captures    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	completions *prometheus.CounterVec
	deleted     prometheus.Counter
}

// NewCaptureMetrics registers the capture metrics on reg. A nil registerer
// yields a recorder that drops every observation.
func NewCaptureMetrics(reg prometheus.Registerer) *CaptureMetrics {
	if reg == nil {
		return &CaptureMetrics{}
	}
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "captures_total",
		Help:      "Checkout captures by outcome (inserted, updated, skipped).",
	}, []string{"source", "outcome"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_failures_total",
		Help:      "Abandoned cart storage failures by operation.",
	}, []string{"operation"})
	completions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Order completions by whether an abandoned cart matched.",
	}, []string{"matched"})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cleanup_deleted_total",
		Help:      "Abandoned carts removed by retention cleanup.",
	})
	reg.MustRegister(captures, failures, completions, deleted)
	return &CaptureMetrics{
		captures:    captures,
		failures:    failures,
		completions: completions,
		deleted:     deleted,
	}
}

func (m *CaptureMetrics) IncCapture(source, outcome string) {
	if m == nil || m.captures == nil {
		return
	}
	m.captures.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (m *CaptureMetrics) IncFailure(operation string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *CaptureMetrics) IncCompletion(matched bool) {
	if m == nil || m.completions == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.completions.WithLabelValues(label).Inc()
}

func (m *CaptureMetrics) AddDeleted(n int64) {
	if m == nil || m.deleted == nil || n <= 0 {
		return
	}
	m.deleted.Add(float64(n))
}

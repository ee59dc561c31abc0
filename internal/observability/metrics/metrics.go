// Package metrics exposes prometheus instrumentation for the receptionist.
// All observe methods are nil-safe so callers can run without metrics wired.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReceptionMetrics covers booking outcomes and the model orchestration loop.
type ReceptionMetrics struct {
	bookingTotal   *prometheus.CounterVec
	modelCallTotal *prometheus.CounterVec
	modelLatency   prometheus.Histogram
	toolTotal      *prometheus.CounterVec
}

func NewReceptionMetrics(reg prometheus.Registerer) *ReceptionMetrics {
	m := &ReceptionMetrics{
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "schedule",
			Name:      "booking_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"outcome"}),
		modelCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "agent",
			Name:      "model_call_total",
			Help:      "Total model call attempts by status",
		}, []string{"status"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "receptionist",
			Subsystem: "agent",
			Name:      "model_call_latency_seconds",
			Help:      "Latency of individual model call attempts",
			Buckets:   prometheus.DefBuckets,
		}),
		toolTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receptionist",
			Subsystem: "agent",
			Name:      "tool_execution_total",
			Help:      "Total tool executions by tool name",
		}, []string{"tool"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingTotal, m.modelCallTotal, m.modelLatency, m.toolTotal)
	return m
}

// ObserveBooking records one booking attempt. outcome is "success" or the
// failure kind.
func (m *ReceptionMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(outcome).Inc()
}

func (m *ReceptionMetrics) ObserveModelCall(status string, seconds float64) {
	if m == nil {
		return
	}
	m.modelCallTotal.WithLabelValues(status).Inc()
	m.modelLatency.Observe(seconds)
}

func (m *ReceptionMetrics) ObserveTool(tool string) {
	if m == nil {
		return
	}
	m.toolTotal.WithLabelValues(tool).Inc()
}

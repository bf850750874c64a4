package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for tax-engine observability.
type BusinessMetrics struct {
	// Calculations by resolution tier (rule, class_rate, class_default, zero).
	CalculationsTotal *prometheus.CounterVec

	// Configuration-gap signals surfaced to callers; a growing
	// no_tax_configuration series means checkout is running untaxed.
	ConfigGapSignals *prometheus.CounterVec

	// Rejected calculation requests (bad amount, unknown scenario).
	CalculationsRejected prometheus.Counter

	// Admin configuration writes by resource and action.
	ConfigWrites *prometheus.CounterVec
}

// Business is the global business metrics instance.
var Business *BusinessMetrics

// InitBusinessMetrics creates and registers business metrics.
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "carsi"
	}

	Business = &BusinessMetrics{
		CalculationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_calculations_total",
				Help:      "Tax calculations by resolution tier",
			},
			[]string{"tier"},
		),
		ConfigGapSignals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_config_gap_signals_total",
				Help:      "Zero-rate fallbacks caused by missing tax configuration",
			},
			[]string{"signal"},
		),
		CalculationsRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_calculations_rejected_total",
				Help:      "Calculation requests rejected before computation",
			},
		),
		ConfigWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tax_config_writes_total",
				Help:      "Admin tax configuration writes",
			},
			[]string{"resource", "action"},
		),
	}
	return Business
}

// RecordCalculation tracks one completed calculation.
func (m *BusinessMetrics) RecordCalculation(tier, signal string) {
	if m == nil {
		return
	}
	m.CalculationsTotal.WithLabelValues(tier).Inc()
	if signal != "" {
		m.ConfigGapSignals.WithLabelValues(signal).Inc()
	}
}

// RecordConfigWrite tracks one admin write.
func (m *BusinessMetrics) RecordConfigWrite(resource, action string) {
	if m == nil {
		return
	}
	m.ConfigWrites.WithLabelValues(resource, action).Inc()
}

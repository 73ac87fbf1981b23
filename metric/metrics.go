package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics for the component lifecycle
type Metrics struct {
	// Component metrics
	ComponentsSatisfied *prometheus.GaugeVec
	ComponentsPublished *prometheus.CounterVec
	ComponentsRetracted *prometheus.CounterVec

	// Dependency binding metrics
	BindingsActive *prometheus.GaugeVec
	RebindsTotal   *prometheus.CounterVec

	// Lifecycle metrics
	StartupFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentsSatisfied: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "beanbridge",
				Subsystem: "components",
				Name:      "satisfied",
				Help:      "Number of components whose mandatory dependencies are all bound",
			},
			[]string{"unit"},
		),

		ComponentsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "beanbridge",
				Subsystem: "components",
				Name:      "published_total",
				Help:      "Total number of component service publications",
			},
			[]string{"unit", "component"},
		),

		ComponentsRetracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "beanbridge",
				Subsystem: "components",
				Name:      "retracted_total",
				Help:      "Total number of component service retractions",
			},
			[]string{"unit", "component"},
		),

		BindingsActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "beanbridge",
				Subsystem: "bindings",
				Name:      "active",
				Help:      "Number of dependencies currently bound to a provider",
			},
			[]string{"capability"},
		),

		RebindsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "beanbridge",
				Subsystem: "bindings",
				Name:      "rebinds_total",
				Help:      "Total number of dependency rebinds by reason (upgrade or replaced)",
			},
			[]string{"capability", "reason"},
		),

		StartupFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "beanbridge",
				Subsystem: "lifecycle",
				Name:      "startup_failures_total",
				Help:      "Total number of deployment unit startup failures",
			},
		),
	}
}

// collectors returns every collector in the set for bulk registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ComponentsSatisfied,
		m.ComponentsPublished,
		m.ComponentsRetracted,
		m.BindingsActive,
		m.RebindsTotal,
		m.StartupFailures,
	}
}

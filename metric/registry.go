// Package metric provides Prometheus-based metrics collection for component
// lifecycle monitoring. The registry owns both the core lifecycle metrics and
// the underlying Prometheus registry, so embedders can mount the standard
// promhttp handler without pulling in any global registration state.
package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages the registration and lifecycle of metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	mu                 sync.Mutex
	registered         map[string]prometheus.Collector
}

// NewRegistry creates a new metrics registry with core lifecycle metrics
func NewRegistry() *Registry {
	registry := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Metrics:            NewMetrics(),
		registered:         make(map[string]prometheus.Collector),
	}

	for _, c := range registry.Metrics.collectors() {
		registry.prometheusRegistry.MustRegister(c)
	}

	// Go runtime metrics
	registry.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core lifecycle metrics
func (r *Registry) CoreMetrics() *Metrics {
	return r.Metrics
}

// RegisterCollector registers an embedder-specific collector under a name.
// Registering the same name twice is rejected by the Prometheus registry.
func (r *Registry) RegisterCollector(name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.prometheusRegistry.Register(c); err != nil {
		return err
	}
	r.registered[name] = c
	return nil
}

// Unregister removes a previously registered embedder collector
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.registered[name]
	if !exists {
		return false
	}
	delete(r.registered, name)
	return r.prometheusRegistry.Unregister(c)
}

package component

import (
	"log/slog"

	"github.com/c360/beanbridge/metric"
)

// Dependencies provides the external collaborators a descriptor needs.
// Both fields are optional.
type Dependencies struct {
	Logger  *slog.Logger    // Structured logger (can be nil, defaults to slog.Default())
	Metrics *metric.Metrics // Lifecycle metrics (can be nil)
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d != nil && d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(identity string) *slog.Logger {
	return d.GetLogger().With("component", identity)
}

// getMetrics returns the metrics set or nil
func (d *Dependencies) getMetrics() *metric.Metrics {
	if d == nil {
		return nil
	}
	return d.Metrics
}

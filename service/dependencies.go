// Package service implements the deployment-unit lifecycle manager: it
// orchestrates startup and shutdown of a unit's components, listens for
// satisfaction transitions and performs the actual publication and
// retraction of components as services.
package service

import (
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360/beanbridge/component"
	"github.com/c360/beanbridge/container"
	"github.com/c360/beanbridge/metric"
	"github.com/c360/beanbridge/registry"
)

// Dependencies provides all external collaborators the lifecycle manager
// needs. Registry, Container and Components are required; the rest are
// optional.
type Dependencies struct {
	Registry   registry.ServiceRegistry // Live service registry connection
	Container  container.Container      // Managed-bean container
	Components *component.Registry      // Component catalogue for the unit
	NATSConn   *nats.Conn               // NATS connection for event announcements (can be nil)
	Metrics    *metric.Registry         // Metrics registry (can be nil)
	Logger     *slog.Logger             // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

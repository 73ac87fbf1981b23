package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// EventType classifies a component lifecycle event
type EventType string

const (
	// EventSatisfied fires when a component's mandatory dependencies all bind
	EventSatisfied EventType = "satisfied"
	// EventUnsatisfied fires when a mandatory dependency unbinds
	EventUnsatisfied EventType = "unsatisfied"
	// EventPublished fires when a component is registered as a service
	EventPublished EventType = "published"
	// EventRetracted fires when a component's registration is removed
	EventRetracted EventType = "retracted"
)

// Event is a structured lifecycle event that can be published to NATS for
// remote consumption
type Event struct {
	Timestamp string    `json:"timestamp"` // RFC3339 format
	Unit      string    `json:"unit"`
	Component string    `json:"component"`
	Type      EventType `json:"type"`
	Types     []string  `json:"types,omitempty"` // published type names, when relevant
}

// Announcer publishes component lifecycle events. Events are always logged
// via slog; when a NATS connection is present they are additionally published
// to beanbridge.events.<unit>.<type> for real-time consumers.
type Announcer struct {
	unit    string
	nc      *nats.Conn
	logger  *slog.Logger
	enabled bool
}

// NewAnnouncer creates an announcer for a deployment unit. A nil connection
// disables NATS publishing.
func NewAnnouncer(unit string, nc *nats.Conn, logger *slog.Logger) *Announcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		unit:    unit,
		nc:      nc,
		logger:  logger,
		enabled: nc != nil,
	}
}

// Announce records a lifecycle event. Publish failures are logged, never
// propagated; event delivery is observability, not control flow.
func (a *Announcer) Announce(eventType EventType, componentID string, typeNames []string) {
	a.logger.Debug("component lifecycle event",
		"unit", a.unit, "component", componentID, "event", string(eventType))

	if !a.enabled {
		return
	}

	event := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Unit:      a.unit,
		Component: componentID,
		Type:      eventType,
		Types:     typeNames,
	}
	data, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn("failed to marshal lifecycle event", "error", err)
		return
	}

	subject := fmt.Sprintf("beanbridge.events.%s.%s", a.unit, eventType)
	if err := a.nc.Publish(subject, data); err != nil {
		a.logger.Warn("failed to publish lifecycle event", "subject", subject, "error", err)
	}
}

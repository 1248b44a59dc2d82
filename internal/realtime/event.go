// Package realtime fans row-insert events out to connected UI sessions.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventLeadCreated    = "lead.created"
	EventMessageCreated = "message.created"
	eventConnection     = "connection"
	eventPong           = "pong"
)

// Event is a notification for one tenant's sessions
type Event struct {
	Type      string          `json:"type"`
	TenantID  uuid.UUID       `json:"tenant_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent encodes payload into an event
func NewEvent(eventType string, tenantID uuid.UUID, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		TenantID:  tenantID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Publisher delivers events to subscribers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }

package events

import (
	"time"

	"github.com/spec-kit/noc-incidents/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventAnomalyDetected EventType = "anomaly_detected"
)

// Event is emitted by the incident pipeline.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload describes a persisted ticket and the path that
// created it ("window" or "reactive").
type TicketCreatedPayload struct {
	Source string        `json:"source"`
	Ticket domain.Ticket `json:"ticket"`
}

// AnomalyDetectedPayload carries one anomaly window and the batch it came
// from; Scope is "all" or a device name.
type AnomalyDetectedPayload struct {
	Scope  string               `json:"scope"`
	Window domain.AnomalyWindow `json:"window"`
}

package telemetry

import (
	"context"
	"log"
	"time"
)

// AuditRoutingKey is the broker routing key for audit records.
const AuditRoutingKey = "audit.roomloop"

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes a record of host and membership actions.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *int64       `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string `json:"level"`
	Action string `json:"action"`
	Text   string `json:"text"`
	RoomID *int   `json:"room_id,omitempty"`
}

// AuditEntry describes one audited action.
type AuditEntry struct {
	Level     string
	Action    string
	Text      string
	RequestID string
	UserID    *int64
	RoomID    *int
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes the entry. A nil emitter discards it and publish errors are only logged.
func (e *AuditEmitter) Emit(ctx context.Context, entry AuditEntry) {
	if e == nil || e.publisher == nil {
		return
	}
	if entry.Level == "" {
		entry.Level = "INFO"
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     entry.RequestID,
		UserID:        entry.UserID,
		Payload: AuditPayload{
			Level:  entry.Level,
			Action: entry.Action,
			Text:   entry.Text,
			RoomID: entry.RoomID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: action=%s request_id=%s: %v", entry.Action, entry.RequestID, err)
	}
}

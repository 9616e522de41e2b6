package observability

import "time"

// EventEnvelope wraps realtime lifecycle events published to the broker.
type EventEnvelope struct {
	EventType  string `json:"event_type"`
	EventName  string `json:"event_name"`
	OccurredAt string `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

// NewEventEnvelope stamps a lifecycle event with the current time.
func NewEventEnvelope(eventType, eventName string, payload any) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

package ws

import (
	"time"

	"roomloop/internal/observability"
)

const (
	eventWSConnect    = "ws_connect"
	eventWSDisconnect = "ws_disconnect"
	eventWSError      = "ws_error"
)

// ConnInfo identifies a connection in lifecycle events and fan-out exclusion.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	RoomID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func (i ConnInfo) lifecycle(event, reason string) observability.EventEnvelope {
	var duration int64
	if event != eventWSConnect && !i.ConnectedAt.IsZero() {
		duration = time.Since(i.ConnectedAt).Milliseconds()
	}
	return observability.NewEventEnvelope("ws_events", event, map[string]any{
		"ws": map[string]any{
			"kind":        "room",
			"resource_id": i.RoomID,
			"event":       event,
			"conn_id":     i.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]any{
			"user_id":   i.UserID,
			"username":  i.Username,
			"device_id": i.DeviceID,
			"ip":        i.IP,
		},
	})
}

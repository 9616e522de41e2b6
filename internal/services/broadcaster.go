package services

import (
	"context"
	"time"

	"roomloop/internal/models"
)

// Broadcaster delivers live events to connected clients. Delivery is best effort and
// must not block the caller.
type Broadcaster interface {
	ToRoom(ctx context.Context, roomID int, event models.Event)
	ToUser(ctx context.Context, userID int, event models.Event)
	DetachUser(ctx context.Context, roomID int, userID int)
}

// Clock returns the current time.
type Clock func() time.Time

type noopBroadcaster struct{}

func (noopBroadcaster) ToRoom(context.Context, int, models.Event) {}
func (noopBroadcaster) ToUser(context.Context, int, models.Event) {}
func (noopBroadcaster) DetachUser(context.Context, int, int) {}

func orNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

func orNow(now Clock) Clock {
	if now == nil {
		return time.Now
	}
	return now
}

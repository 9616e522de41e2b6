package ws

import (
	"context"
	"encoding/json"
	"log"

	"roomloop/internal/models"
)

// echoed lists room events that are also delivered back to the connection that caused
// them. Every other room event skips its origin.
var echoed = map[models.EventType]bool{
	models.EventRoomStatusChange: true,
}

// Origin identifies who triggered a mutation so their own connections can be skipped.
type Origin struct {
	UserID int
	ConnID string
}

type originKey struct{}

// ContextWithOrigin records the acting user and, when known, their connection id.
func ContextWithOrigin(ctx context.Context, userID int, connID string) context.Context {
	return context.WithValue(ctx, originKey{}, Origin{UserID: userID, ConnID: connID})
}

// OriginFromContext returns the origin recorded by ContextWithOrigin.
func OriginFromContext(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}

// Forwarder copies frames to hubs running in other processes.
type Forwarder interface {
	Forward(ctx context.Context, env Envelope)
}

// Broadcaster delivers domain events through the hub and, when configured, to peers.
type Broadcaster struct {
	hub     *Hub
	forward Forwarder
}

// NewBroadcaster builds a broadcaster. forward may be nil for single-instance setups.
func NewBroadcaster(hub *Hub, forward Forwarder) *Broadcaster {
	return &Broadcaster{hub: hub, forward: forward}
}

func (b *Broadcaster) ToRoom(ctx context.Context, roomID int, event models.Event) {
	frame, ok := encodeEvent(RoomChannel(roomID), event)
	if !ok {
		return
	}
	if !echoed[event.Type] {
		if origin, ok := OriginFromContext(ctx); ok {
			frame.ExcludeUser = origin.UserID
			frame.ExcludeConn = origin.ConnID
		}
	}
	b.dispatch(ctx, frame)
}

func (b *Broadcaster) ToUser(ctx context.Context, userID int, event models.Event) {
	frame, ok := encodeEvent(UserChannel(userID), event)
	if !ok {
		return
	}
	b.dispatch(ctx, frame)
}

func (b *Broadcaster) DetachUser(ctx context.Context, roomID int, userID int) {
	b.hub.DetachUser(roomID, userID)
	if b.forward != nil {
		b.forward.Forward(ctx, Envelope{Op: opDetach, Channel: RoomChannel(roomID), UserID: userID})
	}
}

func (b *Broadcaster) dispatch(ctx context.Context, frame Frame) {
	b.hub.Deliver(frame)
	if b.forward != nil {
		b.forward.Forward(ctx, envelopeOf(frame))
	}
}

func encodeEvent(ch Channel, event models.Event) (Frame, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws fanout: encode %s for %s: %v", event.Type, ch, err)
		return Frame{}, false
	}
	return Frame{Channel: ch, EventType: string(event.Type), Payload: payload}, true
}

package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomloop/internal/models"
)

type recordingForwarder struct {
	mu   sync.Mutex
	sent []Envelope
}

func (r *recordingForwarder) Forward(_ context.Context, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, env)
}

func decodeEvent(t *testing.T, raw string) models.Event {
	t.Helper()
	var event models.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func roomOfThree(t *testing.T) (*Hub, *fakeConn, *fakeConn, *fakeConn) {
	t.Helper()
	hub := NewHub(0)
	a, connA := register(hub, 5, "a")
	b, connB := register(hub, 5, "b")
	c, connC := register(hub, 6, "c")
	for _, client := range []*Client{a, b, c} {
		hub.Subscribe(client, RoomChannel(1))
	}
	return hub, connA, connB, connC
}

func TestToRoomSkipsActingUser(t *testing.T) {
	hub, connA, connB, connC := roomOfThree(t)
	forward := &recordingForwarder{}
	b := NewBroadcaster(hub, forward)

	ctx := ContextWithOrigin(context.Background(), 5, "")
	b.ToRoom(ctx, 1, models.Event{Type: models.EventNewMessage, RoomID: 1, Data: models.Message{ID: 9, Content: "hi"}})

	event := decodeEvent(t, recv(t, connC))
	assert.Equal(t, models.EventNewMessage, event.Type)
	assert.Equal(t, 1, event.RoomID)
	assertSilent(t, connA)
	assertSilent(t, connB)

	require.Len(t, forward.sent, 1)
	assert.Equal(t, opDeliver, forward.sent[0].Op)
	assert.Equal(t, 5, forward.sent[0].ExcludeUser)
	assert.Equal(t, RoomChannel(1), forward.sent[0].Channel)
}

func TestToRoomSkipsOnlyOriginConnection(t *testing.T) {
	hub, connA, connB, connC := roomOfThree(t)
	b := NewBroadcaster(hub, nil)

	ctx := ContextWithOrigin(context.Background(), 5, "a")
	b.ToRoom(ctx, 1, models.Event{Type: models.EventRoomReaction, RoomID: 1})

	recv(t, connB)
	recv(t, connC)
	assertSilent(t, connA)
}

func TestStatusChangeEchoesToSender(t *testing.T) {
	hub, connA, connB, connC := roomOfThree(t)
	b := NewBroadcaster(hub, nil)

	ctx := ContextWithOrigin(context.Background(), 5, "a")
	b.ToRoom(ctx, 1, models.Event{Type: models.EventRoomStatusChange, RoomID: 1, Data: models.RoomStatusChange{RoomID: 1, Action: models.StatusActionClosed}})

	for _, conn := range []*fakeConn{connA, connB, connC} {
		assert.Equal(t, models.EventRoomStatusChange, decodeEvent(t, recv(t, conn)).Type)
	}
}

func TestToRoomWithoutOriginReachesEveryone(t *testing.T) {
	hub, connA, connB, connC := roomOfThree(t)
	b := NewBroadcaster(hub, nil)

	b.ToRoom(context.Background(), 1, models.Event{Type: models.EventNewMessage, RoomID: 1})
	for _, conn := range []*fakeConn{connA, connB, connC} {
		recv(t, conn)
	}
}

func TestToUserAndDetach(t *testing.T) {
	hub := NewHub(0)
	client, conn := register(hub, 5, "a")
	hub.Subscribe(client, UserChannel(5))
	hub.Subscribe(client, RoomChannel(3))
	forward := &recordingForwarder{}
	b := NewBroadcaster(hub, forward)

	ctx := ContextWithOrigin(context.Background(), 5, "a")
	b.ToUser(ctx, 5, models.Event{Type: models.EventNewNotification, Data: models.NewNotification{UnreadCount: 2}})
	assert.Equal(t, models.EventNewNotification, decodeEvent(t, recv(t, conn)).Type)

	b.DetachUser(ctx, 3, 5)
	assert.Zero(t, hub.Subscribers(RoomChannel(3)))
	assert.Equal(t, 1, hub.Subscribers(UserChannel(5)))

	require.Len(t, forward.sent, 2)
	assert.Equal(t, opDetach, forward.sent[1].Op)
	assert.Equal(t, 5, forward.sent[1].UserID)
}

func TestOriginFromContext(t *testing.T) {
	_, ok := OriginFromContext(context.Background())
	assert.False(t, ok)

	origin, ok := OriginFromContext(ContextWithOrigin(context.Background(), 3, "c-1"))
	require.True(t, ok)
	assert.Equal(t, Origin{UserID: 3, ConnID: "c-1"}, origin)
}

package ws

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeEnvelope(t *testing.T, env Envelope) []byte {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return data
}

func TestRelayAppliesPeerEnvelopes(t *testing.T) {
	hub := NewHub(0)
	a, connA := register(hub, 5, "a")
	c, connC := register(hub, 6, "c")
	hub.Subscribe(a, RoomChannel(1))
	hub.Subscribe(c, RoomChannel(1))
	relay := NewRelay(nil, hub)

	relay.apply(encodeEnvelope(t, Envelope{
		Instance:    "peer",
		Op:          opDeliver,
		Channel:     RoomChannel(1),
		EventType:   "new_message",
		Payload:     json.RawMessage(`{"type":"new_message"}`),
		ExcludeUser: 5,
	}))
	assert.JSONEq(t, `{"type":"new_message"}`, recv(t, connC))
	assertSilent(t, connA)

	relay.apply(encodeEnvelope(t, Envelope{Instance: "peer", Op: opDetach, Channel: RoomChannel(1), UserID: 6}))
	assert.Equal(t, 1, hub.Subscribers(RoomChannel(1)))
}

func TestRelayIgnoresOwnAndMalformedEnvelopes(t *testing.T) {
	hub := NewHub(0)
	a, connA := register(hub, 5, "a")
	hub.Subscribe(a, RoomChannel(1))
	relay := NewRelay(nil, hub)

	relay.apply(encodeEnvelope(t, Envelope{Instance: relay.instance, Op: opDeliver, Channel: RoomChannel(1), Payload: json.RawMessage(`{}`)}))
	relay.apply([]byte("{not json"))
	relay.apply(encodeEnvelope(t, Envelope{Instance: "peer", Op: "explode", Channel: RoomChannel(1)}))

	assertSilent(t, connA)
	assert.Equal(t, 1, hub.Subscribers(RoomChannel(1)))
}

func TestRelayAcrossInstances(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", url, err)
	}
	defer client.Close()

	local := NewHub(0)
	remote := NewHub(0)
	subscriber, conn := register(remote, 6, "remote")
	remote.Subscribe(subscriber, RoomChannel(4))

	sender := NewRelay(client, local)
	receiver := NewRelay(client, remote)
	go func() { _ = receiver.Run(ctx) }()

	frame := Frame{Channel: RoomChannel(4), EventType: "room_reaction", Payload: []byte(`{"type":"room_reaction"}`)}
	require.Eventually(t, func() bool {
		sender.Forward(ctx, envelopeOf(frame))
		select {
		case data := <-conn.frames:
			return string(data) == `{"type":"room_reaction"}`
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 100*time.Millisecond)
}

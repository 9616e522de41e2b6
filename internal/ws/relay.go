package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	relayTopic = "roomloop:fanout"
	opDeliver  = "deliver"
	opDetach   = "detach"
)

// Envelope carries a fan-out operation between instances.
type Envelope struct {
	Instance    string          `json:"instance"`
	Op          string          `json:"op"`
	Channel     Channel         `json:"channel"`
	EventType   string          `json:"event_type,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	UserID      int             `json:"user_id,omitempty"`
	ExcludeUser int             `json:"exclude_user,omitempty"`
	ExcludeConn string          `json:"exclude_conn,omitempty"`
}

func envelopeOf(f Frame) Envelope {
	return Envelope{
		Op:          opDeliver,
		Channel:     f.Channel,
		EventType:   f.EventType,
		Payload:     f.Payload,
		ExcludeUser: f.ExcludeUser,
		ExcludeConn: f.ExcludeConn,
	}
}

// Relay mirrors fan-out operations over Redis pub/sub so every instance reaches its
// own connections.
type Relay struct {
	client   *redis.Client
	hub      *Hub
	instance string
	topic    string
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRelay binds a relay to the local hub.
func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{client: client, hub: hub, instance: uuid.NewString(), topic: relayTopic}
}

// Forward publishes env to peers. Failures are logged and dropped.
func (r *Relay) Forward(ctx context.Context, env Envelope) {
	env.Instance = r.instance
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("ws relay: encode: %v", err)
		return
	}
	if err := r.client.Publish(ctx, r.topic, data).Err(); err != nil {
		log.Printf("ws relay: publish to %s: %v", r.topic, err)
	}
}

// Run consumes peer envelopes until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.topic)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.topic, err)
	}
	log.Printf("ws relay: listening on %s as %s", r.topic, r.instance)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.apply([]byte(msg.Payload))
		}
	}
}

func (r *Relay) apply(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("ws relay: decode: %v", err)
		return
	}
	if env.Instance == r.instance {
		return
	}
	switch env.Op {
	case opDeliver:
		r.hub.Deliver(Frame{
			Channel:     env.Channel,
			EventType:   env.EventType,
			Payload:     env.Payload,
			ExcludeUser: env.ExcludeUser,
			ExcludeConn: env.ExcludeConn,
		})
	case opDetach:
		r.hub.DetachUser(env.Channel.ID, env.UserID)
	default:
		log.Printf("ws relay: unknown op %q", env.Op)
	}
}

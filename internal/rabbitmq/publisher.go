package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"roomloop/internal/observability"
	"roomloop/internal/telemetry"
)

// ErrChannelClosed is returned once the broker has closed the publishing channel.
var ErrChannelClosed = errors.New("rabbitmq: channel closed")

// Publisher publishes audit records and realtime lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
	Close() error
}

// Options configures the broker connection.
type Options struct {
	URL      string
	Exchange string
	AppID    string
}

// NewPublisher connects to RabbitMQ and declares a durable topic exchange. Any failure
// falls back to a publisher that only logs, so the service keeps running without a broker.
func NewPublisher(opts Options) Publisher {
	if opts.URL == "" {
		return noop("empty amqp url")
	}

	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return noop(err.Error())
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return noop(err.Error())
	}
	if err := ch.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return noop(err.Error())
	}

	p := &amqpPublisher{conn: conn, ch: ch, exchange: opts.Exchange, appID: opts.AppID}
	go p.watch(ch.NotifyClose(make(chan *amqp.Error, 1)))
	log.Printf("rabbitmq: connected exchange=%s", opts.Exchange)
	return p
}

type amqpPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	appID    string
	closed   bool
}

func (p *amqpPublisher) watch(closes <-chan *amqp.Error) {
	if err, ok := <-closes; ok && err != nil {
		log.Printf("rabbitmq: channel closed by broker: %v", err)
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return p.PublishWithHeaders(ctx, routingKey, event, nil)
}

func (p *amqpPublisher) PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: encode %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrChannelClosed
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        p.appID,
		Type:         eventType(event),
		Timestamp:    time.Now().UTC(),
		Headers:      headerTable(headers),
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", routingKey, err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	reason string
}

func noop(reason string) noopPublisher {
	log.Printf("rabbitmq: disabled, using noop: %s", reason)
	return noopPublisher{reason: reason}
}

func (n noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return n.PublishWithHeaders(ctx, routingKey, event, nil)
}

func (noopPublisher) PublishWithHeaders(_ context.Context, routingKey string, event any, headers map[string]string) error {
	log.Printf("rabbitmq: noop publish routing_key=%s type=%s request_id=%s", routingKey, eventType(event), headers["x-request-id"])
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// Describe reports the publisher mode for startup logging.
func Describe(p Publisher) string {
	switch publisher := p.(type) {
	case *amqpPublisher:
		return "amqp exchange=" + publisher.exchange
	case noopPublisher:
		return "noop reason=" + publisher.reason
	default:
		return "unknown"
	}
}

func eventType(event any) string {
	switch e := event.(type) {
	case telemetry.AuditEnvelope:
		return e.EventType
	case *telemetry.AuditEnvelope:
		return e.EventType
	case observability.EventEnvelope:
		return e.EventType + "." + e.EventName
	case *observability.EventEnvelope:
		return e.EventType + "." + e.EventName
	default:
		return ""
	}
}

func headerTable(headers map[string]string) amqp.Table {
	if len(headers) == 0 {
		return nil
	}
	table := make(amqp.Table, len(headers))
	for key, value := range headers {
		table[key] = value
	}
	return table
}

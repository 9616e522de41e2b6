package observability

import (
	"context"
	"sync"
)

// Publisher sends lifecycle events to the message broker with transport headers.
type Publisher interface {
	PublishWithHeaders(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

var (
	publisherMu      sync.RWMutex
	defaultPublisher Publisher
)

func SetPublisher(publisher Publisher) {
	publisherMu.Lock()
	defer publisherMu.Unlock()
	defaultPublisher = publisher
}

// PublishEvent sends an event through the configured publisher. It is a no-op until
// SetPublisher is called.
func PublishEvent(ctx context.Context, routingKey string, message any, headers map[string]string) error {
	publisherMu.RLock()
	publisher := defaultPublisher
	publisherMu.RUnlock()
	if publisher == nil {
		return nil
	}

	err := publisher.PublishWithHeaders(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

package messaging

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	contractsv1 "electionledger/contracts/gen/events/v1"
)

var ErrBusClosed = errors.New("event bus is closed")

// Bus is the in-process event bus used by the outbox relay and the reward
// payer. Brokers are recorded for the external transport but not dialed.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan contractsv1.Envelope
	brokers     []string
	closed      bool
	logger      *slog.Logger
}

func NewBus(brokers []string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]chan contractsv1.Envelope),
		brokers:     append([]string(nil), brokers...),
		logger:      logger,
	}
}

// Publish fans the event out to the topic's subscribers. A topic without
// subscribers is not an error.
func (b *Bus) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	_, err := b.Deliver(ctx, topic, event)
	return err
}

// Deliver validates the envelope, fans it out and returns how many
// subscribers accepted it. A full subscriber buffer drops the event for that
// subscriber only.
func (b *Bus) Deliver(ctx context.Context, topic string, event contractsv1.Envelope) (int, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return 0, ErrBusClosed
	}
	subs := append([]chan contractsv1.Envelope(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case sub <- event:
			delivered++
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}

	b.logger.Info("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"delivered", delivered,
	)
	return delivered, nil
}

// Subscribe runs handler for every event published to topic until ctx ends.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	ch := make(chan contractsv1.Envelope, 128)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (b *Bus) Brokers() []string {
	return append([]string(nil), b.brokers...)
}

// Close rejects further publishes and subscriptions. Running subscribers stop
// with their own contexts.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bus) removeSubscriber(topic string, target chan contractsv1.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan contractsv1.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

// Topics carry one event type each.
const (
	TopicOrdersPlaced           = "orders.placed"
	TopicPaymentsCaptured       = "payments.captured"
	TopicPaymentsFailed         = "payments.failed"
	TopicOrdersVerified         = "orders.verified"
	TopicOrdersFulfillment      = "orders.fulfillment"
	TopicOrdersCancelled        = "orders.cancelled"
	TopicVerificationsSubmitted = "verifications.submitted"
	TopicVerificationsReviewed  = "verifications.reviewed"
)

var topicByEvent = map[string]string{
	entity.EventOrderPlaced:           TopicOrdersPlaced,
	entity.EventPaymentCaptured:       TopicPaymentsCaptured,
	entity.EventPaymentFailed:         TopicPaymentsFailed,
	entity.EventTransactionVerified:   TopicOrdersVerified,
	entity.EventFulfillmentUpdated:    TopicOrdersFulfillment,
	entity.EventOrderCancelled:        TopicOrdersCancelled,
	entity.EventVerificationSubmitted: TopicVerificationsSubmitted,
	entity.EventVerificationReviewed:  TopicVerificationsReviewed,
}

// Handler processes one message payload.
type Handler func(ctx context.Context, payload []byte) error

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
// Subscribe returns once the subscription is live and delivers messages to
// handler on a background goroutine until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, groupID string, handler Handler) error
}

// Broker is a Publisher and Subscriber that owns connections.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// TopicFor returns the topic an event type is published on.
func TopicFor(eventType string) (string, bool) {
	t, ok := topicByEvent[eventType]
	return t, ok
}

// EventTypeFor is the inverse of TopicFor.
func EventTypeFor(topic string) (string, bool) {
	for eventType, t := range topicByEvent {
		if t == topic {
			return eventType, true
		}
	}
	return "", false
}

// Decode turns a payload received on topic back into its typed event.
func Decode(topic string, payload []byte) (entity.Event, error) {
	eventType, ok := EventTypeFor(topic)
	if !ok {
		return nil, fmt.Errorf("no event type for topic %s", topic)
	}
	return entity.DecodeEvent(entity.EventStoreRecord{EventType: eventType, Payload: json.RawMessage(payload)})
}

// PublishEvents publishes each committed event to its topic, keyed by key.
// State is already persisted, so failures are logged rather than returned.
func PublishEvents(ctx context.Context, pub Publisher, key string, events ...entity.Event) {
	for _, e := range events {
		topic, ok := TopicFor(e.EventType())
		if !ok {
			slog.Warn("No topic for event", "event_type", e.EventType())
			continue
		}
		if err := pub.PublishEvent(ctx, topic, key, e); err != nil {
			slog.Error("Failed to publish event", "topic", topic, "key", key, "err", err)
		}
	}
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) PublishEvent(context.Context, string, string, any) error { return nil }

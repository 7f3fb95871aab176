package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stream types recorded alongside every event.
const (
	StreamOrder        = "order"
	StreamVerification = "verification"
)

// EventStoreRecord represents an event stored in an aggregate stream.
type EventStoreRecord struct {
	ID         string          `json:"id"`
	StreamID   string          `json:"stream_id"`
	StreamType string          `json:"stream_type"`
	Version    int             `json:"version"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Event represents a domain event.
type Event interface {
	EventType() string
}

// Aggregate represents a domain aggregate root rebuilt from its stream.
type Aggregate interface {
	GetAggregateID() string
	GetVersion() int
	ApplyEvent(event Event) error
}

// AggregateBase provides a basic implementation for an aggregate.
type AggregateBase struct {
	ID      string
	Version int
}

func (a *AggregateBase) GetAggregateID() string {
	return a.ID
}

func (a *AggregateBase) GetVersion() int {
	return a.Version
}

// DecodeEvent turns a stored record back into its typed event.
func DecodeEvent(rec EventStoreRecord) (Event, error) {
	var e Event
	switch rec.EventType {
	case EventOrderPlaced:
		e = &OrderPlaced{}
	case EventPaymentCaptured:
		e = &PaymentCaptured{}
	case EventPaymentFailed:
		e = &PaymentFailed{}
	case EventTransactionVerified:
		e = &TransactionVerified{}
	case EventFulfillmentUpdated:
		e = &FulfillmentUpdated{}
	case EventOrderCancelled:
		e = &OrderCancelled{}
	case EventVerificationSubmitted:
		e = &VerificationSubmitted{}
	case EventVerificationReviewed:
		e = &VerificationReviewed{}
	default:
		return nil, fmt.Errorf("unknown event type in stream: %s", rec.EventType)
	}
	if err := json.Unmarshal(rec.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", rec.EventType, err)
	}
	return derefEvent(e), nil
}

// derefEvent returns the value form of a decoded event so type switches in
// ApplyEvent only need to handle values.
func derefEvent(e Event) Event {
	switch v := e.(type) {
	case *OrderPlaced:
		return *v
	case *PaymentCaptured:
		return *v
	case *PaymentFailed:
		return *v
	case *TransactionVerified:
		return *v
	case *FulfillmentUpdated:
		return *v
	case *OrderCancelled:
		return *v
	case *VerificationSubmitted:
		return *v
	case *VerificationReviewed:
		return *v
	}
	return e
}

package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placedOrder(t *testing.T) *OrderAggregate {
	t.Helper()
	agg := NewOrderAggregate(Order{ID: "order-1"})
	err := agg.ApplyEvent(OrderPlaced{
		OrderID:     "order-1",
		BuyerID:     "buyer-1",
		Items:       []OrderItem{{ProductID: "p1", Name: "Phone", Price: d("999"), Quantity: 2}},
		Subtotal:    d("1998"),
		ShippingFee: d("150"),
		Commission:  d("60"),
		Total:       d("2148"),
		PlacedAt:    time.Now(),
	})
	require.NoError(t, err)
	return agg
}

func TestOrderAggregate_HappyPath(t *testing.T) {
	agg := placedOrder(t)
	assert.Equal(t, OrderPending, agg.Order.Status)
	assert.Equal(t, PaymentPending, agg.Order.PaymentStatus)
	assert.Equal(t, 1, agg.GetVersion())

	require.NoError(t, agg.ApplyEvent(PaymentCaptured{OrderID: "order-1", Amount: d("2148"), CapturedAt: time.Now()}))
	assert.Equal(t, OrderAwaitingVerification, agg.Order.Status)
	assert.Equal(t, PaymentCompleted, agg.Order.PaymentStatus)

	require.NoError(t, agg.ApplyEvent(TransactionVerified{
		OrderID:        "order-1",
		VerifiedBy:     "admin-1",
		TrackingNumber: "LBC-123",
		SellerAmount:   d("2088"),
		VerifiedAt:     time.Now(),
	}))
	assert.Equal(t, OrderCompleted, agg.Order.Status)
	assert.Equal(t, FulfillmentShipped, agg.Order.FulfillmentStatus)
	require.NotNil(t, agg.Order.SellerAmount)
	assert.True(t, agg.Order.SellerAmount.Equal(d("2088")))

	require.NoError(t, agg.ApplyEvent(FulfillmentUpdated{OrderID: "order-1", Status: FulfillmentDelivered, UpdatedAt: time.Now()}))
	assert.Equal(t, FulfillmentDelivered, agg.Order.FulfillmentStatus)
	assert.Equal(t, 4, agg.Order.Version)
}

func TestOrderAggregate_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare []Event
		event   Event
	}{
		{
			name:  "verify before payment",
			event: TransactionVerified{OrderID: "order-1", VerifiedAt: time.Now()},
		},
		{
			name:    "pay a cancelled order",
			prepare: []Event{OrderCancelled{OrderID: "order-1", CancelledAt: time.Now()}},
			event:   PaymentCaptured{OrderID: "order-1", CapturedAt: time.Now()},
		},
		{
			name:    "cancel after payment",
			prepare: []Event{PaymentCaptured{OrderID: "order-1", CapturedAt: time.Now()}},
			event:   OrderCancelled{OrderID: "order-1", CancelledAt: time.Now()},
		},
		{
			name: "verify twice",
			prepare: []Event{
				PaymentCaptured{OrderID: "order-1", CapturedAt: time.Now()},
				TransactionVerified{OrderID: "order-1", VerifiedAt: time.Now()},
			},
			event: TransactionVerified{OrderID: "order-1", VerifiedAt: time.Now()},
		},
		{
			name: "fulfillment goes backwards",
			prepare: []Event{
				PaymentCaptured{OrderID: "order-1", CapturedAt: time.Now()},
				TransactionVerified{OrderID: "order-1", TrackingNumber: "T-1", VerifiedAt: time.Now()},
			},
			event: FulfillmentUpdated{OrderID: "order-1", Status: FulfillmentProcessing, UpdatedAt: time.Now()},
		},
		{
			name:  "placed twice",
			event: OrderPlaced{OrderID: "order-1", PlacedAt: time.Now()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := placedOrder(t)
			for _, e := range tt.prepare {
				require.NoError(t, agg.ApplyEvent(e))
			}
			version := agg.GetVersion()
			err := agg.ApplyEvent(tt.event)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, version, agg.GetVersion())
		})
	}
}

func TestOrderAggregate_PaymentFailedCancels(t *testing.T) {
	agg := placedOrder(t)
	require.NoError(t, agg.ApplyEvent(PaymentFailed{OrderID: "order-1", Reason: "declined", FailedAt: time.Now()}))

	assert.Equal(t, OrderStatusCancelled, agg.Order.Status)
	assert.Equal(t, PaymentStatusFailed, agg.Order.PaymentStatus)
	assert.Equal(t, "declined", agg.Order.CancelReason)
}

func TestOrderAggregate_Rehydrate(t *testing.T) {
	events := []Event{
		OrderPlaced{OrderID: "order-1", BuyerID: "buyer-1", Total: d("2148"), Commission: d("60"), PlacedAt: time.Now()},
		PaymentCaptured{OrderID: "order-1", Amount: d("2148"), CapturedAt: time.Now()},
	}
	var records []EventStoreRecord
	for i, e := range events {
		payload, err := json.Marshal(e)
		require.NoError(t, err)
		records = append(records, EventStoreRecord{StreamID: "order-1", Version: i + 1, EventType: e.EventType(), Payload: payload})
	}

	agg := NewOrderAggregate(Order{ID: "order-1"})
	require.NoError(t, agg.Rehydrate(records))

	assert.Equal(t, 2, agg.GetVersion())
	assert.Equal(t, OrderAwaitingVerification, agg.Order.Status)
	assert.True(t, agg.Order.Total.Equal(d("2148")))
}

func TestDecodeEvent_Unknown(t *testing.T) {
	_, err := DecodeEvent(EventStoreRecord{EventType: "Nope", Payload: []byte("{}")})
	assert.Error(t, err)
}

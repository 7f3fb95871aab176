package entity

import (
	"fmt"
)

// OrderAggregate manages the state of an Order by replaying events.
type OrderAggregate struct {
	AggregateBase
	Order Order
}

// NewOrderAggregate wraps an existing order snapshot. The aggregate version
// is the order version so new events append after it.
func NewOrderAggregate(order Order) *OrderAggregate {
	return &OrderAggregate{
		AggregateBase: AggregateBase{ID: order.ID, Version: order.Version},
		Order:         order,
	}
}

// ApplyEvent checks the transition table and mutates the order.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	o := &a.Order
	switch e := e.(type) {
	case OrderPlaced:
		if a.Version != 0 {
			return &TransitionError{Entity: "order", From: string(o.Status), To: string(OrderPending)}
		}
		o.ID = e.OrderID
		o.BuyerID = e.BuyerID
		o.Buyer = e.Buyer
		o.Items = e.Items
		o.ShippingAddress = e.ShippingAddress
		o.PaymentMethod = e.PaymentMethod
		o.Subtotal = e.Subtotal
		o.ShippingFee = e.ShippingFee
		o.Commission = e.Commission
		o.Total = e.Total
		o.Status = OrderPending
		o.PaymentStatus = PaymentPending
		o.FulfillmentStatus = FulfillmentUnfulfilled
		o.CreatedAt = e.PlacedAt
		o.UpdatedAt = e.PlacedAt
	case PaymentCaptured:
		if o.Status != OrderPending {
			return &TransitionError{Entity: "order", From: string(o.Status), To: string(OrderAwaitingVerification)}
		}
		o.Status = OrderAwaitingVerification
		o.PaymentStatus = PaymentCompleted
		o.UpdatedAt = e.CapturedAt
	case PaymentFailed:
		if o.Status != OrderPending {
			return &TransitionError{Entity: "order", From: string(o.Status), To: string(OrderStatusCancelled)}
		}
		o.Status = OrderStatusCancelled
		o.PaymentStatus = PaymentStatusFailed
		o.CancelReason = e.Reason
		o.UpdatedAt = e.FailedAt
	case OrderCancelled:
		if o.Status != OrderPending {
			return &TransitionError{Entity: "order", From: string(o.Status), To: string(OrderStatusCancelled)}
		}
		o.Status = OrderStatusCancelled
		o.CancelReason = e.Reason
		o.UpdatedAt = e.CancelledAt
	case TransactionVerified:
		if o.Status != OrderAwaitingVerification || o.PaymentStatus != PaymentCompleted {
			return &TransitionError{Entity: "order", From: string(o.Status), To: string(OrderCompleted)}
		}
		amount := e.SellerAmount
		verifiedAt := e.VerifiedAt
		o.Status = OrderCompleted
		o.SellerAmount = &amount
		o.AdminNotes = e.AdminNotes
		o.TrackingNumber = e.TrackingNumber
		o.VerifiedBy = e.VerifiedBy
		o.VerifiedAt = &verifiedAt
		o.FulfillmentStatus = FulfillmentProcessing
		if e.TrackingNumber != "" {
			o.FulfillmentStatus = FulfillmentShipped
		}
		o.UpdatedAt = e.VerifiedAt
	case FulfillmentUpdated:
		if o.Status != OrderCompleted || e.Status.rank() <= o.FulfillmentStatus.rank() {
			return &TransitionError{Entity: "fulfillment", From: string(o.FulfillmentStatus), To: string(e.Status)}
		}
		o.FulfillmentStatus = e.Status
		if e.TrackingNumber != "" {
			o.TrackingNumber = e.TrackingNumber
		}
		o.UpdatedAt = e.UpdatedAt
	default:
		return fmt.Errorf("unknown event type for OrderAggregate: %s", e.EventType())
	}
	a.Version++
	o.Version = a.Version
	return nil
}

// Rehydrate rebuilds the aggregate from a list of records.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		e, err := DecodeEvent(rec)
		if err != nil {
			return err
		}
		if err := a.ApplyEvent(e); err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}

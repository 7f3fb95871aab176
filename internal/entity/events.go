package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type names as stored in the event store and used for topic routing.
const (
	EventOrderPlaced           = "OrderPlaced"
	EventPaymentCaptured       = "PaymentCaptured"
	EventPaymentFailed         = "PaymentFailed"
	EventTransactionVerified   = "TransactionVerified"
	EventFulfillmentUpdated    = "FulfillmentUpdated"
	EventOrderCancelled        = "OrderCancelled"
	EventVerificationSubmitted = "VerificationSubmitted"
	EventVerificationReviewed  = "VerificationReviewed"
)

// OrderPlaced is emitted when an order is created from a cart.
type OrderPlaced struct {
	OrderID         string          `json:"order_id"`
	BuyerID         string          `json:"buyer_id"`
	Buyer           BuyerContact    `json:"buyer"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Commission      decimal.Decimal `json:"commission"`
	Total           decimal.Decimal `json:"total"`
	PlacedAt        time.Time       `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return EventOrderPlaced }

// PaymentCaptured is emitted when the gateway captures funds for an order.
// The funds stay in escrow until the transaction is verified.
type PaymentCaptured struct {
	OrderID    string          `json:"order_id"`
	BuyerID    string          `json:"buyer_id"`
	PaymentID  string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference"`
	CapturedAt time.Time       `json:"captured_at"`
}

func (e PaymentCaptured) EventType() string { return EventPaymentCaptured }

// PaymentFailed is emitted when the gateway declines a payment.
type PaymentFailed struct {
	OrderID   string    `json:"order_id"`
	BuyerID   string    `json:"buyer_id"`
	PaymentID string    `json:"payment_id"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}

func (e PaymentFailed) EventType() string { return EventPaymentFailed }

// TransactionVerified is emitted when an admin releases escrowed funds.
type TransactionVerified struct {
	OrderID        string          `json:"order_id"`
	BuyerID        string          `json:"buyer_id"`
	VerifiedBy     string          `json:"verified_by"`
	AdminNotes     string          `json:"admin_notes"`
	TrackingNumber string          `json:"tracking_number"`
	SellerAmount   decimal.Decimal `json:"seller_amount"`
	VerifiedAt     time.Time       `json:"verified_at"`
}

func (e TransactionVerified) EventType() string { return EventTransactionVerified }

// FulfillmentUpdated is emitted when shipping progresses.
type FulfillmentUpdated struct {
	OrderID        string            `json:"order_id"`
	BuyerID        string            `json:"buyer_id"`
	Status         FulfillmentStatus `json:"status"`
	TrackingNumber string            `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (e FulfillmentUpdated) EventType() string { return EventFulfillmentUpdated }

// OrderCancelled is emitted if an unpaid order is cancelled, releasing its stock.
type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	BuyerID     string    `json:"buyer_id"`
	CancelledBy string    `json:"cancelled_by"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (e OrderCancelled) EventType() string { return EventOrderCancelled }

// VerificationSubmitted is emitted when a user applies to become a seller.
type VerificationSubmitted struct {
	VerificationID string    `json:"verification_id"`
	UserID         string    `json:"user_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

func (e VerificationSubmitted) EventType() string { return EventVerificationSubmitted }

// VerificationReviewed is emitted when an admin approves or rejects a request.
type VerificationReviewed struct {
	VerificationID string             `json:"verification_id"`
	UserID         string             `json:"user_id"`
	ReviewerID     string             `json:"reviewer_id"`
	Status         VerificationStatus `json:"status"`
	Note           string             `json:"note"`
	ReviewedAt     time.Time          `json:"reviewed_at"`
}

func (e VerificationReviewed) EventType() string { return EventVerificationReviewed }

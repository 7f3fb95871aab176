package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the marketplace role stored on a user.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// User is a marketplace account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CanSell reports whether the user may list products as a seller.
func (u *User) CanSell() bool {
	return u.IsVerified && (u.Role == RoleSeller || u.Role == RoleAdmin)
}

// NormalizeEmail lower-cases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Condition grades a second-hand device.
type Condition string

const (
	ConditionLikeNew   Condition = "Like New"
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
)

// Valid reports whether c is one of the known grades.
func (c Condition) Valid() bool {
	switch c {
	case ConditionLikeNew, ConditionExcellent, ConditionGood, ConditionFair:
		return true
	}
	return false
}

// Product represents a listing in the catalog.
type Product struct {
	ID            string           `json:"id"`
	SellerID      string           `json:"seller_id,omitempty"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	Condition     Condition        `json:"condition"`
	Stock         int              `json:"stock"`
	Images        []string         `json:"images"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Validate checks the fields required of every stored product.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return NewValidationError("name", "is required")
	case !p.Price.IsPositive():
		return NewValidationError("price", "must be greater than zero")
	case p.OriginalPrice != nil && p.OriginalPrice.IsNegative():
		return NewValidationError("original_price", "must not be negative")
	case strings.TrimSpace(p.Category) == "":
		return NewValidationError("category", "is required")
	case !p.Condition.Valid():
		return NewValidationError("condition", "must be one of Like New, Excellent, Good, Fair")
	case p.Stock < 0:
		return NewValidationError("stock", "must not be negative")
	}
	return nil
}

// Thumbnail returns the first product image, if any.
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductFilter narrows a catalog listing. Zero values mean "no constraint".
type ProductFilter struct {
	Category        string           `schema:"category"`
	Brand           string           `schema:"brand"`
	Condition       Condition        `schema:"condition"`
	Search          string           `schema:"q"`
	MinPrice        *decimal.Decimal `schema:"-"`
	MaxPrice        *decimal.Decimal `schema:"-"`
	IncludeInactive bool             `schema:"-"`
	Limit           int              `schema:"limit"`
	Offset          int              `schema:"offset"`
}

// Matches applies the filter to a single product. Used by stores that
// cannot push the filter down to a query engine.
func (f ProductFilter) Matches(p *Product) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(f.Brand, p.Brand) {
		return false
	}
	if f.Condition != "" && f.Condition != p.Condition {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		haystack := strings.ToLower(p.Name + "\n" + p.Description + "\n" + p.Brand)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

// PaymentMethod is one of the supported payment channels.
type PaymentMethod string

const (
	PaymentGCash        PaymentMethod = "gcash"
	PaymentPayMaya      PaymentMethod = "paymaya"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentDebitCard    PaymentMethod = "debit_card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentGCash, PaymentPayMaya, PaymentBankTransfer, PaymentCreditCard, PaymentDebitCard:
		return true
	}
	return false
}

// OrderStatus tracks the settlement lifecycle of an order.
type OrderStatus string

const (
	OrderPending              OrderStatus = "pending"
	OrderAwaitingVerification OrderStatus = "awaiting_verification"
	OrderCompleted            OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Terminal reports whether no further settlement transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderStatusCancelled
}

// PaymentStatus tracks the payment attached to an order.
type PaymentStatus string

const (
	PaymentPending      PaymentStatus = "pending"
	PaymentCompleted    PaymentStatus = "completed"
	PaymentStatusFailed PaymentStatus = "failed"
)

// FulfillmentStatus tracks shipping once an order has been verified.
type FulfillmentStatus string

const (
	FulfillmentUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentProcessing  FulfillmentStatus = "processing"
	FulfillmentShipped     FulfillmentStatus = "shipped"
	FulfillmentDelivered   FulfillmentStatus = "delivered"
)

func (s FulfillmentStatus) rank() int {
	switch s {
	case FulfillmentProcessing:
		return 1
	case FulfillmentShipped:
		return 2
	case FulfillmentDelivered:
		return 3
	}
	return 0
}

// OrderItem is a frozen line item within an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// LineTotal returns price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// BuyerContact is the buyer's contact details at the time of purchase.
type BuyerContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Order represents a customer order. Monetary fields are computed once at
// creation and never recomputed.
type Order struct {
	ID                string            `json:"id"`
	BuyerID           string            `json:"buyer_id"`
	Buyer             BuyerContact      `json:"buyer"`
	Items             []OrderItem       `json:"items"`
	ShippingAddress   string            `json:"shipping_address"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	Subtotal          decimal.Decimal   `json:"subtotal"`
	ShippingFee       decimal.Decimal   `json:"shipping_fee"`
	Commission        decimal.Decimal   `json:"commission"`
	Total             decimal.Decimal   `json:"total"`
	SellerAmount      *decimal.Decimal  `json:"seller_amount,omitempty"`
	Status            OrderStatus       `json:"status"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	AdminNotes        string            `json:"admin_notes,omitempty"`
	TrackingNumber    string            `json:"tracking_number,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	VerifiedBy        string            `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time        `json:"verified_at,omitempty"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Quote returns the money breakdown frozen on the order.
func (o *Order) Quote() Quote {
	return Quote{Subtotal: o.Subtotal, ShippingFee: o.ShippingFee, Commission: o.Commission, Total: o.Total}
}

// OrderFilter narrows an administrative order listing.
type OrderFilter struct {
	BuyerID       string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Limit         int
}

// Payment is the payment attempt recorded against an order.
type Payment struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	Status         PaymentStatus   `json:"status"`
	Reference      string          `json:"reference"`
	IdempotencyKey string          `json:"idempotency_key"`
	GatewayRef     string          `json:"gateway_ref,omitempty"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Notification is a message shown to a user about one of their orders or
// verification requests.
type Notification struct {
	ID        string    `json:"id" bson:"_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Type      string    `json:"type" bson:"type"`
	RelatedID string    `json:"related_id" bson:"related_id"`
	IsRead    bool      `json:"is_read" bson:"is_read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// SettlementSummary aggregates order money for the admin dashboard.
type SettlementSummary struct {
	OrdersByStatus   map[OrderStatus]int `json:"orders_by_status"`
	GrossSales       decimal.Decimal     `json:"gross_sales"`
	CommissionEarned decimal.Decimal     `json:"commission_earned"`
	SellerPayouts    decimal.Decimal     `json:"seller_payouts"`
	HeldInEscrow     decimal.Decimal     `json:"held_in_escrow"`
}

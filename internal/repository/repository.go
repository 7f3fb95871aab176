package repository

import (
	"context"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

// ProductRepository handles persistence for Products. Updates are
// last-write-wins.
type ProductRepository interface {
	FindAll(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	// Seed inserts initial products if none exist.
	Seed(ctx context.Context, products []entity.Product) error
}

// CartRepository stores cart lines one row per line.
type CartRepository interface {
	FindByBuyer(ctx context.Context, buyerID string) (*entity.Cart, error)
	SaveLine(ctx context.Context, line entity.CartLine) error
	DeleteLine(ctx context.Context, buyerID, lineID string) error
	Clear(ctx context.Context, buyerID string) error
}

// OrderChange is one unit of work against an order: the projection, the
// events that produced it, and the side effects that must commit with it.
type OrderChange struct {
	Order           *entity.Order
	ExpectedVersion int
	Events          []entity.Event
	// Payment is inserted or updated with the order when set.
	Payment *entity.Payment
	// Restock returns every order item to product stock.
	Restock bool
}

// OrderRepository handles persistence for Orders and their event streams.
type OrderRepository interface {
	// PlaceOrder inserts the order, appends its first event, decrements
	// stock for every item (failing with ErrInsufficientStock if any product
	// cannot cover its quantity) and clears the buyer's cart, atomically.
	PlaceOrder(ctx context.Context, order *entity.Order, placed entity.OrderPlaced) error
	// Save applies an OrderChange if the stored version still equals
	// ExpectedVersion, otherwise it fails with ErrConcurrentModification.
	Save(ctx context.Context, change OrderChange) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindAll(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
}

// OrderPruner is implemented by bounded stores that can free space by
// dropping old terminal orders.
type OrderPruner interface {
	PruneTerminalOrders(ctx context.Context, keep int) (int, error)
}

// PaymentRepository reads payments. Writes go through OrderRepository.Save.
type PaymentRepository interface {
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error)
}

// VerificationRepository handles seller verification requests.
type VerificationRepository interface {
	// Create inserts v unless the user already has an active request, in
	// which case it fails with ErrActiveVerificationExists.
	Create(ctx context.Context, v *entity.SellerVerification) error
	FindByID(ctx context.Context, id string) (*entity.SellerVerification, error)
	FindLatestByUser(ctx context.Context, userID string) (*entity.SellerVerification, error)
	FindAll(ctx context.Context, status entity.VerificationStatus) ([]entity.SellerVerification, error)
	// Review stores a reviewed request if it is still pending and, when
	// approved, promotes its user to a verified seller in the same unit of work.
	Review(ctx context.Context, v *entity.SellerVerification) error
}

// UserRepository handles marketplace accounts.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindAll(ctx context.Context) ([]entity.User, error)
}

// EventStore handles appending and loading events for an aggregate stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error)
}

// NotificationRepository stores user notifications.
type NotificationRepository interface {
	Save(ctx context.Context, n *entity.Notification) error
	FindByUser(ctx context.Context, userID string, limit int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// IdempotencyStore remembers the outcome of a keyed operation.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false if the key is already held.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Put records the result for key, replacing the reservation.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the stored result, or nil if none has been recorded yet.
	Get(ctx context.Context, key string) ([]byte, error)
	Release(ctx context.Context, key string) error
}

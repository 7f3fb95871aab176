// Package memory provides in-process repositories guarded by a single lock.
// It backs local development and tests when STORAGE_DRIVER=memory.
package memory

import (
	"sync"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
)

// Store holds every collection in memory. All repositories returned by a
// Store share its lock, so a multi-collection write is atomic.
type Store struct {
	mu            sync.RWMutex
	products      map[string]entity.Product
	cartLines     map[string][]entity.CartLine
	orders        map[string]entity.Order
	payments      map[string]entity.Payment
	events        map[string][]entity.EventStoreRecord
	verifications map[string]entity.SellerVerification
	users         map[string]entity.User
	notifications map[string]entity.Notification

	maxOrders int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxOrders bounds the number of stored orders. Placing an order beyond
// the bound fails with ErrQuotaExceeded. Zero means unbounded.
func WithMaxOrders(n int) Option {
	return func(s *Store) { s.maxOrders = n }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore initializes an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		products:      make(map[string]entity.Product),
		cartLines:     make(map[string][]entity.CartLine),
		orders:        make(map[string]entity.Order),
		payments:      make(map[string]entity.Payment),
		events:        make(map[string][]entity.EventStoreRecord),
		verifications: make(map[string]entity.SellerVerification),
		users:         make(map[string]entity.User),
		notifications: make(map[string]entity.Notification),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Products() repository.ProductRepository { return &productRepository{s} }

func (s *Store) Carts() repository.CartRepository { return &cartRepository{s} }

func (s *Store) Orders() *OrderRepository { return &OrderRepository{s} }

func (s *Store) Payments() repository.PaymentRepository { return &paymentRepository{s} }

func (s *Store) Events() repository.EventStore { return &eventStore{s} }

func (s *Store) Verifications() repository.VerificationRepository {
	return &verificationRepository{s}
}

func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

func (s *Store) Notifications() repository.NotificationRepository {
	return &notificationRepository{s}
}

func cloneProduct(p entity.Product) entity.Product {
	p.Images = append([]string(nil), p.Images...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		p.OriginalPrice = &op
	}
	return p
}

func cloneOrder(o entity.Order) entity.Order {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	if o.SellerAmount != nil {
		amount := *o.SellerAmount
		o.SellerAmount = &amount
	}
	if o.VerifiedAt != nil {
		at := *o.VerifiedAt
		o.VerifiedAt = &at
	}
	return o
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/media"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/payment"
	"github.com/egannguyen/secondhand-market/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recorder is a Publisher that keeps everything it is given.
type recorder struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (r *recorder) PublishEvent(ctx context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

type fixture struct {
	store         *memory.Store
	pub           *recorder
	catalog       *CatalogService
	carts         *CartService
	orders        *OrderService
	payments      *PaymentService
	settlement    *SettlementService
	verifications *VerificationService
	auth          *AuthService
	notifications *NotificationService
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	store := memory.NewStore(opts...)
	pub := &recorder{}
	gateway := payment.NewSimulatedGateway(memory.NewIdempotencyStore(), payment.SimulatedConfig{DeclinePrefix: "DECLINE-"})
	return &fixture{
		store:         store,
		pub:           pub,
		catalog:       NewCatalogService(store.Products()),
		carts:         NewCartService(store.Carts(), store.Products()),
		orders:        NewOrderService(store.Orders(), store.Carts(), store.Users(), store.Events(), pub, entity.DefaultPricingPolicy(), WithPruneKeep(0)),
		payments:      NewPaymentService(store.Orders(), store.Payments(), gateway, pub),
		settlement:    NewSettlementService(store.Orders(), pub),
		verifications: NewVerificationService(store.Verifications(), store.Users(), store.Events(), media.Passthrough{}, pub),
		auth:          NewAuthService(store.Users(), "test-secret", time.Hour),
		notifications: NewNotificationService(store.Notifications()),
	}
}

func (f *fixture) buyer(t *testing.T, email string) *entity.User {
	t.Helper()
	u, _, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Juan Dela Cruz",
		Email:    email,
		Password: "password123",
		Phone:    "09171234567",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) product(t *testing.T, price int64, stock int) *entity.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), ProductInput{
		Name:      "Used Phone",
		Price:     decimal.NewFromInt(price),
		Category:  "Phones",
		Brand:     "Apple",
		Condition: entity.ConditionGood,
		Stock:     stock,
		Images:    []string{"https://img.example.com/1.jpg"},
	})
	require.NoError(t, err)
	return p
}

// placeOrder puts qty of a new product in the buyer's cart and checks out.
func (f *fixture) placeOrder(t *testing.T, buyer *entity.User, price int64, qty int) *entity.Order {
	t.Helper()
	ctx := context.Background()
	p := f.product(t, price, qty+2)
	_, err := f.carts.AddItem(ctx, buyer.ID, p.ID, qty)
	require.NoError(t, err)
	o, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         buyer.ID,
		ShippingAddress: "123 Rizal St, Manila",
		PaymentMethod:   entity.PaymentGCash,
	})
	require.NoError(t, err)
	return o
}

func (f *fixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var _ messaging.Publisher = (*recorder)(nil)

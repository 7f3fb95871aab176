package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// CreateOrderInput carries what checkout needs beyond the cart itself.
type CreateOrderInput struct {
	BuyerID         string
	ShippingAddress string
	PaymentMethod   entity.PaymentMethod
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

// WithPruneKeep sets how many terminal orders survive a prune when a
// bounded store runs out of room.
func WithPruneKeep(n int) OrderOption {
	return func(s *OrderService) { s.pruneKeep = n }
}

// OrderService orchestrates order-related business logic.
type OrderService struct {
	orders     repository.OrderRepository
	carts      repository.CartRepository
	users      repository.UserRepository
	eventStore repository.EventStore
	publisher  messaging.Publisher
	pricing    entity.PricingPolicy
	pruneKeep  int
	now        func() time.Time
}

func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	users repository.UserRepository,
	eventStore repository.EventStore,
	publisher messaging.Publisher,
	pricing entity.PricingPolicy,
	opts ...OrderOption,
) *OrderService {
	s := &OrderService{
		orders:     orders,
		carts:      carts,
		users:      users,
		eventStore: eventStore,
		publisher:  publisher,
		pricing:    pricing,
		pruneKeep:  50,
		now:        nowUTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder turns the buyer's cart into a pending order. Stock is taken
// and the cart emptied in the same unit of work as the insert.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *entity.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.CreateOrder", attribute.String("buyer_id", in.BuyerID))
	defer func() { endSpan(span, err) }()

	slog.Info("Service: Placing order", "buyer_id", in.BuyerID, "payment_method", in.PaymentMethod)

	address := strings.TrimSpace(in.ShippingAddress)
	if address == "" {
		return nil, entity.NewValidationError("shipping_address", "is required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, entity.NewValidationError("payment_method", "is not supported")
	}

	buyer, err := s.users.FindByID(ctx, in.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer: %w", err)
	}
	cart, err := s.carts.FindByBuyer(ctx, in.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, entity.ErrEmptyCart
	}

	items := cart.Snapshot()
	quote := s.pricing.QuoteItems(items)
	placed := entity.OrderPlaced{
		OrderID:         uuid.NewString(),
		BuyerID:         buyer.ID,
		Buyer:           entity.BuyerContact{Name: buyer.Name, Email: buyer.Email, Phone: buyer.Phone},
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   in.PaymentMethod,
		Subtotal:        quote.Subtotal,
		ShippingFee:     quote.ShippingFee,
		Commission:      quote.Commission,
		Total:           quote.Total,
		PlacedAt:        s.now(),
	}
	span.SetAttributes(attribute.String("order_id", placed.OrderID))

	agg := entity.NewOrderAggregate(entity.Order{})
	if err := agg.ApplyEvent(placed); err != nil {
		return nil, err
	}
	order := &agg.Order

	err = s.orders.PlaceOrder(ctx, order, placed)
	if errors.Is(err, entity.ErrQuotaExceeded) {
		if pruner, ok := s.orders.(repository.OrderPruner); ok {
			removed, perr := pruner.PruneTerminalOrders(ctx, s.pruneKeep)
			if perr != nil {
				return nil, fmt.Errorf("failed to prune orders: %w", perr)
			}
			slog.Warn("Order store full, pruned terminal orders", "removed", removed)
			err = s.orders.PlaceOrder(ctx, order, placed)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	messaging.PublishEvents(ctx, s.publisher, order.ID, placed)
	slog.Info("Service: Order placed", "order_id", order.ID, "total", order.Total.String())
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*entity.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// ListBuyerOrders returns the buyer's orders, newest first.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID string) ([]entity.Order, error) {
	orders, err := s.orders.FindAll(ctx, entity.OrderFilter{BuyerID: buyerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	orders, err := s.orders.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// History returns the order's event stream for tracking.
func (s *OrderService) History(ctx context.Context, id string) ([]entity.EventStoreRecord, error) {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.eventStore.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return records, nil
}

// Replay rebuilds the order from its event stream alone. Admins use it to
// check the stored order against its history.
func (s *OrderService) Replay(ctx context.Context, id string) (*entity.Order, error) {
	records, err := s.eventStore.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	if len(records) == 0 {
		return nil, entity.ErrOrderNotFound
	}
	agg := entity.NewOrderAggregate(entity.Order{ID: id})
	if err := agg.Rehydrate(records); err != nil {
		return nil, fmt.Errorf("failed to replay order: %w", err)
	}
	return &agg.Order, nil
}

// CancelOrder cancels an unpaid order and returns its stock.
func (s *OrderService) CancelOrder(ctx context.Context, id, actorID, reason string) (*entity.Order, error) {
	slog.Info("Service: Cancelling order", "order_id", id, "actor_id", actorID)

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by request"
	}
	event := entity.OrderCancelled{
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		CancelledBy: actorID,
		Reason:      reason,
		CancelledAt: s.now(),
	}
	updated, err := orderCommit{s.orders, s.publisher}.apply(ctx, order, []entity.Event{event}, nil, true)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	return updated, nil
}

// UpdateFulfillment advances shipping on a completed order. Fulfillment
// only moves forward.
func (s *OrderService) UpdateFulfillment(ctx context.Context, id string, status entity.FulfillmentStatus, trackingNumber string) (*entity.Order, error) {
	switch status {
	case entity.FulfillmentProcessing, entity.FulfillmentShipped, entity.FulfillmentDelivered:
	default:
		return nil, entity.NewValidationError("status", "must be processing, shipped or delivered")
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	event := entity.FulfillmentUpdated{
		OrderID:        order.ID,
		BuyerID:        order.BuyerID,
		Status:         status,
		TrackingNumber: strings.TrimSpace(trackingNumber),
		UpdatedAt:      s.now(),
	}
	updated, err := orderCommit{s.orders, s.publisher}.apply(ctx, order, []entity.Event{event}, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to update fulfillment: %w", err)
	}
	slog.Info("Service: Fulfillment updated", "order_id", id, "status", status)
	return updated, nil
}

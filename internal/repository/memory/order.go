package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
)

// OrderRepository is the in-memory OrderRepository. It also implements
// repository.OrderPruner.
type OrderRepository struct {
	s *Store
}

var (
	_ repository.OrderRepository = (*OrderRepository)(nil)
	_ repository.OrderPruner     = (*OrderRepository)(nil)
)

func (r *OrderRepository) PlaceOrder(ctx context.Context, order *entity.Order, placed entity.OrderPlaced) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.maxOrders > 0 && len(r.s.orders) >= r.s.maxOrders {
		return entity.ErrQuotaExceeded
	}
	if _, exists := r.s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	// Check every line before touching stock so a failure leaves no trace.
	need := make(map[string]int, len(order.Items))
	for _, item := range order.Items {
		need[item.ProductID] += item.Quantity
	}
	for productID, qty := range need {
		p, ok := r.s.products[productID]
		if !ok {
			return entity.ErrProductNotFound
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: %s", entity.ErrInsufficientStock, p.Name)
		}
	}

	records, err := r.s.appendEventsLocked(order.ID, entity.StreamOrder, 0, []entity.Event{placed})
	if err != nil {
		return err
	}
	for productID, qty := range need {
		p := r.s.products[productID]
		p.Stock -= qty
		p.UpdatedAt = order.CreatedAt
		r.s.products[productID] = p
	}
	r.s.events[order.ID] = records
	r.s.orders[order.ID] = cloneOrder(*order)
	delete(r.s.cartLines, order.BuyerID)
	return nil
}

func (r *OrderRepository) Save(ctx context.Context, change repository.OrderChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.orders[change.Order.ID]
	if !ok {
		return entity.ErrOrderNotFound
	}
	if current.Version != change.ExpectedVersion {
		return fmt.Errorf("%w: order %s is at version %d, expected %d",
			entity.ErrConcurrentModification, current.ID, current.Version, change.ExpectedVersion)
	}

	records, err := r.s.appendEventsLocked(current.ID, entity.StreamOrder, change.ExpectedVersion, change.Events)
	if err != nil {
		return err
	}
	r.s.events[current.ID] = records
	if change.Payment != nil {
		r.s.payments[change.Payment.OrderID] = *change.Payment
	}
	if change.Restock {
		for _, item := range current.Items {
			if p, ok := r.s.products[item.ProductID]; ok {
				p.Stock += item.Quantity
				r.s.products[item.ProductID] = p
			}
		}
	}
	r.s.orders[current.ID] = cloneOrder(*change.Order)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r *OrderRepository) FindAll(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orders := make([]entity.Order, 0)
	for _, o := range r.s.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		orders = append(orders, cloneOrder(o))
	}
	sortNewestFirst(orders)
	return paginate(orders, 0, filter.Limit), nil
}

// PruneTerminalOrders drops completed and cancelled orders, oldest first,
// keeping the newest keep of them. Their payments and streams go too.
func (r *OrderRepository) PruneTerminalOrders(ctx context.Context, keep int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var terminal []entity.Order
	for _, o := range r.s.orders {
		if o.Status.Terminal() {
			terminal = append(terminal, o)
		}
	}
	sortNewestFirst(terminal)
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for i := keep; i < len(terminal); i++ {
		id := terminal[i].ID
		delete(r.s.orders, id)
		delete(r.s.payments, id)
		delete(r.s.events, id)
		removed++
	}
	return removed, nil
}

func sortNewestFirst(orders []entity.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

type paymentRepository struct {
	s *Store
}

func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[orderID]
	if !ok {
		return nil, entity.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *paymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.payments {
		if p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, entity.ErrPaymentNotFound
}

type eventStore struct {
	s *Store
}

func (e *eventStore) SaveEvents(ctx context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	records, err := e.s.appendEventsLocked(streamID, streamType, expectedVersion, events)
	if err != nil {
		return err
	}
	e.s.events[streamID] = records
	return nil
}

func (e *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	return append([]entity.EventStoreRecord(nil), e.s.events[streamID]...), nil
}

// appendEventsLocked returns the stream with events appended, leaving the
// store untouched so callers can abort after a later check fails.
func (s *Store) appendEventsLocked(streamID, streamType string, expectedVersion int, events []entity.Event) ([]entity.EventStoreRecord, error) {
	stream := s.events[streamID]
	if len(stream) != expectedVersion {
		return nil, fmt.Errorf("%w: stream %s is at version %d, expected %d",
			entity.ErrConcurrentModification, streamID, len(stream), expectedVersion)
	}

	out := append(make([]entity.EventStoreRecord, 0, len(stream)+len(events)), stream...)
	now := s.now()
	version := expectedVersion
	for _, event := range events {
		version++
		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
		}
		out = append(out, entity.EventStoreRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			StreamType: streamType,
			Version:    version,
			EventType:  event.EventType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}
	return out, nil
}

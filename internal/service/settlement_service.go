package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// VerifyInput is an admin's release of escrowed funds.
type VerifyInput struct {
	OrderID        string
	AdminID        string
	AdminNotes     string
	TrackingNumber string
}

// SettlementService releases escrow once an admin has checked a paid order.
type SettlementService struct {
	orders    repository.OrderRepository
	publisher messaging.Publisher
	now       func() time.Time
}

func NewSettlementService(orders repository.OrderRepository, publisher messaging.Publisher) *SettlementService {
	return &SettlementService{orders: orders, publisher: publisher, now: nowUTC}
}

// VerifyTransaction completes an order awaiting verification. Two admins
// racing on the same order cannot both succeed: the loser gets
// ErrConcurrentModification.
func (s *SettlementService) VerifyTransaction(ctx context.Context, in VerifyInput) (_ *entity.Order, err error) {
	ctx, span := startSpan(ctx, "SettlementService.VerifyTransaction", attribute.String("order_id", in.OrderID))
	defer func() { endSpan(span, err) }()

	slog.Info("Service: Verifying transaction", "order_id", in.OrderID, "admin_id", in.AdminID)

	order, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	event := entity.TransactionVerified{
		OrderID:        order.ID,
		BuyerID:        order.BuyerID,
		VerifiedBy:     in.AdminID,
		AdminNotes:     strings.TrimSpace(in.AdminNotes),
		TrackingNumber: strings.TrimSpace(in.TrackingNumber),
		SellerAmount:   order.Quote().SellerAmount(),
		VerifiedAt:     s.now(),
	}
	updated, err := orderCommit{s.orders, s.publisher}.apply(ctx, order, []entity.Event{event}, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to verify transaction: %w", err)
	}
	slog.Info("Service: Escrow released", "order_id", order.ID, "seller_amount", event.SellerAmount.String())
	return updated, nil
}

// Summary totals order money for the admin dashboard.
func (s *SettlementService) Summary(ctx context.Context) (*entity.SettlementSummary, error) {
	orders, err := s.orders.FindAll(ctx, entity.OrderFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	sum := &entity.SettlementSummary{
		OrdersByStatus:   make(map[entity.OrderStatus]int),
		GrossSales:       decimal.Zero,
		CommissionEarned: decimal.Zero,
		SellerPayouts:    decimal.Zero,
		HeldInEscrow:     decimal.Zero,
	}
	for _, o := range orders {
		sum.OrdersByStatus[o.Status]++
		switch o.Status {
		case entity.OrderCompleted:
			sum.GrossSales = sum.GrossSales.Add(o.Total)
			sum.CommissionEarned = sum.CommissionEarned.Add(o.Commission)
			if o.SellerAmount != nil {
				sum.SellerPayouts = sum.SellerPayouts.Add(*o.SellerAmount)
			}
		case entity.OrderAwaitingVerification:
			sum.HeldInEscrow = sum.HeldInEscrow.Add(o.Total)
		}
	}
	return sum, nil
}

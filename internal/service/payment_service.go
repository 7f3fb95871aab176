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
	"github.com/egannguyen/secondhand-market/internal/payment"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ProcessPaymentInput describes a payment attempt. Method defaults to the
// order's method and IdempotencyKey to "order:<id>".
type ProcessPaymentInput struct {
	OrderID        string
	Method         entity.PaymentMethod
	Reference      string
	IdempotencyKey string
}

// PaymentService records payments against orders.
type PaymentService struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	gateway   payment.Gateway
	publisher messaging.Publisher
	now       func() time.Time
}

func NewPaymentService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	gateway payment.Gateway,
	publisher messaging.Publisher,
) *PaymentService {
	return &PaymentService{
		orders:    orders,
		payments:  payments,
		gateway:   gateway,
		publisher: publisher,
		now:       nowUTC,
	}
}

// ProcessPayment authorizes and captures the order total. A captured
// payment moves the order to awaiting_verification; a declined one cancels
// the order and returns its stock. Retrying with the same key returns the
// recorded payment.
func (s *PaymentService) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (_ *entity.Payment, err error) {
	ctx, span := startSpan(ctx, "PaymentService.ProcessPayment", attribute.String("order_id", in.OrderID))
	defer func() { endSpan(span, err) }()

	slog.Info("Service: Processing payment", "order_id", in.OrderID)

	order, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = "order:" + order.ID
	}
	if existing, err := s.payments.FindByIdempotencyKey(ctx, key); err == nil {
		if existing.OrderID != order.ID {
			return nil, entity.ErrIdempotencyKeyConflict
		}
		slog.Info("Payment already recorded (idempotency)", "order_id", order.ID, "status", existing.Status)
		return existing, nil
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if existing, err := s.payments.FindByOrderID(ctx, order.ID); err == nil {
		if existing.Status == entity.PaymentCompleted {
			slog.Info("Order already paid", "order_id", order.ID)
			return existing, nil
		}
	} else if !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	if order.Status != entity.OrderPending {
		return nil, &entity.TransitionError{Entity: "order", From: string(order.Status), To: string(entity.OrderAwaitingVerification)}
	}

	method := order.PaymentMethod
	if in.Method != "" {
		if !in.Method.Valid() {
			return nil, entity.NewValidationError("method", "is not supported")
		}
		method = in.Method
	}
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		reference = generateReference(method)
	}

	req := payment.Request{
		IdempotencyKey: key,
		OrderID:        order.ID,
		Amount:         order.Total,
		Method:         method,
		Reference:      reference,
	}
	auth, err := s.gateway.Authorize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize payment: %w", err)
	}

	now := s.now()
	record := &entity.Payment{
		ID:             uuid.NewString(),
		OrderID:        order.ID,
		Amount:         order.Total,
		Method:         method,
		Reference:      reference,
		IdempotencyKey: key,
		GatewayRef:     auth.GatewayRef,
		ProcessedAt:    &now,
		CreatedAt:      now,
	}

	var (
		event    entity.Event
		captured *payment.Result
		restock  bool
	)
	if auth.Status == payment.StatusDeclined {
		record.Status = entity.PaymentStatusFailed
		record.FailureReason = auth.Reason
		event = entity.PaymentFailed{
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			PaymentID: record.ID,
			Reason:    auth.Reason,
			FailedAt:  now,
		}
		restock = true
	} else {
		captured, err = s.gateway.Capture(ctx, key, auth)
		if err != nil {
			if _, verr := s.gateway.Void(ctx, key, auth); verr != nil {
				slog.Error("Failed to void authorization", "order_id", order.ID, "err", verr)
			}
			return nil, fmt.Errorf("failed to capture payment: %w", err)
		}
		record.Status = entity.PaymentCompleted
		record.GatewayRef = captured.GatewayRef
		event = entity.PaymentCaptured{
			OrderID:    order.ID,
			BuyerID:    order.BuyerID,
			PaymentID:  record.ID,
			Amount:     captured.Amount,
			Reference:  reference,
			CapturedAt: now,
		}
	}

	if _, err := (orderCommit{s.orders, s.publisher}).apply(ctx, order, []entity.Event{event}, record, restock); err != nil {
		if errors.Is(err, entity.ErrConcurrentModification) {
			// A racing request with the same key may have committed first.
			if existing, ferr := s.payments.FindByIdempotencyKey(ctx, key); ferr == nil && existing.OrderID == order.ID {
				return existing, nil
			}
		}
		if captured != nil {
			s.refund(ctx, order.ID, key, captured)
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	slog.Info("Service: Payment recorded", "order_id", order.ID, "status", record.Status)
	return record, nil
}

// refund returns money captured for a payment that could not be recorded,
// e.g. because the order was cancelled while the capture was in flight.
func (s *PaymentService) refund(ctx context.Context, orderID, key string, captured *payment.Result) {
	if _, err := s.gateway.Refund(ctx, key, captured); err != nil {
		slog.Error("Failed to refund unrecorded capture", "order_id", orderID, "gateway_ref", captured.GatewayRef, "err", err)
		return
	}
	slog.Warn("Refunded capture for order that changed during payment", "order_id", orderID, "gateway_ref", captured.GatewayRef)
}

func (s *PaymentService) GetPayment(ctx context.Context, orderID string) (*entity.Payment, error) {
	return s.payments.FindByOrderID(ctx, orderID)
}

func generateReference(method entity.PaymentMethod) string {
	prefix := strings.ToUpper(strings.ReplaceAll(string(method), "_", ""))
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
)

const paymentColumns = "id, order_id, amount, method, status, reference, idempotency_key, gateway_ref, failure_reason, processed_at, created_at"

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new PaymentRepository backed by Postgres.
func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	return r.findOne(ctx, "order_id", orderID)
}

func (r *paymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.Payment, error) {
	return r.findOne(ctx, "idempotency_key", key)
}

func (r *paymentRepository) findOne(ctx context.Context, column, value string) (*entity.Payment, error) {
	var (
		p           entity.Payment
		processedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE "+column+" = $1", value).Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.Reference, &p.IdempotencyKey,
		&p.GatewayRef, &p.FailureReason, &processedAt, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	p.ProcessedAt = timePtr(processedAt)
	return &p, nil
}

func upsertPayment(ctx context.Context, q querier, p *entity.Payment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (order_id) DO UPDATE SET
			amount = EXCLUDED.amount, method = EXCLUDED.method, status = EXCLUDED.status,
			reference = EXCLUDED.reference, idempotency_key = EXCLUDED.idempotency_key,
			gateway_ref = EXCLUDED.gateway_ref, failure_reason = EXCLUDED.failure_reason,
			processed_at = EXCLUDED.processed_at`,
		p.ID, p.OrderID, p.Amount, string(p.Method), string(p.Status), p.Reference, p.IdempotencyKey,
		p.GatewayRef, p.FailureReason, nullTime(p.ProcessedAt), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

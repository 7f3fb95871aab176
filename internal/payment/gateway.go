// Package payment abstracts the payment network behind a Gateway. The only
// implementation is a simulator that keeps every outcome under an
// idempotency key, so a retry sees the same answer.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the gateway's verdict on one operation.
type Status string

const (
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusDeclined   Status = "declined"
	StatusVoided     Status = "voided"
	StatusRefunded   Status = "refunded"
)

// Request describes the money to move for an order.
type Request struct {
	IdempotencyKey string
	OrderID        string
	Amount         decimal.Decimal
	Method         entity.PaymentMethod
	Reference      string
}

func (r Request) fingerprint() string {
	return r.OrderID + "|" + r.Amount.String() + "|" + string(r.Method)
}

// Result is what the gateway reports back.
type Result struct {
	Status      Status          `json:"status"`
	GatewayRef  string          `json:"gateway_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// Gateway authorizes, captures, voids and refunds payments.
type Gateway interface {
	Authorize(ctx context.Context, req Request) (*Result, error)
	Capture(ctx context.Context, idempotencyKey string, auth *Result) (*Result, error)
	Void(ctx context.Context, idempotencyKey string, auth *Result) (*Result, error)
	// Refund returns captured money to the payer.
	Refund(ctx context.Context, idempotencyKey string, captured *Result) (*Result, error)
}

// SimulatedConfig tunes the simulator.
type SimulatedConfig struct {
	// References starting with DeclinePrefix are declined.
	DeclinePrefix string
	// TTL is how long outcomes are remembered.
	TTL time.Duration
}

// SimulatedGateway approves everything except references carrying the
// decline prefix.
type SimulatedGateway struct {
	store repository.IdempotencyStore
	cfg   SimulatedConfig
	now   func() time.Time
}

func NewSimulatedGateway(store repository.IdempotencyStore, cfg SimulatedConfig) *SimulatedGateway {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &SimulatedGateway{store: store, cfg: cfg, now: time.Now}
}

type storedOutcome struct {
	Fingerprint string `json:"fingerprint"`
	Result      Result `json:"result"`
}

func (g *SimulatedGateway) Authorize(ctx context.Context, req Request) (*Result, error) {
	if req.IdempotencyKey == "" {
		return nil, entity.NewValidationError("idempotency_key", "is required")
	}
	return g.once(ctx, req.IdempotencyKey+":authorize", req.fingerprint(), func() Result {
		now := g.now()
		if g.cfg.DeclinePrefix != "" && strings.HasPrefix(req.Reference, g.cfg.DeclinePrefix) {
			return Result{Status: StatusDeclined, Amount: req.Amount, Reason: "declined by issuer", ProcessedAt: now}
		}
		return Result{Status: StatusAuthorized, GatewayRef: "auth_" + uuid.NewString(), Amount: req.Amount, ProcessedAt: now}
	})
}

func (g *SimulatedGateway) Capture(ctx context.Context, idempotencyKey string, auth *Result) (*Result, error) {
	if auth == nil || auth.Status != StatusAuthorized {
		return nil, fmt.Errorf("%w: capture requires an authorization", entity.ErrInvalidTransition)
	}
	return g.once(ctx, idempotencyKey+":capture", auth.GatewayRef, func() Result {
		return Result{Status: StatusCaptured, GatewayRef: auth.GatewayRef, Amount: auth.Amount, ProcessedAt: g.now()}
	})
}

func (g *SimulatedGateway) Void(ctx context.Context, idempotencyKey string, auth *Result) (*Result, error) {
	if auth == nil || auth.Status != StatusAuthorized {
		return nil, fmt.Errorf("%w: void requires an authorization", entity.ErrInvalidTransition)
	}
	return g.once(ctx, idempotencyKey+":void", auth.GatewayRef, func() Result {
		return Result{Status: StatusVoided, GatewayRef: auth.GatewayRef, Amount: auth.Amount, ProcessedAt: g.now()}
	})
}

func (g *SimulatedGateway) Refund(ctx context.Context, idempotencyKey string, captured *Result) (*Result, error) {
	if captured == nil || captured.Status != StatusCaptured {
		return nil, fmt.Errorf("%w: refund requires a capture", entity.ErrInvalidTransition)
	}
	return g.once(ctx, idempotencyKey+":refund", captured.GatewayRef, func() Result {
		return Result{Status: StatusRefunded, GatewayRef: captured.GatewayRef, Amount: captured.Amount, ProcessedAt: g.now()}
	})
}

// once runs decide at most once per key and replays the stored outcome for
// later calls with the same fingerprint.
func (g *SimulatedGateway) once(ctx context.Context, key, fingerprint string, decide func() Result) (*Result, error) {
	if prev, err := g.lookup(ctx, key, fingerprint); err != nil || prev != nil {
		return prev, err
	}

	reserved, err := g.store.Reserve(ctx, key, g.cfg.TTL)
	if err != nil {
		return nil, err
	}
	if !reserved {
		// Another caller holds the key; use its outcome if it has finished.
		if prev, err := g.lookup(ctx, key, fingerprint); err != nil || prev != nil {
			return prev, err
		}
		return nil, fmt.Errorf("%w: payment %s is already in progress", entity.ErrConcurrentModification, key)
	}

	result := decide()
	data, err := json.Marshal(storedOutcome{Fingerprint: fingerprint, Result: result})
	if err != nil {
		g.store.Release(ctx, key)
		return nil, fmt.Errorf("failed to marshal payment outcome: %w", err)
	}
	if err := g.store.Put(ctx, key, data, g.cfg.TTL); err != nil {
		g.store.Release(ctx, key)
		return nil, err
	}
	return &result, nil
}

func (g *SimulatedGateway) lookup(ctx context.Context, key, fingerprint string) (*Result, error) {
	data, err := g.store.Get(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}
	var prev storedOutcome
	if err := json.Unmarshal(data, &prev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment outcome: %w", err)
	}
	if prev.Fingerprint != fingerprint {
		return nil, entity.ErrIdempotencyKeyConflict
	}
	return &prev.Result, nil
}

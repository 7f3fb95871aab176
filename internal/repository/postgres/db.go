package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'buyer',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			seller_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(14,2) NOT NULL CHECK (price > 0),
			original_price NUMERIC(14,2),
			category TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			condition TEXT NOT NULL,
			stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
			images TEXT[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS cart_lines (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			name TEXT NOT NULL,
			price NUMERIC(14,2) NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			stock INT NOT NULL DEFAULT 0,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (buyer_id, product_id)
		);

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			buyer_id TEXT NOT NULL,
			buyer_name TEXT NOT NULL DEFAULT '',
			buyer_email TEXT NOT NULL DEFAULT '',
			buyer_phone TEXT NOT NULL DEFAULT '',
			shipping_address TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			subtotal NUMERIC(14,2) NOT NULL,
			shipping_fee NUMERIC(14,2) NOT NULL,
			commission NUMERIC(14,2) NOT NULL,
			total NUMERIC(14,2) NOT NULL,
			seller_amount NUMERIC(14,2),
			status TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			fulfillment_status TEXT NOT NULL,
			admin_notes TEXT NOT NULL DEFAULT '',
			tracking_number TEXT NOT NULL DEFAULT '',
			cancel_reason TEXT NOT NULL DEFAULT '',
			verified_by TEXT NOT NULL DEFAULT '',
			verified_at TIMESTAMPTZ,
			version INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS orders_buyer_idx ON orders (buyer_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id TEXT NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC(14,2) NOT NULL,
			quantity INT NOT NULL,
			image TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
			amount NUMERIC(14,2) NOT NULL,
			method TEXT NOT NULL,
			status TEXT NOT NULL,
			reference TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT NOT NULL UNIQUE,
			gateway_ref TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS verifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			full_name TEXT NOT NULL,
			address TEXT NOT NULL,
			phone TEXT NOT NULL,
			id_type TEXT NOT NULL,
			id_number TEXT NOT NULL,
			id_photo TEXT NOT NULL DEFAULT '',
			selfie_with_id TEXT NOT NULL DEFAULT '',
			proof_of_ownership TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			admin_notes TEXT NOT NULL DEFAULT '',
			rejection_reason TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ NOT NULL,
			reviewed_at TIMESTAMPTZ,
			reviewer_id TEXT NOT NULL DEFAULT ''
		);
		CREATE UNIQUE INDEX IF NOT EXISTS verifications_one_active_idx
			ON verifications (user_id) WHERE status IN ('pending', 'approved');

		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL,
			stream_type TEXT NOT NULL,
			version INT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (stream_id, version)
		);
	`)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new CartRepository backed by Postgres.
func NewCartRepository(db *sql.DB) repository.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByBuyer(ctx context.Context, buyerID string) (*entity.Cart, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, buyer_id, product_id, quantity, name, price, image, stock, added_at FROM cart_lines WHERE buyer_id = $1 ORDER BY added_at, id",
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	cart := entity.NewCart(buyerID)
	for rows.Next() {
		var l entity.CartLine
		if err := rows.Scan(&l.ID, &l.BuyerID, &l.ProductID, &l.Quantity, &l.Name, &l.Price, &l.Image, &l.Stock, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart rows: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) SaveLine(ctx context.Context, l entity.CartLine) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_lines (id, buyer_id, product_id, quantity, name, price, image, stock, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (buyer_id, product_id) DO UPDATE SET
			quantity = EXCLUDED.quantity, name = EXCLUDED.name, price = EXCLUDED.price,
			image = EXCLUDED.image, stock = EXCLUDED.stock`,
		l.ID, l.BuyerID, l.ProductID, l.Quantity, l.Name, l.Price, l.Image, l.Stock, l.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save cart line: %w", err)
	}
	return nil
}

func (r *cartRepository) DeleteLine(ctx context.Context, buyerID, lineID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_lines WHERE buyer_id = $1 AND id = $2", buyerID, lineID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, buyerID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_lines WHERE buyer_id = $1", buyerID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

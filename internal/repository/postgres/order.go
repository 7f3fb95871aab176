package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, buyer_id, buyer_name, buyer_email, buyer_phone, shipping_address, payment_method,
	subtotal, shipping_fee, commission, total, seller_amount, status, payment_status, fulfillment_status,
	admin_notes, tracking_number, cancel_reason, verified_by, verified_at, version, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) PlaceOrder(ctx context.Context, order *entity.Order, placed entity.OrderPlaced) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, buyer_name, buyer_email, buyer_phone, shipping_address, payment_method,
			subtotal, shipping_fee, commission, total, status, payment_status, fulfillment_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		order.ID, order.BuyerID, order.Buyer.Name, order.Buyer.Email, order.Buyer.Phone, order.ShippingAddress,
		string(order.PaymentMethod), order.Subtotal, order.ShippingFee, order.Commission, order.Total,
		string(order.Status), string(order.PaymentStatus), string(order.FulfillmentStatus), order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, name, price, quantity, image) VALUES ($1, $2, $3, $4, $5, $6)",
			order.ID, item.ProductID, item.Name, item.Price, item.Quantity, item.Image,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		// Conditional decrement: zero rows means the product cannot cover the line.
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, updated_at = $3 WHERE id = $2 AND stock >= $1",
			item.Quantity, item.ProductID, order.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update product stock: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("failed to read stock update result: %w", err)
		} else if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", item.ProductID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check product: %w", err)
			}
			if !exists {
				return entity.ErrProductNotFound
			}
			return fmt.Errorf("%w: %s", entity.ErrInsufficientStock, item.Name)
		}
	}

	if err := appendEvents(ctx, tx, order.ID, entity.StreamOrder, 0, []entity.Event{placed}); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_lines WHERE buyer_id = $1", order.BuyerID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) Save(ctx context.Context, change repository.OrderChange) error {
	o := change.Order

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sellerAmount decimal.NullDecimal
	if o.SellerAmount != nil {
		sellerAmount = decimal.NewNullDecimal(*o.SellerAmount)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $3, payment_status = $4, fulfillment_status = $5, seller_amount = $6,
			admin_notes = $7, tracking_number = $8, cancel_reason = $9, verified_by = $10, verified_at = $11,
			version = $12, updated_at = $13
		WHERE id = $1 AND version = $2`,
		o.ID, change.ExpectedVersion, string(o.Status), string(o.PaymentStatus), string(o.FulfillmentStatus),
		sellerAmount, o.AdminNotes, o.TrackingNumber, o.CancelReason, o.VerifiedBy, nullTime(o.VerifiedAt),
		o.Version, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order: %w", err)
		}
		if !exists {
			return entity.ErrOrderNotFound
		}
		return fmt.Errorf("%w: order %s is no longer at version %d", entity.ErrConcurrentModification, o.ID, change.ExpectedVersion)
	}

	if err := appendEvents(ctx, tx, o.ID, entity.StreamOrder, change.ExpectedVersion, change.Events); err != nil {
		return err
	}

	if change.Payment != nil {
		if err := upsertPayment(ctx, tx, change.Payment); err != nil {
			return err
		}
	}

	if change.Restock {
		for _, item := range o.Items {
			_, err := tx.ExecContext(ctx,
				"UPDATE products SET stock = stock + $1, updated_at = $3 WHERE id = $2",
				item.Quantity, item.ProductID, o.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to restock product %s: %w", item.ProductID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.loadItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, string(filter.PaymentStatus))
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	// Fetch items for each order
	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, price, quantity, image FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []entity.OrderItem{}
	for rows.Next() {
		var item entity.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.Image); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row rowScanner) (*entity.Order, error) {
	var (
		o            entity.Order
		sellerAmount decimal.NullDecimal
		verifiedAt   sql.NullTime
	)
	err := row.Scan(&o.ID, &o.BuyerID, &o.Buyer.Name, &o.Buyer.Email, &o.Buyer.Phone, &o.ShippingAddress,
		&o.PaymentMethod, &o.Subtotal, &o.ShippingFee, &o.Commission, &o.Total, &sellerAmount,
		&o.Status, &o.PaymentStatus, &o.FulfillmentStatus, &o.AdminNotes, &o.TrackingNumber,
		&o.CancelReason, &o.VerifiedBy, &verifiedAt, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if sellerAmount.Valid {
		o.SellerAmount = &sellerAmount.Decimal
	}
	o.VerifiedAt = timePtr(verifiedAt)
	return &o, nil
}

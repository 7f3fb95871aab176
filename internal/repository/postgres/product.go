package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const productColumns = "id, seller_id, name, description, price, original_price, category, brand, condition, stock, images, is_active, created_at, updated_at"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindAll(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.IncludeInactive {
		where = append(where, "is_active")
	}
	if filter.Category != "" {
		where = append(where, "LOWER(category) = LOWER("+arg(filter.Category)+")")
	}
	if filter.Brand != "" {
		where = append(where, "LOWER(brand) = LOWER("+arg(filter.Brand)+")")
	}
	if filter.Condition != "" {
		where = append(where, "condition = "+arg(string(filter.Condition)))
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= "+arg(*filter.MaxPrice))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s OR brand ILIKE %[1]s)", p))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrProductNotFound
	}
	return p, err
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		productArgs(p)...,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	args := productArgs(p)
	args = append(args[:12], args[13])
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET seller_id = $2, name = $3, description = $4, price = $5, original_price = $6,
			category = $7, brand = $8, condition = $9, stock = $10, images = $11, is_active = $12, updated_at = $13
		WHERE id = $1`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrProductNotFound
	}
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil // already seeded
	}

	for i := range products {
		if err := r.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].ID, err)
		}
	}
	return nil
}

func productArgs(p *entity.Product) []any {
	var original decimal.NullDecimal
	if p.OriginalPrice != nil {
		original = decimal.NewNullDecimal(*p.OriginalPrice)
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return []any{
		p.ID, p.SellerID, p.Name, p.Description, p.Price, original,
		p.Category, p.Brand, string(p.Condition), p.Stock, pq.Array(images), p.IsActive,
		p.CreatedAt, p.UpdatedAt,
	}
}

func scanProduct(row rowScanner) (*entity.Product, error) {
	var (
		p        entity.Product
		original decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price, &original,
		&p.Category, &p.Brand, &p.Condition, &p.Stock, pq.Array(&p.Images), &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	if original.Valid {
		p.OriginalPrice = &original.Decimal
	}
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

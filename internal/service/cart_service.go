package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/shopspring/decimal"
)

// CartService orchestrates shopping cart logic. Lines are stored one row per
// line, so edits to different lines never overwrite each other.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	now      func() time.Time
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products, now: nowUTC}
}

func (s *CartService) Get(ctx context.Context, buyerID string) (*entity.Cart, error) {
	cart, err := s.carts.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, nil
}

// AddItem merges qty of a product into the buyer's cart. The merged
// quantity may not exceed the product's current stock.
func (s *CartService) AddItem(ctx context.Context, buyerID, productID string, qty int) (*entity.Cart, error) {
	slog.Info("Service: Adding item to cart", "buyer_id", buyerID, "product_id", productID, "quantity", qty)

	if qty < 1 {
		return nil, entity.NewValidationError("quantity", "must be at least 1")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, entity.ErrProductNotFound
	}

	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	line, err := cart.Add(product, qty, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.carts.SaveLine(ctx, line); err != nil {
		return nil, fmt.Errorf("failed to save cart line: %w", err)
	}
	return cart, nil
}

// UpdateQuantity overwrites a line's quantity without re-checking stock.
// A quantity of zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, buyerID, lineID string, qty int) (*entity.Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, buyerID, lineID)
	}
	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(lineID, qty); err != nil {
		return nil, err
	}
	line, _ := cart.Find(lineID)
	if err := s.carts.SaveLine(ctx, *line); err != nil {
		return nil, fmt.Errorf("failed to save cart line: %w", err)
	}
	return cart, nil
}

// RemoveItem deletes a line. Removing a missing line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, buyerID, lineID string) (*entity.Cart, error) {
	if err := s.carts.DeleteLine(ctx, buyerID, lineID); err != nil && !errors.Is(err, entity.ErrCartLineNotFound) {
		return nil, fmt.Errorf("failed to delete cart line: %w", err)
	}
	return s.Get(ctx, buyerID)
}

func (s *CartService) Clear(ctx context.Context, buyerID string) error {
	if err := s.carts.Clear(ctx, buyerID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Total is the cart subtotal before shipping.
func (s *CartService) Total(ctx context.Context, buyerID string) (decimal.Decimal, error) {
	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return decimal.Zero, err
	}
	return cart.Subtotal(), nil
}

func (s *CartService) ItemCount(ctx context.Context, buyerID string) (int, error) {
	cart, err := s.Get(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput is the data needed to list a new product.
type ProductInput struct {
	SellerID      string
	Name          string
	Description   string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      string
	Brand         string
	Condition     entity.Condition
	Stock         int
	Images        []string
	IsActive      *bool
}

// ProductPatch changes only the fields that are set.
type ProductPatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	OriginalPrice *decimal.Decimal
	Category      *string
	Brand         *string
	Condition     *entity.Condition
	Stock         *int
	Images        []string
	IsActive      *bool
}

// CatalogService manages product listings.
type CatalogService struct {
	products repository.ProductRepository
	now      func() time.Time
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products, now: nowUTC}
}

// List returns products matching filter. Inactive products are only
// included when the filter asks for them.
func (s *CatalogService) List(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, entity.NewValidationError("limit", "must not be negative")
	}
	products, err := s.products.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*entity.Product, error) {
	now := s.now()
	p := &entity.Product{
		ID:            uuid.NewString(),
		SellerID:      in.SellerID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      strings.TrimSpace(in.Category),
		Brand:         strings.TrimSpace(in.Brand),
		Condition:     in.Condition,
		Stock:         in.Stock,
		Images:        in.Images,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	slog.Info("Service: Product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Update applies patch to the stored product. Concurrent updates are
// last-write-wins.
func (s *CatalogService) Update(ctx context.Context, id string, patch ProductPatch) (*entity.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.OriginalPrice != nil {
		p.OriginalPrice = patch.OriginalPrice
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Brand != nil {
		p.Brand = strings.TrimSpace(*patch.Brand)
	}
	if patch.Condition != nil {
		p.Condition = *patch.Condition
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Images != nil {
		p.Images = patch.Images
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	slog.Info("Service: Product updated", "product_id", p.ID)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("Service: Product deleted", "product_id", id)
	return nil
}

// Seed loads the starter catalog into an empty store.
func (s *CatalogService) Seed(ctx context.Context) error {
	if err := s.products.Seed(ctx, seedProducts(s.now())); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	return nil
}

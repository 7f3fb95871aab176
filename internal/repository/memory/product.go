package memory

import (
	"context"
	"sort"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

type productRepository struct {
	s *Store
}

func (r *productRepository) FindAll(ctx context.Context, filter entity.ProductFilter) ([]entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	products := make([]entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.Matches(&p) {
			products = append(products, cloneProduct(p))
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return paginate(products, filter.Offset, filter.Limit), nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, entity.ErrProductNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[p.ID]; !ok {
		return entity.ErrProductNotFound
	}
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return entity.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if len(r.s.products) > 0 {
		return nil
	}
	for _, p := range products {
		r.s.products[p.ID] = cloneProduct(p)
	}
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package memory

import (
	"context"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

type cartRepository struct {
	s *Store
}

func (r *cartRepository) FindByBuyer(ctx context.Context, buyerID string) (*entity.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	cart := entity.NewCart(buyerID)
	cart.Lines = append(cart.Lines, r.s.cartLines[buyerID]...)
	return cart, nil
}

// SaveLine upserts by line id, or by product when the buyer already holds a
// different line for the same product.
func (r *cartRepository) SaveLine(ctx context.Context, line entity.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lines := r.s.cartLines[line.BuyerID]
	for i := range lines {
		if lines[i].ID == line.ID || lines[i].ProductID == line.ProductID {
			line.ID = lines[i].ID
			lines[i] = line
			return nil
		}
	}
	r.s.cartLines[line.BuyerID] = append(lines, line)
	return nil
}

func (r *cartRepository) DeleteLine(ctx context.Context, buyerID, lineID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lines := r.s.cartLines[buyerID]
	for i := range lines {
		if lines[i].ID == lineID {
			r.s.cartLines[buyerID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, buyerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.cartLines, buyerID)
	return nil
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product in a buyer's cart. The product fields are a
// snapshot taken when the line was last added to.
type CartLine struct {
	ID        string          `json:"id"`
	BuyerID   string          `json:"buyer_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Stock     int             `json:"stock"`
	AddedAt   time.Time       `json:"added_at"`
}

// LineTotal returns price * quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the lines owned by a buyer.
type Cart struct {
	BuyerID string     `json:"buyer_id"`
	Lines   []CartLine `json:"lines"`
}

// NewCart creates an empty cart for buyerID.
func NewCart(buyerID string) *Cart {
	return &Cart{BuyerID: buyerID, Lines: []CartLine{}}
}

// Subtotal is the sum of price * quantity over every line.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// FindByProduct returns the line holding productID.
func (c *Cart) FindByProduct(productID string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// Find returns the line with the given id.
func (c *Cart) Find(lineID string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// Add merges qty of p into the cart and refreshes the line snapshot. The
// merged quantity may not exceed the product's current stock.
func (c *Cart) Add(p *Product, qty int, now time.Time) (CartLine, error) {
	if qty < 1 {
		return CartLine{}, NewValidationError("quantity", "must be at least 1")
	}
	line, ok := c.FindByProduct(p.ID)
	if !ok {
		c.Lines = append(c.Lines, CartLine{
			ID:        uuid.NewString(),
			BuyerID:   c.BuyerID,
			ProductID: p.ID,
			AddedAt:   now,
		})
		line = &c.Lines[len(c.Lines)-1]
	}
	if line.Quantity+qty > p.Stock {
		if !ok {
			c.Lines = c.Lines[:len(c.Lines)-1]
		}
		return CartLine{}, ErrInsufficientStock
	}
	line.Quantity += qty
	line.Name = p.Name
	line.Price = p.Price
	line.Image = p.Thumbnail()
	line.Stock = p.Stock
	return *line, nil
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes the line.
// Removing a line that is not present is a no-op.
func (c *Cart) SetQuantity(lineID string, qty int) error {
	if qty <= 0 {
		c.Remove(lineID)
		return nil
	}
	line, ok := c.Find(lineID)
	if !ok {
		return ErrCartLineNotFound
	}
	line.Quantity = qty
	return nil
}

// Remove deletes a line. It reports whether anything was removed.
func (c *Cart) Remove(lineID string) bool {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot freezes the cart lines into order items.
func (c *Cart) Snapshot() []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
	}
	return items
}

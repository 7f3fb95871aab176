package entity

import (
	"github.com/shopspring/decimal"
)

// PricingPolicy holds the marketplace's money rules. It is built once from
// configuration so every call site uses the same numbers.
type PricingPolicy struct {
	CommissionRate        decimal.Decimal
	CommissionPlaces      int32
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultPricingPolicy is 3% commission rounded to whole pesos, free
// shipping from 5000, otherwise a flat 150.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		CommissionRate:        decimal.RequireFromString("0.03"),
		CommissionPlaces:      0,
		FreeShippingThreshold: decimal.NewFromInt(5000),
		FlatShippingFee:       decimal.NewFromInt(150),
	}
}

// Quote is the frozen money breakdown of an order.
type Quote struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Commission  decimal.Decimal `json:"commission"`
	Total       decimal.Decimal `json:"total"`
}

// SellerAmount is what the seller receives once escrow is released.
func (q Quote) SellerAmount() decimal.Decimal {
	return q.Total.Sub(q.Commission)
}

// ShippingFee returns zero at or above the free-shipping threshold.
func (p PricingPolicy) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Commission is subtotal * rate rounded half away from zero.
func (p PricingPolicy) Commission(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.CommissionRate).Round(p.CommissionPlaces)
}

// QuoteItems prices a set of frozen line items.
func (p PricingPolicy) QuoteItems(items []OrderItem) Quote {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	fee := p.ShippingFee(subtotal)
	return Quote{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Commission:  p.Commission(subtotal),
		Total:       subtotal.Add(fee),
	}
}

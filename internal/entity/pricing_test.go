package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPricingPolicy_QuoteItems(t *testing.T) {
	policy := DefaultPricingPolicy()

	tests := []struct {
		name       string
		items      []OrderItem
		subtotal   string
		shipping   string
		commission string
		total      string
	}{
		{
			name:       "below free shipping threshold",
			items:      []OrderItem{{ProductID: "p1", Price: d("999"), Quantity: 2}},
			subtotal:   "1998",
			shipping:   "150",
			commission: "60",
			total:      "2148",
		},
		{
			name:       "exactly at threshold ships free",
			items:      []OrderItem{{ProductID: "p1", Price: d("2500"), Quantity: 2}},
			subtotal:   "5000",
			shipping:   "0",
			commission: "150",
			total:      "5000",
		},
		{
			name: "multiple lines",
			items: []OrderItem{
				{ProductID: "p1", Price: d("12999.50"), Quantity: 1},
				{ProductID: "p2", Price: d("450"), Quantity: 3},
			},
			subtotal:   "14349.5",
			shipping:   "0",
			commission: "430",
			total:      "14349.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := policy.QuoteItems(tt.items)
			assert.True(t, q.Subtotal.Equal(d(tt.subtotal)), "subtotal %s", q.Subtotal)
			assert.True(t, q.ShippingFee.Equal(d(tt.shipping)), "shipping %s", q.ShippingFee)
			assert.True(t, q.Commission.Equal(d(tt.commission)), "commission %s", q.Commission)
			assert.True(t, q.Total.Equal(d(tt.total)), "total %s", q.Total)
			assert.True(t, q.Total.Equal(q.Subtotal.Add(q.ShippingFee)))
		})
	}
}

func TestPricingPolicy_CommissionPlaces(t *testing.T) {
	policy := DefaultPricingPolicy()
	policy.CommissionPlaces = 2

	assert.Equal(t, "59.94", policy.Commission(d("1998")).String())
}

func TestQuote_SellerAmount(t *testing.T) {
	q := Quote{Total: d("2148"), Commission: d("60")}
	assert.Equal(t, "2088", q.SellerAmount().String())
}

package service

import (
	"context"
	"testing"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")
	p := f.product(t, 2000, 3)

	_, err := f.carts.AddItem(ctx, buyer.ID, p.ID, 2)
	require.NoError(t, err)

	o, err := f.orders.CreateOrder(ctx, CreateOrderInput{
		BuyerID:         buyer.ID,
		ShippingAddress: "  123 Rizal St, Manila ",
		PaymentMethod:   entity.PaymentPayMaya,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.OrderPending, o.Status)
	assert.Equal(t, entity.PaymentPending, o.PaymentStatus)
	assert.Equal(t, entity.FulfillmentUnfulfilled, o.FulfillmentStatus)
	assert.Equal(t, "123 Rizal St, Manila", o.ShippingAddress)
	assert.Equal(t, "juan@example.com", o.Buyer.Email)
	assert.True(t, o.Subtotal.Equal(d("4000")))
	assert.True(t, o.ShippingFee.Equal(d("150")))
	assert.True(t, o.Commission.Equal(d("120")))
	assert.True(t, o.Total.Equal(d("4150")))
	assert.Equal(t, 1, o.Version)

	assert.Equal(t, 1, f.stock(t, p.ID))
	cart, err := f.carts.Get(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, []string{messaging.TopicOrdersPlaced}, f.pub.topics)

	history, err := f.orders.History(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.EventOrderPlaced, history[0].EventType)

	mine, err := f.orders.ListBuyerOrders(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)
}

func TestOrderService_FreeShipping(t *testing.T) {
	f := newFixture(t)
	buyer := f.buyer(t, "juan@example.com")

	o := f.placeOrder(t, buyer, 5000, 1)
	assert.True(t, o.ShippingFee.IsZero())
	assert.True(t, o.Total.Equal(d("5000")))
	assert.True(t, o.Commission.Equal(d("150")))
}

func TestOrderService_CreateOrderRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")

	tests := []struct {
		name string
		in   CreateOrderInput
		want error
	}{
		{"empty cart", CreateOrderInput{BuyerID: buyer.ID, ShippingAddress: "Manila", PaymentMethod: entity.PaymentGCash}, entity.ErrEmptyCart},
		{"unknown buyer", CreateOrderInput{BuyerID: "ghost", ShippingAddress: "Manila", PaymentMethod: entity.PaymentGCash}, entity.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var verr *entity.ValidationError
	_, err := f.orders.CreateOrder(ctx, CreateOrderInput{BuyerID: buyer.ID, ShippingAddress: " ", PaymentMethod: entity.PaymentGCash})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "shipping_address", verr.Field)

	_, err = f.orders.CreateOrder(ctx, CreateOrderInput{BuyerID: buyer.ID, ShippingAddress: "Manila", PaymentMethod: "cash"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)

	orders, err := f.orders.ListOrders(ctx, entity.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.buyer(t, "a@example.com")
	second := f.buyer(t, "b@example.com")
	p := f.product(t, 1000, 1)

	_, err := f.carts.AddItem(ctx, first.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, second.ID, p.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, CreateOrderInput{BuyerID: first.ID, ShippingAddress: "Manila", PaymentMethod: entity.PaymentGCash})
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, CreateOrderInput{BuyerID: second.ID, ShippingAddress: "Cebu", PaymentMethod: entity.PaymentGCash})
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	assert.Equal(t, 0, f.stock(t, p.ID))
	cart, err := f.carts.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
	mine, err := f.orders.ListBuyerOrders(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestOrderService_QuotaPrunesTerminalOrders(t *testing.T) {
	f := newFixture(t, memory.WithMaxOrders(1))
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")

	first := f.placeOrder(t, buyer, 1000, 1)
	_, err := f.orders.CancelOrder(ctx, first.ID, buyer.ID, "changed my mind")
	require.NoError(t, err)

	second := f.placeOrder(t, buyer, 1000, 1)
	assert.NotEqual(t, first.ID, second.ID)

	_, err = f.orders.GetOrder(ctx, first.ID)
	assert.ErrorIs(t, err, entity.ErrOrderNotFound)

	// Nothing terminal left to prune.
	p := f.product(t, 1000, 1)
	_, err = f.carts.AddItem(ctx, buyer.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, CreateOrderInput{BuyerID: buyer.ID, ShippingAddress: "Manila", PaymentMethod: entity.PaymentGCash})
	assert.ErrorIs(t, err, entity.ErrQuotaExceeded)
}

func TestOrderService_CancelRestocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")
	o := f.placeOrder(t, buyer, 1000, 2)
	productID := o.Items[0].ProductID
	require.Equal(t, 2, f.stock(t, productID))

	cancelled, err := f.orders.CancelOrder(ctx, o.ID, buyer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCancelled, cancelled.Status)
	assert.NotEmpty(t, cancelled.CancelReason)
	assert.Equal(t, 4, f.stock(t, productID))

	_, err = f.orders.CancelOrder(ctx, o.ID, buyer.ID, "again")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, 4, f.stock(t, productID))
}

func TestOrderService_UpdateFulfillment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")
	o := f.placeOrder(t, buyer, 1000, 1)

	_, err := f.orders.UpdateFulfillment(ctx, o.ID, entity.FulfillmentShipped, "")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = f.payments.ProcessPayment(ctx, ProcessPaymentInput{OrderID: o.ID})
	require.NoError(t, err)
	_, err = f.settlement.VerifyTransaction(ctx, VerifyInput{OrderID: o.ID, AdminID: "admin-1"})
	require.NoError(t, err)

	updated, err := f.orders.UpdateFulfillment(ctx, o.ID, entity.FulfillmentShipped, "LBC-77")
	require.NoError(t, err)
	assert.Equal(t, entity.FulfillmentShipped, updated.FulfillmentStatus)
	assert.Equal(t, "LBC-77", updated.TrackingNumber)

	_, err = f.orders.UpdateFulfillment(ctx, o.ID, entity.FulfillmentProcessing, "")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = f.orders.UpdateFulfillment(ctx, o.ID, "lost", "")
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOrderService_ReplayMatchesStoredOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.buyer(t, "juan@example.com")
	o := f.placeOrder(t, buyer, 2000, 1)

	_, err := f.payments.ProcessPayment(ctx, ProcessPaymentInput{OrderID: o.ID})
	require.NoError(t, err)
	stored, err := f.settlement.VerifyTransaction(ctx, VerifyInput{OrderID: o.ID, AdminID: "admin-1", TrackingNumber: "LBC-1"})
	require.NoError(t, err)

	replayed, err := f.orders.Replay(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Version, replayed.Version)
	assert.Equal(t, stored.Status, replayed.Status)
	assert.Equal(t, stored.PaymentStatus, replayed.PaymentStatus)
	assert.Equal(t, stored.FulfillmentStatus, replayed.FulfillmentStatus)
	assert.Equal(t, stored.TrackingNumber, replayed.TrackingNumber)
	assert.True(t, stored.Total.Equal(replayed.Total))
	require.NotNil(t, replayed.SellerAmount)
	assert.True(t, stored.Quote().SellerAmount().Equal(*replayed.SellerAmount))

	_, err = f.orders.Replay(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrOrderNotFound)
}

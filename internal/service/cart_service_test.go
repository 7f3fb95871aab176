package service

import (
	"context"
	"testing"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddItemMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1500, 5)

	_, err := f.carts.AddItem(ctx, "buyer-1", p.ID, 2)
	require.NoError(t, err)
	cart, err := f.carts.AddItem(ctx, "buyer-1", p.ID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)

	total, err := f.carts.Total(ctx, "buyer-1")
	require.NoError(t, err)
	assert.True(t, total.Equal(d("4500")))

	count, err := f.carts.ItemCount(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCartService_AddItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1500, 2)
	inactive := false
	hidden, err := f.catalog.Create(ctx, ProductInput{
		Name: "Hidden", Price: d("10"), Category: "Phones", Condition: entity.ConditionFair, Stock: 1, IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = f.carts.AddItem(ctx, "buyer-1", p.ID, 0)
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.carts.AddItem(ctx, "buyer-1", "missing", 1)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)

	_, err = f.carts.AddItem(ctx, "buyer-1", hidden.ID, 1)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)

	_, err = f.carts.AddItem(ctx, "buyer-1", p.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, "buyer-1", p.ID, 1)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	cart, err := f.carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.ItemCount())
}

func TestCartService_UpdateQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, 1000, 2)

	cart, err := f.carts.AddItem(ctx, "buyer-1", p.ID, 1)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	// No stock re-check on a direct quantity update.
	cart, err = f.carts.UpdateQuantity(ctx, "buyer-1", lineID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Quantity)

	_, err = f.carts.UpdateQuantity(ctx, "buyer-1", "nope", 2)
	assert.ErrorIs(t, err, entity.ErrCartLineNotFound)

	cart, err = f.carts.UpdateQuantity(ctx, "buyer-1", lineID, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	cart, err = f.carts.UpdateQuantity(ctx, "buyer-1", lineID, 0)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_RemoveAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, 1000, 2)
	b := f.product(t, 2000, 2)

	_, err := f.carts.AddItem(ctx, "buyer-1", a.ID, 1)
	require.NoError(t, err)
	cart, err := f.carts.AddItem(ctx, "buyer-1", b.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)

	cart, err = f.carts.RemoveItem(ctx, "buyer-1", cart.Lines[0].ID)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)

	require.NoError(t, f.carts.Clear(ctx, "buyer-1"))
	cart, err = f.carts.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

package service

import (
	"context"
	"testing"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, 12000, 2)
	assert.True(t, p.IsActive)

	name := "Used Phone (boxed)"
	price := d("11500")
	inactive := false
	updated, err := f.catalog.Update(ctx, p.ID, ProductPatch{Name: &name, Price: &price, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, updated.Price.Equal(price))
	assert.Equal(t, "Phones", updated.Category)

	public, err := f.catalog.List(ctx, entity.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, public)

	all, err := f.catalog.List(ctx, entity.ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	zero := d("0")
	_, err = f.catalog.Update(ctx, p.ID, ProductPatch{Price: &zero})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	require.NoError(t, f.catalog.Delete(ctx, p.ID))
	_, err = f.catalog.Get(ctx, p.ID)
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
	assert.ErrorIs(t, f.catalog.Delete(ctx, p.ID), entity.ErrProductNotFound)
}

func TestCatalogService_CreateValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Create(context.Background(), ProductInput{
		Name: "Tablet", Price: d("100"), Category: "Tablets", Condition: "Broken",
	})
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "condition", verr.Field)
}

func TestCatalogService_SeedAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.catalog.Seed(ctx))
	require.NoError(t, f.catalog.Seed(ctx))

	all, err := f.catalog.List(ctx, entity.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(starterCatalog))

	apple, err := f.catalog.List(ctx, entity.ProductFilter{Brand: "apple", Category: "phones"})
	require.NoError(t, err)
	require.Len(t, apple, 1)
	assert.Equal(t, "p-iphone-13", apple[0].ID)

	maxPrice := d("10000")
	cheap, err := f.catalog.List(ctx, entity.ProductFilter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	for _, p := range cheap {
		assert.True(t, p.Price.LessThanOrEqual(maxPrice))
	}

	found, err := f.catalog.List(ctx, entity.ProductFilter{Search: "ANC"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p-sony-xm4", found[0].ID)

	page, err := f.catalog.List(ctx, entity.ProductFilter{Limit: 3, Offset: 6})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	_, err = f.catalog.List(ctx, entity.ProductFilter{Limit: -1})
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
}

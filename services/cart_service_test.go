package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/services"
)

func TestAddItem_CreatesThenMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "2.50", 10)

	item, created, err := f.carts.AddItem(ctx, user, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, decimal.RequireFromString("7.50").Equal(item.Subtotal))

	merged, created, err := f.carts.AddItem(ctx, user, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, item.ID, merged.ID)
	assert.Equal(t, 7, merged.Quantity)

	cart, err := f.carts.GetCart(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, decimal.RequireFromString("17.50").Equal(cart.Total))
}

func TestAddItem_OverStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "1", 10)

	_, _, err := f.carts.AddItem(ctx, user, p.ID, 11)
	var stockErr *services.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, stockErr.Available)
	assert.Equal(t, "Not enough in stock.", stockErr.Error())
	assert.Equal(t, 0, f.cartLen(t, user))

	f.add(t, user, p.ID, 6)
	_, _, err = f.carts.AddItem(ctx, user, p.ID, 5)
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Only 10 items in stock.", stockErr.Error())

	cart, err := f.carts.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 6, cart.Items[0].Quantity)
	assert.Equal(t, 10, f.stock(t, p.ID), "cart mutations never touch stock")
}

func TestAddItem_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "1", 10)

	var validation *services.ValidationError
	_, _, err := f.carts.AddItem(ctx, user, p.ID, 0)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "quantity", validation.Field)

	_, _, err = f.carts.AddItem(ctx, user, uuid.New(), 1)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "product", validation.Field)

	p.IsActive = false
	require.NoError(t, f.store.Products().Update(ctx, p))
	_, _, err = f.carts.AddItem(ctx, user, p.ID, 1)
	var inactive *services.InactiveError
	assert.ErrorAs(t, err, &inactive)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "1", 5)
	other := f.product(t, "1", 5)
	item := f.add(t, user, p.ID, 2)

	qty := 4
	updated, deleted, err := f.carts.UpdateItem(ctx, user, item.ID, services.UpdateItemInput{Quantity: &qty})
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 4, updated.Quantity)

	qty = 6
	_, _, err = f.carts.UpdateItem(ctx, user, item.ID, services.UpdateItemInput{Quantity: &qty})
	var stockErr *services.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)

	var validation *services.ValidationError
	_, _, err = f.carts.UpdateItem(ctx, user, item.ID, services.UpdateItemInput{ProductID: &other.ID})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "product", validation.Field)

	qty = -1
	_, _, err = f.carts.UpdateItem(ctx, user, item.ID, services.UpdateItemInput{Quantity: &qty})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "quantity", validation.Field)

	var notFound *services.NotFoundError
	qty = 1
	_, _, err = f.carts.UpdateItem(ctx, uuid.New(), item.ID, services.UpdateItemInput{Quantity: &qty})
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "item", notFound.Key)

	qty = 0
	_, deleted, err = f.carts.UpdateItem(ctx, user, item.ID, services.UpdateItemInput{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 0, f.cartLen(t, user))
}

func TestRemoveItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	p := f.product(t, "1", 5)
	item := f.add(t, user, p.ID, 1)

	var notFound *services.NotFoundError
	assert.ErrorAs(t, f.carts.RemoveItem(ctx, uuid.New(), item.ID), &notFound)
	require.NoError(t, f.carts.RemoveItem(ctx, user, item.ID))
	assert.ErrorAs(t, f.carts.RemoveItem(ctx, user, item.ID), &notFound)
}

func TestGetCart_CreatedLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	cart, err := f.carts.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, user, cart.UserID)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	again, err := f.carts.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/services"
)

func TestLedger_ReserveAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := services.NewInventoryLedger()
	p := f.product(t, "5", 3)

	err := f.store.Transaction(ctx, func(tx repository.Store) error {
		got, err := ledger.Reserve(ctx, tx, p.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock)
		return ledger.Release(ctx, tx, p.ID, 5)
	})
	require.NoError(t, err)
	assert.Equal(t, 6, f.stock(t, p.ID), "release has no upper bound")
}

func TestLedger_ReserveRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := services.NewInventoryLedger()
	p := f.product(t, "5", 3)
	off := f.product(t, "5", 3)
	off.IsActive = false
	require.NoError(t, f.store.Products().Update(ctx, off))

	reserve := func(id uuid.UUID, qty int) error {
		return f.store.Transaction(ctx, func(tx repository.Store) error {
			_, err := ledger.Reserve(ctx, tx, id, qty)
			return err
		})
	}

	var validation *services.ValidationError
	require.ErrorAs(t, reserve(p.ID, 0), &validation)
	assert.Equal(t, "quantity", validation.Field)

	var notFound *services.NotFoundError
	require.ErrorAs(t, reserve(uuid.New(), 1), &notFound)
	assert.Equal(t, "product", notFound.Key)

	var inactive *services.InactiveError
	require.ErrorAs(t, reserve(off.ID, 1), &inactive)
	assert.Equal(t, off.ID, inactive.ProductID)

	var stock *services.StockError
	require.ErrorAs(t, reserve(p.ID, 4), &stock)
	assert.Equal(t, 3, stock.Available)
	assert.Equal(t, 4, stock.Requested)
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestLedger_LockInOrderDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := services.NewInventoryLedger()
	a := f.product(t, "1", 1)
	b := f.product(t, "1", 1)

	err := f.store.Transaction(ctx, func(tx repository.Store) error {
		return ledger.LockInOrder(ctx, tx, []uuid.UUID{b.ID, a.ID, b.ID})
	})
	assert.NoError(t, err)

	err = f.store.Transaction(ctx, func(tx repository.Store) error {
		return ledger.LockInOrder(ctx, tx, []uuid.UUID{a.ID, uuid.New()})
	})
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

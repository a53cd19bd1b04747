package services

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
)

// InventoryLedger mutates Product.stock. Every call must run on a
// transaction-bound store; the row lock it takes is held until commit.
type InventoryLedger struct{}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{}
}

// LockInOrder takes row locks on the distinct products in ascending ID order.
func (l *InventoryLedger) LockInOrder(ctx context.Context, tx repository.Store, productIDs []uuid.UUID) error {
	for _, id := range sortedDistinct(productIDs) {
		if _, err := l.lock(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

// Reserve re-reads the product under lock and decrements its stock.
func (l *InventoryLedger) Reserve(ctx context.Context, tx repository.Store, productID uuid.UUID, qty int) (*models.Product, error) {
	if qty < 1 {
		return nil, invalid("quantity", "Ensure this value is greater than or equal to 1.")
	}
	p, err := l.lock(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, &InactiveError{ProductID: p.ID}
	}
	if qty > p.Stock {
		return nil, &StockError{ProductID: p.ID, Requested: qty, Available: p.Stock}
	}

	p.Stock -= qty
	if err := tx.Products().UpdateStock(ctx, p.ID, p.Stock); err != nil {
		return nil, fmt.Errorf("decrement stock for product %s: %w", p.ID, err)
	}
	return p, nil
}

// Release adds qty back without an upper bound.
func (l *InventoryLedger) Release(ctx context.Context, tx repository.Store, productID uuid.UUID, qty int) error {
	p, err := l.lock(ctx, tx, productID)
	if err != nil {
		return err
	}
	p.Stock += qty
	if err := tx.Products().UpdateStock(ctx, p.ID, p.Stock); err != nil {
		return fmt.Errorf("restore stock for product %s: %w", p.ID, err)
	}
	return nil
}

func (l *InventoryLedger) lock(ctx context.Context, tx repository.Store, productID uuid.UUID) (*models.Product, error) {
	p, err := tx.Products().LockByID(ctx, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("product", "Product")
		}
		return nil, fmt.Errorf("lock product %s: %w", productID, err)
	}
	return p, nil
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

func sortedDistinct(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, compareUUID)
	return slices.Compact(out)
}

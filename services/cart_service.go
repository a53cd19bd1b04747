package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

// UpdateItemInput is a partial update; nil fields keep their value.
type UpdateItemInput struct {
	Quantity  *int
	ProductID *uuid.UUID
}

type CartService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCartService(store repository.Store, logger *zap.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// GetCart returns the user's cart with items, subtotals and total.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.store.Carts().GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	items, err := s.store.Carts().ListItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	cart.Items = items
	cart.ComputeTotals()
	return cart, nil
}

// AddItem merges into an existing line for the product or creates one.
// The bool result is true when a new line was created.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, bool, error) {
	if qty < 1 {
		return nil, false, invalid("quantity", "Ensure this value is greater than or equal to 1.")
	}

	var (
		item    *models.CartItem
		created bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		cart, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}

		product, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			if repository.IsNotFound(err) {
				return invalid("product", fmt.Sprintf("Invalid pk %q - object does not exist.", productID.String()))
			}
			return fmt.Errorf("load product: %w", err)
		}
		if !product.IsActive {
			return &InactiveError{ProductID: product.ID}
		}

		existing, err := tx.Carts().FindItemByProduct(ctx, cart.ID, product.ID)
		switch {
		case err == nil:
			final := existing.Quantity + qty
			if final > product.Stock {
				return &StockError{
					ProductID: product.ID,
					Requested: final,
					Available: product.Stock,
					Message:   fmt.Sprintf("Only %d items in stock.", product.Stock),
				}
			}
			if err := tx.Carts().UpdateItemQuantity(ctx, existing.ID, final); err != nil {
				return fmt.Errorf("merge cart item: %w", err)
			}
			existing.Quantity = final
			item = existing
		case repository.IsNotFound(err):
			if qty > product.Stock {
				return &StockError{ProductID: product.ID, Requested: qty, Available: product.Stock}
			}
			item = &models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: qty}
			if err := tx.Carts().CreateItem(ctx, item); err != nil {
				return fmt.Errorf("create cart item: %w", err)
			}
			created = true
		default:
			return fmt.Errorf("find cart item: %w", err)
		}

		item.Product = product
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	item.ComputeSubtotal()
	s.logger.Debug("cart item saved",
		zap.String("user_id", userID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", item.Quantity),
		zap.Bool("created", created),
	)
	return item, created, nil
}

// UpdateItem changes the quantity of an owned item. A resulting quantity of
// zero deletes it and reports deleted=true.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, in UpdateItemInput) (*models.CartItem, bool, error) {
	var (
		item    *models.CartItem
		deleted bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := lockCart(ctx, tx, userID); err != nil {
			return err
		}

		found, err := tx.Carts().FindItemForUser(ctx, itemID, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("item", "Item")
			}
			return fmt.Errorf("find cart item: %w", err)
		}
		if in.ProductID != nil && *in.ProductID != found.ProductID {
			return invalid("product", "Changing product is not allowed. Remove item and add another product.")
		}

		qty := found.Quantity
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		if qty < 0 {
			return invalid("quantity", "Ensure this value is greater than or equal to 0.")
		}
		if qty == 0 {
			deleted = true
			return tx.Carts().DeleteItem(ctx, found.ID)
		}

		product, err := tx.Products().FindByID(ctx, found.ProductID)
		if err != nil {
			return fmt.Errorf("load product: %w", err)
		}
		if !product.IsActive {
			return &InactiveError{ProductID: product.ID}
		}
		if qty > product.Stock {
			return &StockError{ProductID: product.ID, Requested: qty, Available: product.Stock}
		}
		if err := tx.Carts().UpdateItemQuantity(ctx, found.ID, qty); err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		found.Quantity = qty
		found.Product = product
		item = found
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if deleted {
		return nil, true, nil
	}
	item.ComputeSubtotal()
	return item, false, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := lockCart(ctx, tx, userID); err != nil {
			return err
		}
		item, err := tx.Carts().FindItemForUser(ctx, itemID, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("item", "Item")
			}
			return fmt.Errorf("find cart item: %w", err)
		}
		return tx.Carts().DeleteItem(ctx, item.ID)
	})
}

// lockCart serializes mutations of one user's cart.
func lockCart(ctx context.Context, tx repository.Store, userID uuid.UUID) (*models.Cart, error) {
	if _, err := tx.Carts().GetOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart, err := tx.Carts().LockByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return cart, nil
}

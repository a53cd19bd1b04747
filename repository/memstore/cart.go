package memstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"gorm.io/gorm"
)

type cartRepo struct{ h *handle }

func (r cartRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	return r.byUser(userID)
}

func (r cartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("carts.GetOrCreate"); err != nil {
		return nil, err
	}
	if cart, err := r.byUser(userID); err == nil {
		return cart, nil
	}
	cart := models.Cart{ID: uuid.New(), UserID: userID, CreatedAt: r.h.nextTime()}
	put(r.h, r.h.s.data.carts, cart.ID, cart)
	return &cart, nil
}

func (r cartRepo) LockByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if err := r.h.lock(ctx, rowKey("carts", userID)); err != nil {
		return nil, err
	}
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	return r.byUser(userID)
}

func (r cartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("carts.ListItems"); err != nil {
		return nil, err
	}
	var items []models.CartItem
	for _, item := range r.h.s.data.cartItems {
		if item.CartID == cartID {
			items = append(items, r.withProduct(item))
		}
	}
	sortBy(items, func(a, b models.CartItem) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return compareIDs(a.ID, b.ID) < 0
	})
	return items, nil
}

func (r cartRepo) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	for _, item := range r.h.s.data.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r cartRepo) FindItemForUser(ctx context.Context, itemID, userID uuid.UUID) (*models.CartItem, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	item, ok := r.h.s.data.cartItems[itemID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cart, ok := r.h.s.data.carts[item.CartID]
	if !ok || cart.UserID != userID {
		return nil, repository.ErrNotFound
	}
	found := r.withProduct(item)
	return &found, nil
}

func (r cartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("carts.CreateItem"); err != nil {
		return err
	}
	if item.Quantity < 1 {
		return checkViolation("cart_items_quantity_check")
	}
	for _, other := range r.h.s.data.cartItems {
		if other.CartID == item.CartID && other.ProductID == item.ProductID {
			return gorm.ErrDuplicatedKey
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.CreatedAt = r.h.nextTime()
	row := *item
	row.Product = nil
	put(r.h, r.h.s.data.cartItems, row.ID, row)
	return nil
}

func (r cartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("carts.UpdateItemQuantity"); err != nil {
		return err
	}
	item, ok := r.h.s.data.cartItems[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	if quantity < 1 {
		return checkViolation("cart_items_quantity_check")
	}
	item.Quantity = quantity
	put(r.h, r.h.s.data.cartItems, itemID, item)
	return nil
}

func (r cartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if !remove(r.h, r.h.s.data.cartItems, itemID) {
		return repository.ErrNotFound
	}
	return nil
}

func (r cartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("carts.ClearItems"); err != nil {
		return 0, err
	}
	var n int64
	for id, item := range r.h.s.data.cartItems {
		if item.CartID == cartID {
			remove(r.h, r.h.s.data.cartItems, id)
			n++
		}
	}
	return n, nil
}

// byUser must be called with mu held.
func (r cartRepo) byUser(userID uuid.UUID) (*models.Cart, error) {
	for _, cart := range r.h.s.data.carts {
		if cart.UserID == userID {
			return &cart, nil
		}
	}
	return nil, repository.ErrNotFound
}

// withProduct preloads the product. mu must be held.
func (r cartRepo) withProduct(item models.CartItem) models.CartItem {
	if p, ok := r.h.s.data.products[item.ProductID]; ok {
		item.Product = copyProduct(p)
	}
	return item
}

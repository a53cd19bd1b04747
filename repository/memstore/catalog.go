package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"gorm.io/gorm"
)

type productRepo struct{ h *handle }

func (r productRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.h.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r productRepo) LockByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if err := r.h.lock(ctx, rowKey("products", id)); err != nil {
		return nil, err
	}
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.LockByID"); err != nil {
		return nil, err
	}
	p, ok := r.h.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r productRepo) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int64, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []models.Product
	for _, p := range r.h.s.data.products {
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, *copyProduct(p))
	}

	less := func(a, b models.Product) bool { return b.CreatedAt.Before(a.CreatedAt) }
	switch f.Ordering {
	case "price":
		less = func(a, b models.Product) bool { return a.Price.LessThan(b.Price) }
	case "-price":
		less = func(a, b models.Product) bool { return b.Price.LessThan(a.Price) }
	case "created_at":
		less = func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return compareIDs(a.ID, b.ID) < 0
	})
	return page(matched, f.Page, f.PageSize), int64(len(matched)), nil
}

func (r productRepo) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	for _, p := range r.h.s.data.products {
		if p.Slug == slug && p.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (r productRepo) Create(ctx context.Context, p *models.Product) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.Create"); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := r.checkProduct(p); err != nil {
		return err
	}
	now := r.h.nextTime()
	p.CreatedAt, p.UpdatedAt = now, now
	put(r.h, r.h.s.data.products, p.ID, *copyProduct(*p))
	return nil
}

func (r productRepo) Update(ctx context.Context, p *models.Product) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.Update"); err != nil {
		return err
	}
	if err := r.checkProduct(p); err != nil {
		return err
	}
	if prev, ok := r.h.s.data.products[p.ID]; ok {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = r.h.nextTime()
	}
	p.UpdatedAt = r.h.nextTime()
	put(r.h, r.h.s.data.products, p.ID, *copyProduct(*p))
	return nil
}

func (r productRepo) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.UpdateStock"); err != nil {
		return err
	}
	p, ok := r.h.s.data.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if stock < 0 {
		return checkViolation("products_stock_check")
	}
	p.Stock = stock
	put(r.h, r.h.s.data.products, id, p)
	return nil
}

// Delete cascades to cart items and is restricted by order items, like the
// foreign keys.
func (r productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("products.Delete"); err != nil {
		return err
	}
	if _, ok := r.h.s.data.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, item := range r.h.s.data.orderItems {
		if item.ProductID == id {
			return foreignKeyViolation("fk_order_items_product")
		}
	}
	if !remove(r.h, r.h.s.data.products, id) {
		return repository.ErrNotFound
	}
	for itemID, item := range r.h.s.data.cartItems {
		if item.ProductID == id {
			remove(r.h, r.h.s.data.cartItems, itemID)
		}
	}
	return nil
}

// checkProduct enforces the unique slug, the stock check and the category
// foreign key. mu must be held.
func (r productRepo) checkProduct(p *models.Product) error {
	for _, other := range r.h.s.data.products {
		if other.Slug == p.Slug && other.ID != p.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	if p.Stock < 0 {
		return checkViolation("products_stock_check")
	}
	if p.CategoryID != nil {
		if _, ok := r.h.s.data.categories[*p.CategoryID]; !ok {
			return &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint on category_id"}
		}
	}
	return nil
}

type categoryRepo struct{ h *handle }

func (r categoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	c, ok := r.h.s.data.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r categoryRepo) List(ctx context.Context, f repository.CategoryFilter) ([]models.Category, int64, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []models.Category
	for _, c := range r.h.s.data.categories {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		matched = append(matched, c)
	}
	desc := f.Ordering == "-name"
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.Name != b.Name {
			return (a.Name < b.Name) != desc
		}
		return compareIDs(a.ID, b.ID) < 0
	})
	return page(matched, f.Page, f.PageSize), int64(len(matched)), nil
}

func (r categoryRepo) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	for _, c := range r.h.s.data.categories {
		if c.Slug == slug && c.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (r categoryRepo) Create(ctx context.Context, c *models.Category) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.Update(ctx, c)
}

func (r categoryRepo) Update(ctx context.Context, c *models.Category) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if err := r.h.fault("categories.Save"); err != nil {
		return err
	}
	for _, other := range r.h.s.data.categories {
		if other.Slug == c.Slug && other.ID != c.ID {
			return gorm.ErrDuplicatedKey
		}
	}
	put(r.h, r.h.s.data.categories, c.ID, *c)
	return nil
}

// Delete nulls product references like ON DELETE SET NULL.
func (r categoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.h.s.mu.Lock()
	defer r.h.s.mu.Unlock()
	if !remove(r.h, r.h.s.data.categories, id) {
		return repository.ErrNotFound
	}
	for pid, p := range r.h.s.data.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			put(r.h, r.h.s.data.products, pid, p)
		}
	}
	return nil
}

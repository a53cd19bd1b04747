package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/shop-service/metrics"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"go.uber.org/zap"
)

// ProductCache is a read-through cache for catalog reads.
type ProductCache interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, bool)
	SetProductAsync(p *models.Product)
	GetProductList(ctx context.Context, f repository.ProductFilter) (*models.ProductList, bool)
	SetProductListAsync(f repository.ProductFilter, list *models.ProductList)
	InvalidateProduct(ctx context.Context, id uuid.UUID)
	Invalidate(ctx context.Context) error
}

// ProductInput carries create/update fields. Nil means "not supplied".
type ProductInput struct {
	CategoryID    *uuid.UUID
	ClearCategory bool
	Name          *string
	Slug          *string
	Price         *decimal.Decimal
	Stock         *int
	IsActive      *bool
}

type CategoryInput struct {
	Name     *string
	Slug     *string
	IsActive *bool
}

type CatalogService struct {
	store   repository.Store
	cache   ProductCache
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewCatalogService accepts a nil cache.
func NewCatalogService(store repository.Store, cache ProductCache, rec metrics.Recorder, logger *zap.Logger) *CatalogService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &CatalogService{store: store, cache: cache, metrics: rec, logger: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context, f repository.ProductFilter) (*models.ProductList, error) {
	if s.cache != nil {
		if list, ok := s.cache.GetProductList(ctx, f); ok {
			s.metrics.CacheLookup(ctx, true)
			return list, nil
		}
		s.metrics.CacheLookup(ctx, false)
	}

	products, total, err := s.store.Products().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	list := &models.ProductList{Count: total, Results: products}
	if s.cache != nil {
		s.cache.SetProductListAsync(f, list)
	}
	return list, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.cache != nil {
		if p, ok := s.cache.GetProduct(ctx, id); ok {
			s.metrics.CacheLookup(ctx, true)
			return p, nil
		}
		s.metrics.CacheLookup(ctx, false)
	}

	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("product", "Product")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if s.cache != nil {
		s.cache.SetProductAsync(p)
	}
	return p, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{IsActive: true}
	if err := s.applyProduct(ctx, s.store, p, in, true); err != nil {
		return nil, err
	}
	if err := s.store.Products().Create(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, invalid("slug", "product with this slug already exists.")
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, p.ID)
	s.logger.Info("product created", zap.String("product_id", p.ID.String()), zap.String("slug", p.Slug))
	return p, nil
}

// UpdateProduct applies a full (PUT) or partial (PATCH) update. The row is
// locked so stock writes serialize with checkout and cancel.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput, partial bool) (*models.Product, error) {
	var updated *models.Product
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.Products().LockByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return notFound("product", "Product")
			}
			return fmt.Errorf("lock product: %w", err)
		}
		if err := s.applyProduct(ctx, tx, p, in, !partial); err != nil {
			return err
		}
		if err := tx.Products().Update(ctx, p); err != nil {
			if repository.IsUniqueViolation(err) {
				return invalid("slug", "product with this slug already exists.")
			}
			return fmt.Errorf("update product: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return notFound("product", "Product")
		}
		if repository.IsForeignKeyViolation(err) {
			return invalid("product", "Cannot delete a product that has been ordered.")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CatalogService) applyProduct(ctx context.Context, st repository.Store, p *models.Product, in ProductInput, full bool) error {
	if full {
		switch {
		case in.Name == nil:
			return invalid("name", "This field is required.")
		case in.Slug == nil:
			return invalid("slug", "This field is required.")
		case in.Price == nil:
			return invalid("price", "This field is required.")
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name", "This field may not be blank.")
		}
		p.Name = name
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if err := validateSlug(slug); err != nil {
			return err
		}
		taken, err := st.Products().SlugTaken(ctx, slug, p.ID)
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if taken {
			return invalid("slug", "product with this slug already exists.")
		}
		p.Slug = slug
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return invalid("price", "Ensure this value is greater than or equal to 0.")
		}
		if in.Price.Exponent() < -2 || in.Price.Truncate(0).Abs().GreaterThanOrEqual(decimal.New(1, 8)) {
			return invalid("price", "Ensure that there are no more than 10 digits in total, 2 after the decimal point.")
		}
		p.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return invalid("stock", "Ensure this value is greater than or equal to 0.")
		}
		p.Stock = *in.Stock
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	switch {
	case in.ClearCategory:
		p.CategoryID = nil
	case in.CategoryID != nil:
		if _, err := st.Categories().FindByID(ctx, *in.CategoryID); err != nil {
			if repository.IsNotFound(err) {
				return invalid("category", fmt.Sprintf("Invalid pk %q - object does not exist.", in.CategoryID.String()))
			}
			return fmt.Errorf("load category: %w", err)
		}
		id := *in.CategoryID
		p.CategoryID = &id
	}
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, id)
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, f repository.CategoryFilter) ([]models.Category, int64, error) {
	categories, total, err := s.store.Categories().List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	return categories, total, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.store.Categories().FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("category", "Category")
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	c := &models.Category{IsActive: true}
	if err := s.applyCategory(ctx, c, in, true); err != nil {
		return nil, err
	}
	if err := s.store.Categories().Create(ctx, c); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, invalid("slug", "category with this slug already exists.")
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput, partial bool) (*models.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategory(ctx, c, in, !partial); err != nil {
		return nil, err
	}
	if err := s.store.Categories().Update(ctx, c); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, invalid("slug", "category with this slug already exists.")
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory leaves products in place with a null category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Categories().Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return notFound("category", "Category")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

func (s *CatalogService) applyCategory(ctx context.Context, c *models.Category, in CategoryInput, full bool) error {
	if full {
		if in.Name == nil {
			return invalid("name", "This field is required.")
		}
		if in.Slug == nil {
			return invalid("slug", "This field is required.")
		}
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return invalid("name", "This field may not be blank.")
		}
		c.Name = name
	}
	if in.Slug != nil {
		slug := strings.TrimSpace(*in.Slug)
		if err := validateSlug(slug); err != nil {
			return err
		}
		taken, err := s.store.Categories().SlugTaken(ctx, slug, c.ID)
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if taken {
			return invalid("slug", "category with this slug already exists.")
		}
		c.Slug = slug
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return invalid("slug", "This field may not be blank.")
	}
	for _, r := range slug {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return invalid("slug", "Enter a valid \"slug\" consisting of letters, numbers, underscores or hyphens.")
		}
	}
	return nil
}

package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

// ---- mock cache ----

type fakeCache struct {
	mu          sync.Mutex
	products    map[uuid.UUID]*models.Product
	lists       int
	invalidated []uuid.UUID
	flushes     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{products: map[uuid.UUID]*models.Product{}}
}

func (c *fakeCache) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *fakeCache) SetProductAsync(p *models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *fakeCache) GetProductList(context.Context, repository.ProductFilter) (*models.ProductList, bool) {
	return nil, false
}

func (c *fakeCache) SetProductListAsync(repository.ProductFilter, *models.ProductList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists++
}

func (c *fakeCache) InvalidateProduct(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
	c.invalidated = append(c.invalidated, id)
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validProduct(slug string) services.ProductInput {
	return services.ProductInput{
		Name:  strPtr("Desk Lamp"),
		Slug:  strPtr(slug),
		Price: decPtr("19.99"),
		Stock: intPtr(4),
	}
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, validProduct("desk-lamp"))
	require.NoError(t, err)
	assert.True(t, p.IsActive, "products default to active")
	assert.Equal(t, 4, p.Stock)
	assert.NotEqual(t, uuid.Nil, p.ID)

	var validation *services.ValidationError
	_, err = f.catalog.CreateProduct(ctx, validProduct("desk-lamp"))
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "slug", validation.Field)

	cases := []struct {
		name  string
		in    services.ProductInput
		field string
	}{
		{"missing name", services.ProductInput{Slug: strPtr("a"), Price: decPtr("1")}, "name"},
		{"bad slug", services.ProductInput{Name: strPtr("a"), Slug: strPtr("not a slug"), Price: decPtr("1")}, "slug"},
		{"negative price", services.ProductInput{Name: strPtr("a"), Slug: strPtr("a"), Price: decPtr("-1")}, "price"},
		{"three decimals", services.ProductInput{Name: strPtr("a"), Slug: strPtr("a"), Price: decPtr("1.005")}, "price"},
		{"negative stock", services.ProductInput{Name: strPtr("a"), Slug: strPtr("a"), Price: decPtr("1"), Stock: intPtr(-1)}, "stock"},
		{"unknown category", services.ProductInput{Name: strPtr("a"), Slug: strPtr("a"), Price: decPtr("1"), CategoryID: ptrUUID(uuid.New())}, "category"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.catalog.CreateProduct(ctx, tc.in)
			var validation *services.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

func TestUpdateProduct_PartialAndFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.catalog.CreateProduct(ctx, validProduct("lamp"))
	require.NoError(t, err)

	patched, err := f.catalog.UpdateProduct(ctx, p.ID, services.ProductInput{Stock: intPtr(9)}, true)
	require.NoError(t, err)
	assert.Equal(t, 9, patched.Stock)
	assert.Equal(t, "Desk Lamp", patched.Name)

	var validation *services.ValidationError
	_, err = f.catalog.UpdateProduct(ctx, p.ID, services.ProductInput{Stock: intPtr(1)}, false)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "name", validation.Field)

	var notFound *services.NotFoundError
	_, err = f.catalog.UpdateProduct(ctx, uuid.New(), services.ProductInput{}, true)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "product", notFound.Key)
}

func TestDeleteCategory_NullsProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat, err := f.catalog.CreateCategory(ctx, services.CategoryInput{Name: strPtr("Lighting"), Slug: strPtr("lighting")})
	require.NoError(t, err)

	in := validProduct("lamp")
	in.CategoryID = &cat.ID
	p, err := f.catalog.CreateProduct(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, p.CategoryID)

	require.NoError(t, f.catalog.DeleteCategory(ctx, cat.ID))
	got, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	var notFound *services.NotFoundError
	assert.ErrorAs(t, f.catalog.DeleteCategory(ctx, cat.ID), &notFound)
}

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"Beta", "alpha", "Gamma"} {
		_, err := f.catalog.CreateCategory(ctx, services.CategoryInput{Name: strPtr(name), Slug: strPtr(name)})
		require.NoError(t, err)
	}

	var validation *services.ValidationError
	_, err := f.catalog.CreateCategory(ctx, services.CategoryInput{Name: strPtr("Dup"), Slug: strPtr("Beta")})
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "slug", validation.Field)

	list, total, err := f.catalog.ListCategories(ctx, repository.CategoryFilter{Ordering: "-name"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "alpha", list[0].Name)

	list, total, err = f.catalog.ListCategories(ctx, repository.CategoryFilter{Search: "AMM"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Gamma", list[0].Name)

	updated, err := f.catalog.UpdateCategory(ctx, list[0].ID, services.CategoryInput{IsActive: new(bool)}, true)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestListProducts_FiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cheap := f.product(t, "1", 1)
	pricey := f.product(t, "50", 1)
	hidden := f.product(t, "10", 1)
	hidden.IsActive = false
	require.NoError(t, f.store.Products().Update(ctx, hidden))

	list, err := f.catalog.ListProducts(ctx, repository.ProductFilter{Ordering: "-price"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Count)
	assert.Equal(t, pricey.ID, list.Results[0].ID)

	active := true
	list, err = f.catalog.ListProducts(ctx, repository.ProductFilter{IsActive: &active, Ordering: "price"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Count)
	assert.Equal(t, cheap.ID, list.Results[0].ID)

	list, err = f.catalog.ListProducts(ctx, repository.ProductFilter{PageSize: 2, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Count)
	assert.Len(t, list.Results, 1)
	assert.Equal(t, cheap.ID, list.Results[0].ID, "default ordering is newest first")
}

func TestCatalog_UsesCache(t *testing.T) {
	store := newFixture(t).store
	cache := newFakeCache()
	rec := newRecordingMetrics()
	catalog := services.NewCatalogService(store, cache, rec, zap.NewNop())
	ctx := context.Background()

	p, err := catalog.CreateProduct(ctx, validProduct("cached"))
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, p.ID)

	_, err = catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	_, err = catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.cacheMisses)
	assert.Equal(t, 1, rec.cacheHits)

	_, err = catalog.UpdateProduct(ctx, p.ID, services.ProductInput{Stock: intPtr(0)}, true)
	require.NoError(t, err)
	_, cached := cache.GetProduct(ctx, p.ID)
	assert.False(t, cached, "update evicts the product")

	_, err = catalog.ListProducts(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.lists)
}

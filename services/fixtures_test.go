package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository/memstore"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

// ---- mock metrics ----

type recordingMetrics struct {
	mu          sync.Mutex
	completed   int
	failed      map[string]int
	released    int
	transitions map[string]int
	cacheHits   int
	cacheMisses int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{failed: map[string]int{}, transitions: map[string]int{}}
}

func (m *recordingMetrics) CheckoutCompleted(_ context.Context, _ decimal.Decimal, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *recordingMetrics) CheckoutFailed(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[reason]++
}

func (m *recordingMetrics) StockReleased(_ context.Context, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released += units
}

func (m *recordingMetrics) OrderTransitioned(_ context.Context, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[status]++
}

func (m *recordingMetrics) CacheLookup(_ context.Context, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

// ---- mock idempotency store ----

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]uuid.UUID
}

func (m *memIdempotency) Lookup(_ context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[userID.String()+":"+key]
	return id, ok, nil
}

func (m *memIdempotency) Remember(_ context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[userID.String()+":"+key] = orderID
	return nil
}

// ---- helpers ----

type fixture struct {
	store    *memstore.Store
	metrics  *recordingMetrics
	idem     *memIdempotency
	carts    *services.CartService
	checkout *services.CheckoutService
	orders   *services.OrderService
	catalog  *services.CatalogService
}

func newFixture(t *testing.T, opts ...memstore.Option) *fixture {
	t.Helper()
	store := memstore.New(opts...)
	rec := newRecordingMetrics()
	idem := &memIdempotency{keys: map[string]uuid.UUID{}}
	ledger := services.NewInventoryLedger()
	logger := zap.NewNop()
	return &fixture{
		store:    store,
		metrics:  rec,
		idem:     idem,
		carts:    services.NewCartService(store, logger),
		checkout: services.NewCheckoutService(store, ledger, idem, rec, logger),
		orders:   services.NewOrderService(store, ledger, rec, logger),
		catalog:  services.NewCatalogService(store, nil, rec, logger),
	}
}

func (f *fixture) product(t *testing.T, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     "Product " + uuid.NewString()[:8],
		Slug:     "p-" + uuid.NewString(),
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) add(t *testing.T, userID, productID uuid.UUID, qty int) *models.CartItem {
	t.Helper()
	item, _, err := f.carts.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
	return item
}

func (f *fixture) cartLen(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	cart, err := f.carts.GetCart(context.Background(), userID)
	require.NoError(t, err)
	return len(cart.Items)
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/middleware"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/services"
)

// ---- mock cart service ----

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, bool, error) {
	args := m.Called(ctx, userID, productID, qty)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.CartItem), args.Bool(1), args.Error(2)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, in services.UpdateItemInput) (*models.CartItem, bool, error) {
	args := m.Called(ctx, userID, itemID, in)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.CartItem), args.Bool(1), args.Error(2)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

// ---- mock checkout and order services ----

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) CheckoutIdempotent(ctx context.Context, userID uuid.UUID, key string) (*models.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Order), args.Bool(1), args.Error(2)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, userID))
}

func (m *MockOrderService) Pay(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, userID))
}

func (m *MockOrderService) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return m.order(m.Called(ctx, orderID, userID))
}

func (m *MockOrderService) order(args mock.Arguments) (*models.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

// ---- mock catalog service ----

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListProducts(ctx context.Context, f repository.ProductFilter) (*models.ProductList, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductList), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return m.product(m.Called(ctx, id))
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, in services.ProductInput) (*models.Product, error) {
	return m.product(m.Called(ctx, in))
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in services.ProductInput, partial bool) (*models.Product, error) {
	return m.product(m.Called(ctx, id, in, partial))
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) ListCategories(ctx context.Context, f repository.CategoryFilter) ([]models.Category, int64, error) {
	args := m.Called(ctx, f)
	categories, _ := args.Get(0).([]models.Category)
	return categories, args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return m.category(m.Called(ctx, id))
}

func (m *MockCatalogService) CreateCategory(ctx context.Context, in services.CategoryInput) (*models.Category, error) {
	return m.category(m.Called(ctx, in))
}

func (m *MockCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in services.CategoryInput, partial bool) (*models.Category, error) {
	return m.category(m.Called(ctx, id, in, partial))
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) product(args mock.Arguments) (*models.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockCatalogService) category(args mock.Arguments) (*models.Category, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

// ---- mock auth service ----

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) ObtainTokens(ctx context.Context, username, password string) (*services.TokenPair, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TokenPair), args.Error(1)
}

func (m *MockAuthService) Refresh(refreshToken string) (string, error) {
	args := m.Called(refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Verify(token string) error {
	return m.Called(token).Error(0)
}

// ---- helpers ----

// asUser stands in for the auth middleware.
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, id)
		c.Next()
	}
}

func newRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != uuid.Nil {
		r.Use(asUser(userID))
	}
	return r
}

func do(r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

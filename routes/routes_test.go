package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/controllers"
	"github.com/yashrajoria/shop-service/metrics"
	"github.com/yashrajoria/shop-service/repository/memstore"
	"github.com/yashrajoria/shop-service/routes"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

// ---- helpers ----

type client struct {
	t      *testing.T
	router *gin.Engine
}

func (c client) call(method, path, token, body string) (int, map[string]interface{}) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func (c client) login(username, password string) string {
	c.t.Helper()
	status, body := c.call(http.MethodPost, "/token/", "", fmt.Sprintf(`{"username": %q, "password": %q}`, username, password))
	require.Equal(c.t, http.StatusOK, status, body)
	return body["access"].(string)
}

func newApp(t *testing.T) (client, *memstore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	rec := metrics.NewBusiness(reg, "shop-service", nil)

	tokens, err := services.NewTokenService("routes-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	auth := services.NewAuthService(store, tokens, logger)
	require.NoError(t, auth.EnsureAdmin(context.Background(), "admin", "admin-password"))
	ledger := services.NewInventoryLedger()

	r := gin.New()
	routes.RegisterRoutes(r, routes.Controllers{
		Catalog: controllers.NewCatalogController(services.NewCatalogService(store, nil, rec, logger)),
		Cart:    controllers.NewCartController(services.NewCartService(store, logger)),
		Order: controllers.NewOrderController(
			services.NewCheckoutService(store, ledger, nil, rec, logger),
			services.NewOrderService(store, ledger, rec, logger),
		),
		Auth: controllers.NewAuthController(auth),
	}, tokens, metrics.Handler(reg))
	return client{t: t, router: r}, store
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := newApp(t)
	status, body := app.call(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShoppingFlow(t *testing.T) {
	app, store := newApp(t)
	admin := app.login("admin", "admin-password")

	status, _ := app.call(http.MethodPost, "/register/", "", `{"username": "buyer", "email": "buyer@example.com", "password": "buyer-password"}`)
	require.Equal(t, http.StatusCreated, status)
	buyer := app.login("buyer", "buyer-password")

	status, _ = app.call(http.MethodPost, "/products/", buyer, `{"name": "A", "slug": "a", "price": "2000", "stock": 10}`)
	assert.Equal(t, http.StatusForbidden, status, "customers cannot write the catalog")

	status, a := app.call(http.MethodPost, "/products/", admin, `{"name": "A", "slug": "a", "price": "2000", "stock": 10}`)
	require.Equal(t, http.StatusCreated, status, a)
	status, b := app.call(http.MethodPost, "/products/", admin, `{"name": "B", "slug": "b", "price": "1000", "stock": 10}`)
	require.Equal(t, http.StatusCreated, status, b)

	status, list := app.call(http.MethodGet, "/products/?ordering=price", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, list["count"])

	status, _ = app.call(http.MethodPost, "/cart/items/", buyer, fmt.Sprintf(`{"product": %q, "quantity": 1}`, a["id"]))
	require.Equal(t, http.StatusCreated, status)
	status, _ = app.call(http.MethodPost, "/cart/items/", buyer, fmt.Sprintf(`{"product": %q, "quantity": 1}`, b["id"]))
	require.Equal(t, http.StatusCreated, status)
	status, merged := app.call(http.MethodPost, "/cart/items/", buyer, fmt.Sprintf(`{"product": %q, "quantity": 1}`, b["id"]))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, merged["quantity"])

	status, over := app.call(http.MethodPost, "/cart/items/", buyer, fmt.Sprintf(`{"product": %q, "quantity": 11}`, a["id"]))
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "quantity", over["key"])

	status, order := app.call(http.MethodPost, "/orders/checkout/", buyer, "")
	require.Equal(t, http.StatusCreated, status, order)
	assert.Equal(t, "NEW", order["status"])
	assert.Equal(t, "4000", order["total_price"])

	status, cart := app.call(http.MethodGet, "/cart/", buyer, "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, cart["items"])

	status, empty := app.call(http.MethodPost, "/orders/checkout/", buyer, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "cart", empty["key"])

	orderPath := fmt.Sprintf("/orders/%s/", order["id"])
	status, cancelled := app.call(http.MethodPost, orderPath+"cancel/", buyer, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CANCELLED", cancelled["status"])

	status, again := app.call(http.MethodPost, orderPath+"cancel/", buyer, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "status", again["key"])

	status, _ = app.call(http.MethodGet, orderPath, admin, "")
	assert.Equal(t, http.StatusNotFound, status, "orders are scoped to their owner")

	status, orders := app.call(http.MethodGet, "/orders/", buyer, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, orders["count"])

	status, _ = app.call(http.MethodGet, "/orders/", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	for _, p := range []map[string]interface{}{a, b} {
		status, got := app.call(http.MethodGet, fmt.Sprintf("/products/%s/", p["id"]), "", "")
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 10, got["stock"], "cancel restores stock")
	}
	assert.Len(t, store.Events(), 2)

	status, body := app.call(http.MethodDelete, fmt.Sprintf("/products/%s/", a["id"]), admin, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "product", body["key"], "ordered products stay")
}

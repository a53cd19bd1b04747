package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/shop-service/logger"
	"github.com/yashrajoria/shop-service/middleware"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) { RespondError(c, err) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondError_Mapping(t *testing.T) {
	productID := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		key    string
		detail string
	}{
		{"validation", &services.ValidationError{Field: "quantity", Message: "bad"}, http.StatusBadRequest, "quantity", "bad"},
		{"not found default key", &services.NotFoundError{}, http.StatusNotFound, "object", "Object not found."},
		{"not found order", &services.NotFoundError{Key: "order", Message: "Order not found."}, http.StatusNotFound, "order", "Order not found."},
		{"inactive", &services.InactiveError{ProductID: productID}, http.StatusBadRequest, "product", "Product is inactive."},
		{"empty cart", &services.EmptyCartError{}, http.StatusBadRequest, "cart", "Cart is empty."},
		{"invalid state", &services.InvalidStateError{Status: "PAID", Message: "Only NEW orders can be paid."}, http.StatusBadRequest, "status", "Only NEW orders can be paid."},
		{"auth", &services.AuthError{Message: "nope"}, http.StatusUnauthorized, "auth", "nope"},
		{"permission", &services.PermissionError{Message: "denied"}, http.StatusForbidden, "auth", "denied"},
		{"wrapped", fmt.Errorf("checkout: %w", &services.EmptyCartError{}), http.StatusBadRequest, "cart", "Cart is empty."},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "server", "A server error occurred."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := respond(t, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.key, body["key"])
			assert.Equal(t, tc.detail, body["detail"])
		})
	}
}

func TestRespondError_StockContext(t *testing.T) {
	itemID, productID := uuid.New(), uuid.New()

	_, body := respond(t, &services.StockError{Available: 10})
	assert.EqualValues(t, 10, body["available"])
	assert.NotContains(t, body, "item_id")

	_, body = respond(t, &services.StockError{ItemID: itemID, ProductID: productID, Requested: 3, Available: 1, Message: "Not enough stock."})
	assert.Equal(t, "Not enough stock.", body["detail"])
	assert.Equal(t, itemID.String(), body["item_id"])
	assert.Equal(t, productID.String(), body["product_id"])
	assert.EqualValues(t, 3, body["requested"])
	assert.EqualValues(t, 1, body["available"])
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })
	return logs
}

func TestRespondError_TransientLogsCause(t *testing.T) {
	t.Run("lock timeout", func(t *testing.T) {
		logs := observeLogs(t)
		w, _ := respond(t, &pgconn.PgError{Code: "55P03"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "database", logs.All()[0].ContextMap()["cause"])
	})

	t.Run("operation deadline", func(t *testing.T) {
		logs := observeLogs(t)
		w, _ := respond(t, fmt.Errorf("load cart: %w", context.DeadlineExceeded))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "operation_deadline", logs.All()[0].ContextMap()["cause"])
	})

	t.Run("request timeout", func(t *testing.T) {
		logs := observeLogs(t)
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(middleware.RequestTimeout(time.Millisecond))
		router.GET("/", func(c *gin.Context) {
			<-c.Request.Context().Done()
			RespondError(c, c.Request.Context().Err())
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "request_timeout", logs.All()[0].ContextMap()["cause"])
	})
}

func TestRespondError_TransientIsRetryable(t *testing.T) {
	w, body := respond(t, fmt.Errorf("lock product: %w", &pgconn.PgError{Code: "55P03"}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "retry", body["key"])
}

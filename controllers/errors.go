package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/logger"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/services"
	"go.uber.org/zap"
)

// errorMapping turns a service error into a status and response body.
type errorMapping func(err error) (int, gin.H, bool)

// errorTable is checked in order; the first match wins.
var errorTable = []errorMapping{
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.ValidationError](err)
		if !ok {
			return 0, nil, false
		}
		return http.StatusBadRequest, errorBody(e.Message, e.Field), true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.NotFoundError](err)
		if !ok {
			return 0, nil, false
		}
		key := e.Key
		if key == "" {
			key = "object"
		}
		return http.StatusNotFound, errorBody(e.Error(), key), true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.InactiveError](err)
		if !ok {
			return 0, nil, false
		}
		body := errorBody(e.Error(), "product")
		body["product_id"] = e.ProductID
		return http.StatusBadRequest, body, true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.StockError](err)
		if !ok {
			return 0, nil, false
		}
		body := errorBody(e.Error(), "quantity")
		body["available"] = e.Available
		if e.ItemID != uuid.Nil {
			body["item_id"] = e.ItemID
			body["product_id"] = e.ProductID
			body["requested"] = e.Requested
		}
		return http.StatusBadRequest, body, true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.EmptyCartError](err)
		if !ok {
			return 0, nil, false
		}
		return http.StatusBadRequest, errorBody(e.Error(), "cart"), true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.InvalidStateError](err)
		if !ok {
			return 0, nil, false
		}
		body := errorBody(e.Error(), "status")
		body["status"] = e.Status
		return http.StatusBadRequest, body, true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.AuthError](err)
		if !ok {
			return 0, nil, false
		}
		return http.StatusUnauthorized, errorBody(e.Error(), "auth"), true
	},
	func(err error) (int, gin.H, bool) {
		e, ok := as[*services.PermissionError](err)
		if !ok {
			return 0, nil, false
		}
		return http.StatusForbidden, errorBody(e.Error(), "auth"), true
	},
	func(err error) (int, gin.H, bool) {
		if !repository.IsTransient(err) && !errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, false
		}
		return http.StatusServiceUnavailable, errorBody("Resource is busy, retry the request.", "retry"), true
	},
}

// RespondError writes the mapped error. Unmapped errors become a 500.
func RespondError(c *gin.Context, err error) {
	for _, m := range errorTable {
		if status, body, ok := m(err); ok {
			if status == http.StatusServiceUnavailable {
				c.Header("Retry-After", "1")
				logger.Warn(c, "transient failure", zap.String("cause", transientCause(c, err)), zapErr(err))
			}
			c.AbortWithStatusJSON(status, body)
			return
		}
	}
	logger.Error(c, "request failed", err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("A server error occurred.", "server"))
}

func errorBody(detail, key string) gin.H {
	return gin.H{"detail": detail, "key": key}
}

func as[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// transientCause names what made the request retryable: a database lock or
// serialization failure, the request deadline, or a deadline set by the
// operation itself.
func transientCause(c *gin.Context, err error) string {
	switch {
	case repository.IsTransient(err):
		return "database"
	case errors.Is(c.Request.Context().Err(), context.DeadlineExceeded):
		return "request_timeout"
	default:
		return "operation_deadline"
	}
}

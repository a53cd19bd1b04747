package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/models"
)

// IdempotencyHeader lets clients retry a checkout without creating a second order.
const IdempotencyHeader = "Idempotency-Key"

type CheckoutAPI interface {
	CheckoutIdempotent(ctx context.Context, userID uuid.UUID, key string) (*models.Order, bool, error)
}

type OrderServiceAPI interface {
	ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	Pay(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
}

type OrderController struct {
	checkout CheckoutAPI
	orders   OrderServiceAPI
}

func NewOrderController(checkout CheckoutAPI, orders OrderServiceAPI) *OrderController {
	return &OrderController{checkout: checkout, orders: orders}
}

func (ctrl *OrderController) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if len(key) > 255 {
		RespondError(c, invalidHeader())
		return
	}

	order, replayed, err := ctrl.checkout.CheckoutIdempotent(c.Request.Context(), userID, key)
	if err != nil {
		RespondError(c, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, order)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (ctrl *OrderController) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, size, err := parsePagination(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	orders, total, err := ctrl.orders.ListOrders(c.Request.Context(), userID, page, size)
	if err != nil {
		RespondError(c, err)
		return
	}
	paginated(c, total, page, size, orders)
}

func (ctrl *OrderController) GetOrder(c *gin.Context) {
	ctrl.withOrder(c, ctrl.orders.GetOrder)
}

func (ctrl *OrderController) Pay(c *gin.Context) {
	ctrl.withOrder(c, ctrl.orders.Pay)
}

func (ctrl *OrderController) Cancel(c *gin.Context) {
	ctrl.withOrder(c, ctrl.orders.Cancel)
}

func (ctrl *OrderController) withOrder(c *gin.Context, op func(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := parseID(c, "order", "Order")
	if !ok {
		return
	}
	order, err := op(c.Request.Context(), orderID, userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

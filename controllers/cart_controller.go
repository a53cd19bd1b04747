package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/shop-service/middleware"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/services"
)

type CartServiceAPI interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartItem, bool, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, in services.UpdateItemInput) (*models.CartItem, bool, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type CartController struct {
	service CartServiceAPI
}

func NewCartController(s CartServiceAPI) *CartController {
	return &CartController{service: s}
}

type addItemRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity *int   `json:"quantity" validate:"required"`
}

type updateItemRequest struct {
	Product  *string `json:"product"`
	Quantity *int    `json:"quantity"`
}

func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := ctrl.service.GetCart(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem answers 201 for a new line and 200 when merged into an existing one.
func (ctrl *CartController) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	productID, err := parseProductRef(req.Product)
	if err != nil {
		RespondError(c, err)
		return
	}

	item, created, err := ctrl.service.AddItem(c.Request.Context(), userID, productID, *req.Quantity)
	if err != nil {
		RespondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, item)
}

func (ctrl *CartController) UpdateItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item", "Item")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	in := services.UpdateItemInput{Quantity: req.Quantity}
	if req.Product != nil {
		productID, err := parseProductRef(*req.Product)
		if err != nil {
			RespondError(c, err)
			return
		}
		in.ProductID = &productID
	}

	item, deleted, err := ctrl.service.UpdateItem(c.Request.Context(), userID, itemID, in)
	if err != nil {
		RespondError(c, err)
		return
	}
	if deleted {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (ctrl *CartController) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item", "Item")
	if !ok {
		return
	}
	if err := ctrl.service.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseProductRef(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &services.ValidationError{Field: "product", Message: fmt.Sprintf("Invalid pk %q - object does not exist.", raw)}
	}
	return id, nil
}

// currentUser reads the identity set by the auth middleware.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		RespondError(c, &services.AuthError{Message: "Authentication credentials were not provided."})
		return uuid.Nil, false
	}
	return id, true
}

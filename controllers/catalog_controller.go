package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/services"
)

// CatalogServiceAPI defines the catalog operations used by the HTTP layer.
type CatalogServiceAPI interface {
	ListProducts(ctx context.Context, f repository.ProductFilter) (*models.ProductList, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, in services.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in services.ProductInput, partial bool) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context, f repository.CategoryFilter) ([]models.Category, int64, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	CreateCategory(ctx context.Context, in services.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in services.CategoryInput, partial bool) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type CatalogController struct {
	service CatalogServiceAPI
}

func NewCatalogController(s CatalogServiceAPI) *CatalogController {
	return &CatalogController{service: s}
}

type productRequest struct {
	Category nullableUUID     `json:"category"`
	Name     *string          `json:"name" validate:"omitempty,max=255"`
	Slug     *string          `json:"slug" validate:"omitempty,max=255"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock"`
	IsActive *bool            `json:"is_active"`
}

func (r productRequest) input() services.ProductInput {
	in := services.ProductInput{
		Name:     r.Name,
		Slug:     r.Slug,
		Price:    r.Price,
		Stock:    r.Stock,
		IsActive: r.IsActive,
	}
	if r.Category.Set {
		if r.Category.Valid {
			id := r.Category.ID
			in.CategoryID = &id
		} else {
			in.ClearCategory = true
		}
	}
	return in
}

type categoryRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Slug     *string `json:"slug" validate:"omitempty,max=255"`
	IsActive *bool   `json:"is_active"`
}

func (r categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{Name: r.Name, Slug: r.Slug, IsActive: r.IsActive}
}

func (ctrl *CatalogController) ListProducts(c *gin.Context) {
	page, size, err := parsePagination(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	f := repository.ProductFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Page:     page,
		PageSize: size,
	}
	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, &services.ValidationError{Field: "category", Message: "Select a valid choice. That choice is not one of the available choices."})
			return
		}
		f.CategoryID = &id
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			RespondError(c, &services.ValidationError{Field: "is_active", Message: "Enter a valid boolean."})
			return
		}
		f.IsActive = &active
	}

	list, err := ctrl.service.ListProducts(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	paginated(c, list.Count, page, size, list.Results)
}

func (ctrl *CatalogController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product", "Product")
	if !ok {
		return
	}
	product, err := ctrl.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (ctrl *CatalogController) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	product, err := ctrl.service.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct serves both PUT and PATCH.
func (ctrl *CatalogController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "product", "Product")
	if !ok {
		return
	}
	var req productRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	partial := c.Request.Method == http.MethodPatch
	product, err := ctrl.service.UpdateProduct(c.Request.Context(), id, req.input(), partial)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (ctrl *CatalogController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "product", "Product")
	if !ok {
		return
	}
	if err := ctrl.service.DeleteProduct(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *CatalogController) ListCategories(c *gin.Context) {
	page, size, err := parsePagination(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	f := repository.CategoryFilter{
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Page:     page,
		PageSize: size,
	}
	categories, total, err := ctrl.service.ListCategories(c.Request.Context(), f)
	if err != nil {
		RespondError(c, err)
		return
	}
	paginated(c, total, page, size, categories)
}

func (ctrl *CatalogController) GetCategory(c *gin.Context) {
	id, ok := parseID(c, "category", "Category")
	if !ok {
		return
	}
	category, err := ctrl.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctrl *CatalogController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	category, err := ctrl.service.CreateCategory(c.Request.Context(), req.input())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (ctrl *CatalogController) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "category", "Category")
	if !ok {
		return
	}
	var req categoryRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, err)
		return
	}
	category, err := ctrl.service.UpdateCategory(c.Request.Context(), id, req.input(), c.Request.Method == http.MethodPatch)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (ctrl *CatalogController) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "category", "Category")
	if !ok {
		return
	}
	if err := ctrl.service.DeleteCategory(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

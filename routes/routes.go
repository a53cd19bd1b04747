package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/shop-service/controllers"
	"github.com/yashrajoria/shop-service/middleware"
)

type Controllers struct {
	Catalog *controllers.CatalogController
	Cart    *controllers.CartController
	Order   *controllers.OrderController
	Auth    *controllers.AuthController
}

// RegisterRoutes registers all shop routes. metricsHandler may be nil.
func RegisterRoutes(r *gin.Engine, ctrls Controllers, auth middleware.Authenticator, metricsHandler http.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "shop-service"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// Public
	r.POST("/register/", ctrls.Auth.Register)
	r.POST("/token/", ctrls.Auth.ObtainToken)
	r.POST("/token/refresh/", ctrls.Auth.RefreshToken)
	r.POST("/token/verify/", ctrls.Auth.VerifyToken)

	// Reads are public, writes need a staff user
	products := r.Group("/products", middleware.OptionalAuth(auth), middleware.AdminOrReadOnly())
	{
		products.GET("/", ctrls.Catalog.ListProducts)
		products.POST("/", ctrls.Catalog.CreateProduct)
		products.GET("/:id/", ctrls.Catalog.GetProduct)
		products.PUT("/:id/", ctrls.Catalog.UpdateProduct)
		products.PATCH("/:id/", ctrls.Catalog.UpdateProduct)
		products.DELETE("/:id/", ctrls.Catalog.DeleteProduct)
	}

	categories := r.Group("/categories", middleware.OptionalAuth(auth), middleware.AdminOrReadOnly())
	{
		categories.GET("/", ctrls.Catalog.ListCategories)
		categories.POST("/", ctrls.Catalog.CreateCategory)
		categories.GET("/:id/", ctrls.Catalog.GetCategory)
		categories.PUT("/:id/", ctrls.Catalog.UpdateCategory)
		categories.PATCH("/:id/", ctrls.Catalog.UpdateCategory)
		categories.DELETE("/:id/", ctrls.Catalog.DeleteCategory)
	}

	// Authenticated
	cart := r.Group("/cart", middleware.AuthMiddleware(auth))
	{
		cart.GET("/", ctrls.Cart.GetCart)
		cart.POST("/items/", ctrls.Cart.AddItem)
		cart.PATCH("/items/:id/", ctrls.Cart.UpdateItem)
		cart.DELETE("/items/:id/", ctrls.Cart.RemoveItem)
	}

	orders := r.Group("/orders", middleware.AuthMiddleware(auth))
	{
		orders.GET("/", ctrls.Order.ListOrders)
		orders.POST("/checkout/", ctrls.Order.Checkout)
		orders.GET("/:id/", ctrls.Order.GetOrder)
		orders.POST("/:id/pay/", ctrls.Order.Pay)
		orders.POST("/:id/cancel/", ctrls.Order.Cancel)
	}
}

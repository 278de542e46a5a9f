package router

import (
	"strings"

	"github.com/peakform-next/internal/http/handlers/admin"
	"github.com/peakform-next/internal/http/handlers/public"
	"github.com/peakform-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// New 构建路由
func New(c *provider.Container) *gin.Engine {
	cfg := c.Config
	if strings.EqualFold(cfg.Server.Mode, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestIDMiddleware())
	engine.Use(LoggerMiddleware())
	engine.Use(CORSMiddleware(cfg))

	publicHandler := public.New(c)
	adminHandler := admin.New(c)

	api := engine.Group("/api")
	{
		api.GET("/products", publicHandler.ListProducts)
		api.GET("/products/:id", publicHandler.GetProduct)
		api.GET("/products/:id/stock", publicHandler.GetProductStock)

		api.POST("/guest/orders", publicHandler.CreateGuestOrder)
		api.POST("/guest/orders/query", publicHandler.QueryGuestOrder)

		api.POST("/webhooks/payment", publicHandler.PaymentWebhook)
	}

	authed := api.Group("")
	authed.Use(UserJWTAuth(cfg.Auth.UserJWTSecret))
	{
		authed.GET("/cart", publicHandler.GetCart)
		authed.POST("/cart/items", publicHandler.AddCartItem)
		authed.PUT("/cart/items", publicHandler.UpdateCartItem)
		authed.DELETE("/cart/items", publicHandler.RemoveCartItem)
		authed.DELETE("/cart", publicHandler.ClearCart)
		authed.POST("/cart/sync", publicHandler.SyncCart)

		authed.POST("/orders", publicHandler.CreateOrder)
		authed.POST("/orders/checkout", publicHandler.Checkout)
		authed.GET("/orders", publicHandler.ListOrders)
		authed.GET("/orders/:id", publicHandler.GetOrder)
		authed.POST("/orders/:id/cancel", publicHandler.CancelOrder)
		authed.POST("/orders/:id/return", publicHandler.RequestReturn)

		authed.GET("/wishlist", publicHandler.ListWishlist)
		authed.POST("/wishlist", publicHandler.SaveWishlistEntry)
		authed.DELETE("/wishlist/:productId", publicHandler.RemoveWishlistEntry)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(AdminTokenAuth(cfg.Auth.AdminToken))
	{
		adminGroup.POST("/products", adminHandler.CreateProduct)
		adminGroup.PUT("/products/:id", adminHandler.UpdateProduct)
		adminGroup.PUT("/products/:id/stock", adminHandler.Restock)
		adminGroup.PUT("/products/:id/availability", adminHandler.SetAvailability)

		adminGroup.GET("/orders", adminHandler.ListOrders)
		adminGroup.PUT("/orders/:id/status", adminHandler.UpdateOrderStatus)
	}

	return engine
}

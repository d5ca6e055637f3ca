// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/interfaces/http/handlers"
	"github.com/maloune/storefront/internal/interfaces/http/middleware"
	"github.com/maloune/storefront/internal/pkg/auth"
)

// WebhookPrefix is exempt from rate limiting; the provider retries on its own schedule
const WebhookPrefix = "/api/v1/webhooks"

// Handlers groups the HTTP handlers mounted under /api/v1
type Handlers struct {
	Cart     *handlers.CartHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Webhook  *handlers.WebhookHandler
	Import   *handlers.ImportHandler
}

// SetupCartRoutes sets up cart routes keyed by the anonymous cart session
func SetupCartRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	cart := rg.Group("/cart")
	cart.Use(middleware.CartSession(cfg.Cart.TTL, cfg.IsProduction()))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.PUT("/items/:id", h.Cart.UpdateItem)
		cart.DELETE("/items/:id", h.Cart.RemoveItem)
		cart.DELETE("", h.Cart.ClearCart)
	}
}

// SetupCheckoutRoutes sets up hosted checkout routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h Handlers, cfg *config.Config) {
	checkout := rg.Group("/checkout")
	checkout.Use(middleware.CartSession(cfg.Cart.TTL, cfg.IsProduction()))
	{
		checkout.POST("/session", h.Checkout.CreateSession)
		checkout.POST("/success", h.Checkout.ConfirmSuccess)
	}
}

// SetupOrderRoutes sets up order confirmation routes
func SetupOrderRoutes(rg *gin.RouterGroup, h Handlers) {
	orders := rg.Group("/orders")
	{
		orders.GET("/:number", h.Order.GetOrder)
	}
}

// SetupWebhookRoutes sets up payment provider callbacks (no auth, signature verified)
func SetupWebhookRoutes(rg *gin.RouterGroup, h Handlers) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/stripe", h.Webhook.Stripe)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AdminAuth(jwtManager))
	{
		admin.POST("/import/search", h.Import.Search)
		admin.POST("/import", h.Import.Import)
	}
}

// SetupRoutes sets up all routes
func SetupRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager, cfg *config.Config) {
	SetupCartRoutes(rg, h, cfg)
	SetupCheckoutRoutes(rg, h, cfg)
	SetupOrderRoutes(rg, h)
	SetupWebhookRoutes(rg, h)
	SetupAdminRoutes(rg, h, jwtManager)
}

// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/domain/cart"
	"github.com/maloune/storefront/internal/interfaces/http/middleware"
	"github.com/sirupsen/logrus"
)

// CartService is the cart behaviour the HTTP layer needs
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (*cart.Snapshot, error)
	AddItem(ctx context.Context, sessionID string, req *cart.AddItemRequest) (*cart.Snapshot, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*cart.Snapshot, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*cart.Snapshot, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// CartHandler handles cart endpoints
type CartHandler struct {
	carts  CartService
	logger *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts CartService, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		logger: logger,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	snapshot, err := h.carts.GetCart(c.Request.Context(), middleware.CartSessionFromContext(c))
	if err != nil {
		h.cartError(c, err, "Failed to retrieve cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart retrieved successfully",
		"data":    snapshot,
	})
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := h.carts.AddItem(c.Request.Context(), middleware.CartSessionFromContext(c), &req)
	if err != nil {
		h.cartError(c, err, "Failed to add item to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart successfully",
		"data":    snapshot,
	})
}

// UpdateItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := h.carts.UpdateQuantity(c.Request.Context(), middleware.CartSessionFromContext(c), c.Param("id"), req.Quantity)
	if err != nil {
		h.cartError(c, err, "Failed to update cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated successfully",
		"data":    snapshot,
	})
}

// RemoveItem handles DELETE /cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	snapshot, err := h.carts.RemoveItem(c.Request.Context(), middleware.CartSessionFromContext(c), c.Param("id"))
	if err != nil {
		h.cartError(c, err, "Failed to remove cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart successfully",
		"data":    snapshot,
	})
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.carts.ClearCart(c.Request.Context(), middleware.CartSessionFromContext(c)); err != nil {
		h.cartError(c, err, "Failed to clear cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}

func (h *CartHandler) cartError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, cart.ErrProductUnavailable):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found or unavailable",
		})
	case errors.Is(err, cart.ErrSessionRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cart session required",
		})
	default:
		h.logger.WithError(err).WithField("cart_session", middleware.CartSessionFromContext(c)).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": message,
		})
	}
}

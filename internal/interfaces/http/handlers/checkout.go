// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/domain/cart"
	"github.com/maloune/storefront/internal/domain/checkout"
	"github.com/maloune/storefront/internal/domain/payment"
	"github.com/maloune/storefront/internal/interfaces/http/middleware"
	"github.com/sirupsen/logrus"
)

// CartReader loads the cart a checkout is started from
type CartReader interface {
	GetCart(ctx context.Context, sessionID string) (*cart.Snapshot, error)
}

// CheckoutService starts and confirms hosted payment sessions
type CheckoutService interface {
	Initiate(ctx context.Context, snapshot cart.Snapshot, req checkout.Request) (*checkout.Result, error)
	ConfirmSuccess(ctx context.Context, paymentSessionID, cartSessionID string) (bool, error)
}

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	carts    CartReader
	checkout CheckoutService
	logger   *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(carts CartReader, checkoutService CheckoutService, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		checkout: checkoutService,
		logger:   logger,
	}
}

// ConfirmRequest carries the session id from the success redirect
type ConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// CreateSession handles POST /checkout/session
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req checkout.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
			return
		}
	}

	cartSession := middleware.CartSessionFromContext(c)
	snapshot, err := h.carts.GetCart(c.Request.Context(), cartSession)
	if err != nil {
		h.logger.WithError(err).WithField("cart_session", cartSession).Error("Failed to load cart for checkout")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve cart",
		})
		return
	}

	req.CartSessionID = cartSession
	req.Origin = c.GetHeader("Origin")

	result, err := h.checkout.Initiate(c.Request.Context(), *snapshot, req)
	if err != nil {
		h.checkoutError(c, err, "Failed to start checkout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout session created",
		"data":    result,
	})
}

// ConfirmSuccess handles POST /checkout/success
func (h *CheckoutHandler) ConfirmSuccess(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	cleared, err := h.checkout.ConfirmSuccess(c.Request.Context(), req.SessionID, middleware.CartSessionFromContext(c))
	if err != nil {
		h.checkoutError(c, err, "Failed to confirm checkout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed",
		"data": gin.H{
			"session_id":   req.SessionID,
			"cart_cleared": cleared,
		},
	})
}

func (h *CheckoutHandler) checkoutError(c *gin.Context, err error, message string) {
	var rejected *payment.GatewayRejectedError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cart is empty",
		})
	case errors.Is(err, checkout.ErrOriginRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Storefront origin required",
		})
	case errors.Is(err, checkout.ErrPaymentIncomplete):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Payment has not completed",
		})
	case errors.Is(err, payment.ErrGatewayUnavailable):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Payment provider unavailable, please retry shortly",
		})
	case errors.As(err, &rejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": rejected.Message,
			"code":  rejected.Code,
		})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": message,
		})
	}
}

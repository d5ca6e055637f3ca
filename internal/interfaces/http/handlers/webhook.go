// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/domain/order"
	"github.com/maloune/storefront/internal/domain/payment"
	"github.com/sirupsen/logrus"
)

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// EventHandler reconciles a raw provider event into orders
type EventHandler interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (*order.Result, error)
}

// WebhookHandler handles payment provider webhooks
type WebhookHandler struct {
	events EventHandler
	logger *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(events EventHandler, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		events: events,
		logger: logger,
	}
}

// Stripe handles POST /webhooks/stripe. The raw body is verified before
// anything is parsed. Any non-2xx makes the provider redeliver.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	result, err := h.events.Handle(c.Request.Context(), body, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid signature",
			})
			return
		}

		h.logger.WithError(err).Error("Webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Webhook processing failed",
		})
		return
	}

	response := gin.H{
		"received": true,
		"outcome":  result.Outcome,
	}
	if result.Order != nil {
		response["order_number"] = result.Order.OrderNumber
	}
	c.JSON(http.StatusOK, response)
}

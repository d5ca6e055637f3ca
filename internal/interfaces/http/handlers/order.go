// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maloune/storefront/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderFinder looks orders up by their public number
type OrderFinder interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders OrderFinder
	logger *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders OrderFinder, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// OrderConfirmation is the order data shown on the confirmation page.
// Contact details stay private.
type OrderConfirmation struct {
	OrderNumber   string          `json:"order_number"`
	Status        order.Status    `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Locale        string          `json:"locale"`
	CustomerName  string          `json:"customer_name"`
	ShipToCity    string          `json:"ship_to_city"`
	ShipToCountry string          `json:"ship_to_country"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func confirmationFor(o *order.Order) OrderConfirmation {
	view := OrderConfirmation{
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		Subtotal:      o.Subtotal,
		TotalAmount:   o.TotalAmount,
		Currency:      strings.ToUpper(o.Currency),
		Locale:        o.Locale,
		CustomerName:  o.CustomerName,
		ShipToCity:    o.ShippingAddress.City,
		ShipToCountry: o.ShippingAddress.Country,
		CreatedAt:     o.CreatedAt,
	}
	if o.Payment != nil {
		view.PaymentStatus = string(o.Payment.Status)
		view.PaidAt = o.Payment.PaidAt
	}
	return view
}

// GetOrder handles GET /orders/:number
func (h *OrderHandler) GetOrder(c *gin.Context) {
	number := strings.ToUpper(strings.TrimSpace(c.Param("number")))
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Order number required",
		})
		return
	}

	o, err := h.orders.FindByOrderNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		h.logger.WithError(err).WithField("order_number", number).Error("Failed to retrieve order")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve order",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    confirmationFor(o),
	})
}

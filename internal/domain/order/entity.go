// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the order status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusFulfilled Status = "FULFILLED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// PaymentStatus represents the state of the payment attached to an order
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is created once per paid checkout session
type Order struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	OrderNumber      string `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	SessionReference string `gorm:"uniqueIndex;not null;size:255" json:"-"`
	Email            string `gorm:"size:255" json:"email"`
	CustomerName     string `gorm:"size:255" json:"customer_name"`
	Phone            string `gorm:"size:50" json:"phone"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Amounts in major units, as charged
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency    string          `gorm:"size:3;default:'EUR'" json:"currency"`

	Status Status `gorm:"not null;size:20;default:'PENDING'" json:"status"`
	Locale string `gorm:"size:8" json:"locale"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Payment *Payment `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payment,omitempty"`
}

// Payment records the provider transaction behind an order
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderID           uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Provider          string          `gorm:"not null;size:50" json:"provider"`
	ProviderReference string          `gorm:"size:255;index" json:"provider_reference"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3" json:"currency"`
	Status            PaymentStatus   `gorm:"not null;size:20" json:"status"`
	PaidAt            *time.Time      `json:"paid_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Address is the shipping recipient (embedded in Order)
type Address struct {
	Name       string `gorm:"size:255" json:"name"`
	Line1      string `gorm:"size:255" json:"line1"`
	Line2      string `gorm:"size:255" json:"line2"`
	City       string `gorm:"size:100" json:"city"`
	State      string `gorm:"size:100" json:"state"`
	PostalCode string `gorm:"size:20" json:"postal_code"`
	Country    string `gorm:"size:2" json:"country"`
}

// TableName returns the table name for Order
func (Order) TableName() string {
	return "orders"
}

// TableName returns the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// IsPaid returns true once the order's payment has been captured
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid || o.Status == StatusFulfilled
}

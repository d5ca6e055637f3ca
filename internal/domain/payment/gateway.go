// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrGatewayUnavailable covers every failure the shopper can retry later:
	// network errors, timeouts, provider outages and missing credentials
	ErrGatewayUnavailable = errors.New("payment provider unavailable")
	// ErrInvalidSignature is returned for any webhook that fails verification
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// GatewayRejectedError is a request the provider refused; Message is
// passed to the caller verbatim
type GatewayRejectedError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayRejectedError) Error() string {
	return fmt.Sprintf("payment provider rejected request: %s", e.Message)
}

// Payment statuses reported on a checkout session
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Webhook event types the reconciler cares about
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSuccess = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	EventCheckoutExpired             = "checkout.session.expired"
)

// IsPaid reports whether a payment status means the money was captured
func IsPaid(status string) bool {
	return status == PaymentStatusPaid || status == PaymentStatusNoPaymentRequired
}

// LineItem is one priced line sent to the hosted checkout page
type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int
	Currency   string
}

// SessionRequest describes a hosted checkout session to create
type SessionRequest struct {
	LineItems        []LineItem
	SuccessURL       string
	CancelURL        string
	Currency         string
	AllowedCountries []string
	CustomerEmail    string
	Metadata         map[string]string
}

// Session is a created hosted checkout session
type Session struct {
	ID  string
	URL string
}

// SessionStatus is the provider's current view of a checkout session
type SessionStatus struct {
	ID            string
	PaymentStatus string
	Status        string
	Metadata      map[string]string
}

// Address is a postal address as reported by the provider
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Shipping is the recipient collected on the checkout page
type Shipping struct {
	Name    string
	Address Address
}

// Event is a verified, decoded webhook notification. Amounts are in minor units.
type Event struct {
	ID               string
	Type             string
	Created          time.Time
	SessionReference string
	PaymentReference string
	PaymentStatus    string
	AmountTotal      int64
	AmountSubtotal   int64
	Currency         string
	CustomerEmail    string
	CustomerName     string
	CustomerPhone    string
	Shipping         *Shipping
	Metadata         map[string]string
}

// Gateway is the card payment provider as seen by checkout and reconciliation
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error)
	VerifyAndParseEvent(payload []byte, signatureHeader string) (*Event, error)
}

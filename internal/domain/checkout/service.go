// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/domain/cart"
	"github.com/maloune/storefront/internal/domain/payment"
	"github.com/maloune/storefront/internal/pkg/money"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOriginRequired    = errors.New("storefront origin could not be determined")
	ErrPaymentIncomplete = errors.New("payment has not completed")
)

// Metadata keys attached to every checkout session
const (
	MetadataLocale      = "locale"
	MetadataCartSession = "cart_session"
)

// sessionIDPlaceholder is substituted by the provider on redirect
const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// CartCompleter clears a cart once its payment session is known to be paid
type CartCompleter interface {
	CompleteCheckout(ctx context.Context, cartSessionID, paymentSessionID string) (bool, error)
}

// Request carries the shopper context for a new checkout
type Request struct {
	Locale        string `json:"locale"`
	CustomerEmail string `json:"customer_email"`
	Origin        string `json:"-"`
	CartSessionID string `json:"-"`
}

// Result is where the shopper should be sent to pay
type Result struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

// Initiator turns a cart into a hosted payment session
type Initiator struct {
	gateway   payment.Gateway
	completer CartCompleter
	config    *config.Config
	logger    *logrus.Logger
}

// NewInitiator creates a new checkout initiator
func NewInitiator(gateway payment.Gateway, completer CartCompleter, cfg *config.Config, logger *logrus.Logger) *Initiator {
	return &Initiator{
		gateway:   gateway,
		completer: completer,
		config:    cfg,
		logger:    logger,
	}
}

// Initiate creates a payment session for the cart snapshot. The cart itself is
// left untouched; it is only cleared once payment is confirmed.
func (i *Initiator) Initiate(ctx context.Context, snapshot cart.Snapshot, req Request) (*Result, error) {
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	locale := req.Locale
	if !i.config.IsSupportedLocale(locale) {
		locale = i.config.Catalog.DefaultLocale
	}

	base, err := i.baseURL(req.Origin)
	if err != nil {
		return nil, err
	}

	currency := i.config.Payment.Currency
	lines := make([]payment.LineItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		lines = append(lines, payment.LineItem{
			Name:       item.Name,
			Image:      absoluteImage(item.Image),
			UnitAmount: money.ToMinorUnits(item.Price),
			Quantity:   item.Quantity,
			Currency:   currency,
		})
	}

	metadata := map[string]string{MetadataLocale: locale}
	if req.CartSessionID != "" {
		metadata[MetadataCartSession] = req.CartSessionID
	}

	session, err := i.gateway.CreateCheckoutSession(ctx, &payment.SessionRequest{
		LineItems:        lines,
		SuccessURL:       fmt.Sprintf("%s/%s/checkout/success?session_id=%s", base, locale, sessionIDPlaceholder),
		CancelURL:        fmt.Sprintf("%s/%s/cart", base, locale),
		Currency:         currency,
		AllowedCountries: i.config.Payment.AllowedCountries,
		CustomerEmail:    req.CustomerEmail,
		Metadata:         metadata,
	})
	if err != nil {
		i.logger.WithError(err).WithField("cart_session", req.CartSessionID).Warn("Checkout session creation failed")
		return nil, err
	}

	i.logger.WithFields(logrus.Fields{
		"cart_session":    req.CartSessionID,
		"payment_session": session.ID,
		"total":           snapshot.TotalPrice.StringFixed(2),
		"locale":          locale,
	}).Info("Checkout initiated")

	return &Result{SessionID: session.ID, RedirectURL: session.URL}, nil
}

// ConfirmSuccess handles the shopper landing on the success page. The cart is
// cleared only once the provider reports the session as paid. Returns whether
// this call cleared the cart.
func (i *Initiator) ConfirmSuccess(ctx context.Context, paymentSessionID, cartSessionID string) (bool, error) {
	status, err := i.gateway.RetrieveSession(ctx, paymentSessionID)
	if err != nil {
		return false, err
	}

	if !payment.IsPaid(status.PaymentStatus) {
		return false, ErrPaymentIncomplete
	}

	// A session paid from another cart is not this shopper's to clear
	if owner := status.Metadata[MetadataCartSession]; owner != "" && owner != cartSessionID {
		return false, nil
	}

	return i.completer.CompleteCheckout(ctx, cartSessionID, paymentSessionID)
}

func (i *Initiator) baseURL(origin string) (string, error) {
	base := i.config.Payment.StorefrontURL
	if base == "" {
		base = origin
	}
	base = strings.TrimRight(base, "/")

	parsed, err := url.Parse(base)
	if base == "" || err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrOriginRequired
	}
	return base, nil
}

// absoluteImage drops images the hosted page could not load, such as emoji
// placeholders or relative paths
func absoluteImage(image string) string {
	parsed, err := url.Parse(image)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return image
}

// internal/domain/order/reconciler.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maloune/storefront/internal/domain/payment"
	"github.com/maloune/storefront/internal/pkg/money"
	"github.com/sirupsen/logrus"
)

// ErrPersistence means the event was valid but could not be recorded; the
// provider should redeliver it
var ErrPersistence = errors.New("order persistence failed")

// Outcome describes what a webhook delivery did
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeDuplicate       Outcome = "duplicate"
	OutcomeIgnored         Outcome = "ignored"
	OutcomeAwaitingPayment Outcome = "awaiting_payment"
)

// EventVerifier authenticates and decodes raw webhook deliveries
type EventVerifier interface {
	VerifyAndParseEvent(payload []byte, signatureHeader string) (*payment.Event, error)
}

// CartCompleter clears the cart that paid for a checkout session
type CartCompleter interface {
	CompleteCheckout(ctx context.Context, cartSessionID, paymentSessionID string) (bool, error)
}

// Result is the outcome of one delivery
type Result struct {
	Outcome Outcome
	EventID string
	Order   *Order
}

// Reconciler turns payment webhooks into orders, at most one per session
type Reconciler struct {
	verifier      EventVerifier
	repo          Repository
	completer     CartCompleter
	provider      string
	defaultLocale string
	logger        *logrus.Logger
	now           func() time.Time
}

// NewReconciler creates a new webhook reconciler. completer may be nil when
// carts are not tracked server-side.
func NewReconciler(verifier EventVerifier, repo Repository, completer CartCompleter, provider, defaultLocale string, logger *logrus.Logger) *Reconciler {
	if provider == "" {
		provider = "stripe"
	}
	return &Reconciler{
		verifier:      verifier,
		repo:          repo,
		completer:     completer,
		provider:      provider,
		defaultLocale: defaultLocale,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle processes one raw delivery. Signature failures return an error
// wrapping payment.ErrInvalidSignature before anything else happens;
// storage failures return ErrPersistence.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signatureHeader string) (*Result, error) {
	event, err := r.verifier.VerifyAndParseEvent(payload, signatureHeader)
	if err != nil {
		r.logger.WithError(err).Warn("Rejected webhook delivery")
		return nil, err
	}

	log := r.logger.WithFields(logrus.Fields{
		"event_id":        event.ID,
		"event_type":      event.Type,
		"payment_session": event.SessionReference,
	})

	switch event.Type {
	case payment.EventCheckoutCompleted:
		if !payment.IsPaid(event.PaymentStatus) {
			log.WithField("payment_status", event.PaymentStatus).Info("Checkout completed, awaiting asynchronous payment")
			return &Result{Outcome: OutcomeAwaitingPayment, EventID: event.ID}, nil
		}
	case payment.EventCheckoutAsyncPaymentSuccess:
	default:
		log.Debug("Ignoring webhook event")
		return &Result{Outcome: OutcomeIgnored, EventID: event.ID}, nil
	}

	if event.SessionReference == "" {
		log.Warn("Checkout event without session reference")
		return &Result{Outcome: OutcomeIgnored, EventID: event.ID}, nil
	}

	existing, err := r.repo.FindBySessionReference(ctx, event.SessionReference)
	if err == nil {
		log.WithField("order_number", existing.OrderNumber).Info("Order already recorded for session")
		r.completeCart(ctx, event, log)
		return &Result{Outcome: OutcomeDuplicate, EventID: event.ID, Order: existing}, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		log.WithError(err).Error("Failed to look up order")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	order := r.buildOrder(event)

	if err := r.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			// Lost a race with a concurrent delivery of the same event
			log.Info("Order created concurrently for session")
			winner, findErr := r.repo.FindBySessionReference(ctx, event.SessionReference)
			if findErr != nil {
				winner = nil
			}
			r.completeCart(ctx, event, log)
			return &Result{Outcome: OutcomeDuplicate, EventID: event.ID, Order: winner}, nil
		}

		log.WithError(err).Error("Failed to create order")
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log.WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.StringFixed(2),
		"currency":     order.Currency,
	}).Info("Order created from checkout")

	r.completeCart(ctx, event, log)

	return &Result{Outcome: OutcomeCreated, EventID: event.ID, Order: order}, nil
}

func (r *Reconciler) buildOrder(event *payment.Event) *Order {
	at := event.Created
	if at.IsZero() {
		at = r.now().UTC()
	}

	locale := event.Metadata["locale"]
	if locale == "" {
		locale = r.defaultLocale
	}

	currency := event.Currency
	if currency == "" {
		currency = "EUR"
	}

	total := money.FromMinorUnits(event.AmountTotal)
	subtotal := total
	if event.AmountSubtotal > 0 {
		subtotal = money.FromMinorUnits(event.AmountSubtotal)
	}

	order := &Order{
		OrderNumber:      NumberFor(event.SessionReference, at),
		SessionReference: event.SessionReference,
		Email:            event.CustomerEmail,
		CustomerName:     event.CustomerName,
		Phone:            event.CustomerPhone,
		Subtotal:         subtotal,
		TotalAmount:      total,
		Currency:         currency,
		Status:           StatusPaid,
		Locale:           locale,
	}

	if s := event.Shipping; s != nil {
		order.ShippingAddress = Address{
			Name:       s.Name,
			Line1:      s.Address.Line1,
			Line2:      s.Address.Line2,
			City:       s.Address.City,
			State:      s.Address.State,
			PostalCode: s.Address.PostalCode,
			Country:    s.Address.Country,
		}
	}

	reference := event.PaymentReference
	if reference == "" {
		reference = event.SessionReference
	}

	paidAt := at
	order.Payment = &Payment{
		Provider:          r.provider,
		ProviderReference: reference,
		Amount:            total,
		Currency:          currency,
		Status:            PaymentStatusPaid,
		PaidAt:            &paidAt,
	}

	return order
}

// completeCart clears the shopper's cart; failures never fail the delivery
func (r *Reconciler) completeCart(ctx context.Context, event *payment.Event, log *logrus.Entry) {
	if r.completer == nil {
		return
	}

	cartSession := event.Metadata["cart_session"]
	if cartSession == "" {
		return
	}

	if _, err := r.completer.CompleteCheckout(ctx, cartSession, event.SessionReference); err != nil {
		log.WithError(err).Warn("Failed to clear cart after checkout")
	}
}

// internal/domain/payment/stripe.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maloune/storefront/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// StripeGateway talks to the Stripe REST API
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	maxAge        time.Duration
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[[]byte]
	logger        *logrus.Logger
	now           func() time.Time
}

// NewStripeGateway creates a Stripe gateway from the payment configuration
func NewStripeGateway(cfg *config.Config, logger *logrus.Logger) *StripeGateway {
	baseURL := cfg.Payment.APIBaseURL
	if baseURL == "" {
		baseURL = defaultStripeBaseURL
	}

	timeout := cfg.Payment.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxAge := cfg.Payment.SignatureMaxAge
	if maxAge <= 0 {
		maxAge = DefaultSignatureTolerance
	}

	failures := uint32(5)
	if cfg.Payment.BreakerFailures > 0 {
		failures = uint32(cfg.Payment.BreakerFailures)
	}

	g := &StripeGateway{
		secretKey:     cfg.Payment.SecretKey,
		webhookSecret: cfg.Payment.WebhookSecret,
		baseURL:       strings.TrimRight(baseURL, "/"),
		maxAge:        maxAge,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
		now:           time.Now,
	}

	g.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "stripe",
		Timeout: cfg.Payment.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A rejected request says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrGatewayUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Payment gateway circuit breaker changed state")
		},
	})

	return g
}

type stripeSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession creates a hosted card checkout session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	form := sessionForm(req)

	body, err := g.call(ctx, http.MethodPost, "/v1/checkout/sessions", form)
	if err != nil {
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: malformed session response: %v", ErrGatewayUnavailable, err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("%w: session response missing id or url", ErrGatewayUnavailable)
	}

	g.logger.WithFields(logrus.Fields{
		"payment_session": session.ID,
		"lines":           len(req.LineItems),
	}).Info("Checkout session created")

	return &Session{ID: session.ID, URL: session.URL}, nil
}

// RetrieveSession fetches the current state of a checkout session
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	if sessionID == "" {
		return nil, &GatewayRejectedError{StatusCode: http.StatusBadRequest, Message: "session id is required"}
	}

	body, err := g.call(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}

	var session stripeSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: malformed session response: %v", ErrGatewayUnavailable, err)
	}

	return &SessionStatus{
		ID:            session.ID,
		PaymentStatus: session.PaymentStatus,
		Status:        session.Status,
		Metadata:      session.Metadata,
	}, nil
}

// VerifyAndParseEvent authenticates a webhook delivery and decodes it
func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	if err := VerifySignature(payload, signatureHeader, g.webhookSecret, g.maxAge, g.now()); err != nil {
		return nil, err
	}
	return ParseEvent(payload)
}

func (g *StripeGateway) call(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	if g.secretKey == "" {
		return nil, fmt.Errorf("%w: secret key not configured", ErrGatewayUnavailable)
	}

	body, err := g.breaker.Execute(func() ([]byte, error) {
		return g.do(ctx, method, path, form)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return body, err
}

func (g *StripeGateway) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode < 400 {
		return respBody.Bytes(), nil
	}

	var apiErr stripeErrorBody
	_ = json.Unmarshal(respBody.Bytes(), &apiErr)

	g.logger.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"path":   path,
		"type":   apiErr.Error.Type,
		"code":   apiErr.Error.Code,
	}).Warn("Payment provider returned an error")

	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	message := apiErr.Error.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return nil, &GatewayRejectedError{
		StatusCode: resp.StatusCode,
		Code:       apiErr.Error.Code,
		Message:    message,
	}
}

// sessionForm encodes a session request with Stripe's bracketed form keys
func sessionForm(req *SessionRequest) url.Values {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)

	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}

	for i, line := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		currency := line.Currency
		if currency == "" {
			currency = req.Currency
		}

		form.Set(prefix+"[quantity]", strconv.Itoa(line.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(line.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", line.Name)
		if line.Image != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", line.Image)
		}
	}

	for i, country := range req.AllowedCountries {
		form.Set(fmt.Sprintf("shipping_address_collection[allowed_countries][%d]", i), country)
	}

	for key, value := range req.Metadata {
		form.Set("metadata["+key+"]", value)
	}

	return form
}

// internal/domain/payment/webhook.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a signed delivery may be
const DefaultSignatureTolerance = 5 * time.Minute

// VerifySignature checks a "t=<unix>,v1=<hex>" signature header against the
// payload. Any of several v1 entries may match, which covers secret rotation.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return fmt.Errorf("%w: missing header", ErrInvalidSignature)
	}
	if secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	var timestamp string
	var signatures [][]byte

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			sig, err := hex.DecodeString(value)
			if err == nil {
				signatures = append(signatures, sig)
			}
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed header", ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
	}

	age := now.Sub(time.Unix(unix, 0))
	if tolerance > 0 && (age > tolerance || age < -tolerance) {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}

	return fmt.Errorf("%w: no matching signature", ErrInvalidSignature)
}

// SignatureHeader builds a header value for payload, as the provider would.
// Used by tests and local tooling that replays deliveries.
func SignatureHeader(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(computeSignature(timestamp, payload, secret)))
}

func computeSignature(timestamp string, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeShipping struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

type checkoutSessionObject struct {
	ID              string            `json:"id"`
	PaymentIntent   json.RawMessage   `json:"payment_intent"`
	PaymentStatus   string            `json:"payment_status"`
	AmountTotal     int64             `json:"amount_total"`
	AmountSubtotal  int64             `json:"amount_subtotal"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email   string   `json:"email"`
		Name    string   `json:"name"`
		Phone   string   `json:"phone"`
		Address *Address `json:"address"`
	} `json:"customer_details"`
	ShippingDetails      *stripeShipping `json:"shipping_details"`
	CollectedInformation *struct {
		ShippingDetails *stripeShipping `json:"shipping_details"`
	} `json:"collected_information"`
}

// ParseEvent decodes a webhook payload. Checkout session fields are filled
// only for checkout.session.* events.
func ParseEvent(payload []byte) (*Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed event body", ErrInvalidSignature)
	}
	if raw.ID == "" || raw.Type == "" {
		return nil, fmt.Errorf("%w: event missing id or type", ErrInvalidSignature)
	}

	event := &Event{ID: raw.ID, Type: raw.Type}
	if raw.Created > 0 {
		event.Created = time.Unix(raw.Created, 0).UTC()
	}
	if !strings.HasPrefix(raw.Type, "checkout.session.") || len(raw.Data.Object) == 0 {
		return event, nil
	}

	var obj checkoutSessionObject
	if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("%w: malformed checkout session object", ErrInvalidSignature)
	}

	event.SessionReference = obj.ID
	event.PaymentReference = paymentIntentID(obj.PaymentIntent)
	event.PaymentStatus = obj.PaymentStatus
	event.AmountTotal = obj.AmountTotal
	event.AmountSubtotal = obj.AmountSubtotal
	event.Currency = strings.ToUpper(obj.Currency)
	event.CustomerEmail = obj.CustomerEmail
	event.Metadata = obj.Metadata

	if d := obj.CustomerDetails; d != nil {
		if d.Email != "" {
			event.CustomerEmail = d.Email
		}
		event.CustomerName = d.Name
		event.CustomerPhone = d.Phone
	}

	// Newer API versions moved shipping under collected_information
	shipping := obj.ShippingDetails
	if shipping == nil && obj.CollectedInformation != nil {
		shipping = obj.CollectedInformation.ShippingDetails
	}
	if shipping != nil {
		event.Shipping = &Shipping{Name: shipping.Name, Address: shipping.Address}
		if event.CustomerName == "" {
			event.CustomerName = shipping.Name
		}
	} else if d := obj.CustomerDetails; d != nil && d.Address != nil {
		event.Shipping = &Shipping{Name: d.Name, Address: *d.Address}
	}

	return event, nil
}

// paymentIntentID accepts both the plain id and an expanded object
func paymentIntentID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var expanded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &expanded); err == nil {
		return expanded.ID
	}
	return ""
}

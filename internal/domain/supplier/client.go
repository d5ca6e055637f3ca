// internal/domain/supplier/client.go
package supplier

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
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrSupplierUnavailable is a transient failure; the call may be retried
	ErrSupplierUnavailable = errors.New("supplier API unavailable")
	// ErrAuthFailed means the supplier refused the configured credentials
	ErrAuthFailed = errors.New("supplier authentication failed")
)

// APIError is a request the supplier processed and refused
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supplier API error %d: %s", e.Code, e.Message)
}

const (
	codeSuccess      = 200
	codeTokenExpired = 1600200

	// Refresh this long before the supplier's own expiry
	tokenExpiryMargin = 5 * time.Minute
	maxPageSize       = 200
)

// Client talks to the CJ Dropshipping product API
type Client struct {
	baseURL    string
	email      string
	password   string
	tokenTTL   time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      TokenCache
	refresh    singleflight.Group
	logger     *logrus.Logger
	now        func() time.Time
}

// NewClient creates a supplier client from configuration
func NewClient(cfg *config.Config, cache TokenCache, logger *logrus.Logger) *Client {
	timeout := cfg.Supplier.RequestTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	limit := rate.Inf
	if cfg.Supplier.RatePerSecond > 0 {
		limit = rate.Limit(cfg.Supplier.RatePerSecond)
	}
	burst := cfg.Supplier.RateBurst
	if burst < 1 {
		burst = 1
	}

	tokenTTL := cfg.Supplier.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	if cache == nil {
		cache = NewMemoryTokenCache()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Supplier.BaseURL, "/"),
		email:      cfg.Supplier.Email,
		password:   cfg.Supplier.Password,
		tokenTTL:   tokenTTL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

type envelope struct {
	Code      int             `json:"code"`
	Result    bool            `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

type tokenData struct {
	AccessToken           string `json:"accessToken"`
	AccessTokenExpiryDate string `json:"accessTokenExpiryDate"`
}

// Authenticate exchanges the configured credentials for a fresh token
func (c *Client) Authenticate(ctx context.Context) (*Token, error) {
	if c.email == "" || c.password == "" {
		return nil, fmt.Errorf("%w: credentials not configured", ErrAuthFailed)
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}

	status, env, err := c.send(ctx, http.MethodPost, "/authentication/getAccessToken", nil, payload, "")
	if err != nil {
		return nil, err
	}
	if status >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrSupplierUnavailable, status)
	}
	if env.Code != codeSuccess || !env.Result {
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, env.Message)
	}

	var data tokenData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		return nil, fmt.Errorf("%w: token missing from response", ErrAuthFailed)
	}

	token := &Token{
		Value:     data.AccessToken,
		ExpiresAt: c.parseExpiry(data.AccessTokenExpiryDate),
	}

	c.logger.WithField("expires_at", token.ExpiresAt).Info("Supplier access token obtained")
	return token, nil
}

// SearchProducts returns one page of products matching query
func (c *Client) SearchProducts(ctx context.Context, query string, page, pageSize int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := url.Values{}
	params.Set("productNameEn", query)
	params.Set("pageNum", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))

	data, err := c.authorized(ctx, http.MethodGet, "/product/list", params)
	if err != nil {
		return nil, err
	}

	var raw rawProductPage
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: malformed product page: %v", ErrSupplierUnavailable, err)
		}
	}

	result := &SearchResult{
		Records:  make([]Record, 0, len(raw.List)),
		Total:    raw.Total.intOr(len(raw.List)),
		Page:     raw.PageNum.intOr(page),
		PageSize: raw.PageSize.intOr(pageSize),
	}
	for _, p := range raw.List {
		result.Records = append(result.Records, p.record())
	}

	c.logger.WithFields(logrus.Fields{
		"query":   query,
		"page":    page,
		"results": len(result.Records),
		"total":   result.Total,
	}).Debug("Supplier search completed")

	return result, nil
}

// authorized performs a call with the cached token. An expired-token reply
// invalidates that token and the call is retried once with a fresh one;
// callers rejected with the same stale token share a single refresh.
func (c *Client) authorized(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		status, env, err := c.send(ctx, method, path, params, nil, token.Value)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized || env.Code == codeTokenExpired {
			if err := c.cache.Invalidate(ctx, token.Value); err != nil {
				c.logger.WithError(err).Warn("Failed to invalidate supplier token")
			}
			if attempt == 0 {
				c.logger.Info("Supplier token rejected, re-authenticating")
				continue
			}
			return nil, fmt.Errorf("%w: token rejected after refresh", ErrAuthFailed)
		}

		if status >= 500 || status == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: status %d", ErrSupplierUnavailable, status)
		}
		if env.Code != codeSuccess || !env.Result {
			return nil, &APIError{Code: env.Code, Message: env.Message}
		}

		return env.Data, nil
	}
}

// token returns a usable token, authenticating at most once across
// concurrent callers
func (c *Client) token(ctx context.Context) (*Token, error) {
	cached, err := c.cache.Get(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Supplier token cache unavailable")
	}
	if cached.Usable(c.now(), tokenExpiryMargin) {
		return cached, nil
	}

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		// Another caller may have refreshed while we waited
		if current, err := c.cache.Get(ctx); err == nil && current.Usable(c.now(), tokenExpiryMargin) {
			return current, nil
		}

		token, err := c.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(ctx, *token); err != nil {
			c.logger.WithError(err).Warn("Failed to cache supplier token")
		}
		return token, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Token), nil
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, body []byte, accessToken string) (int, *envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("CJ-Access-Token", accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSupplierUnavailable, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", ErrSupplierUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(respBody.Bytes(), &env); err != nil {
		if resp.StatusCode >= 400 {
			// Error pages are not always JSON
			return resp.StatusCode, &envelope{Message: http.StatusText(resp.StatusCode)}, nil
		}
		return 0, nil, fmt.Errorf("%w: malformed response: %v", ErrSupplierUnavailable, err)
	}

	return resp.StatusCode, &env, nil
}

var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05",
}

// parseExpiry reads the supplier's expiry date, falling back to the
// configured token lifetime
func (c *Client) parseExpiry(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return c.now().Add(c.tokenTTL)
}

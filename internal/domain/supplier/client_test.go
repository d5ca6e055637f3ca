package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCJ is a minimal stand-in for the supplier API
type fakeCJ struct {
	authCalls   int32
	listCalls   int32
	expireFirst int32 // list calls to answer with an expired-token code
	authDelay   time.Duration
	listBody    string
}

func (f *fakeCJ) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/authentication/getAccessToken":
			n := atomic.AddInt32(&f.authCalls, 1)
			time.Sleep(f.authDelay)

			var creds map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds["password"] != "secret" {
				w.Write([]byte(`{"code":1601000,"result":false,"message":"Invalid password"}`))
				return
			}

			json.NewEncoder(w).Encode(map[string]interface{}{
				"code":   200,
				"result": true,
				"data": map[string]string{
					"accessToken":           "token-" + string(rune('0'+n)),
					"accessTokenExpiryDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
				},
			})

		case "/product/list":
			atomic.AddInt32(&f.listCalls, 1)
			if r.Header.Get("CJ-Access-Token") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if atomic.AddInt32(&f.expireFirst, -1) >= 0 {
				w.Write([]byte(`{"code":1600200,"result":false,"message":"Access token expired"}`))
				return
			}
			w.Write([]byte(f.listBody))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

const productPage = `{
  "code": 200, "result": true, "message": "Success",
  "data": {
    "pageNum": 1, "pageSize": 10, "total": "42",
    "list": [
      {"pid": "04A22450-67F0-4617-A132-E7AE7F8963B0", "productNameEn": "Galaxy Star Projector", "productImage": "https://cc-west-usa.oss.example.com/p1.jpg", "sellPrice": "10.00", "categoryName": "Home Decor", "productWeight": 350},
      {"pid": "P2", "productName": "Ring Light", "productImage": "[\"https://img.example.com/a.jpg\",\"https://img.example.com/b.jpg\"]", "sellPrice": "1.20 -- 3.40", "productWeight": "120.5"},
      {"pid": "P3", "productNameEn": "Mystery", "sellPrice": 4.5},
      {"pid": "P4", "productNameEn": "Broken price", "sellPrice": "call us"}
    ]
  }
}`

func newTestClient(t *testing.T, fake *fakeCJ, cache TokenCache) *Client {
	t.Helper()

	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := &config.Config{Supplier: config.SupplierConfig{
		BaseURL:        server.URL,
		Email:          "ops@example.com",
		Password:       "secret",
		RequestTimeout: time.Second,
		TokenTTL:       time.Hour,
	}}

	return NewClient(cfg, cache, logger.Discard())
}

func TestClient_SearchProducts(t *testing.T) {
	fake := &fakeCJ{listBody: productPage}
	client := newTestClient(t, fake, nil)

	result, err := client.SearchProducts(context.Background(), "galaxy projector", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 42, result.Total)
	require.Len(t, result.Records, 4)

	first := result.Records[0]
	assert.Equal(t, "04A22450-67F0-4617-A132-E7AE7F8963B0", first.ExternalID)
	assert.Equal(t, "Galaxy Star Projector", first.Name)
	assert.True(t, first.Price.Valid)
	assert.Equal(t, "10.00", first.Price.Decimal.StringFixed(2))
	assert.Equal(t, "350", first.Weight.Decimal.String())
	assert.Equal(t, "Home Decor", first.Category)

	ring := result.Records[1]
	assert.Equal(t, "Ring Light", ring.Name)
	assert.Equal(t, "https://img.example.com/a.jpg", ring.ImageURL)
	assert.Equal(t, "1.20", ring.Price.Decimal.StringFixed(2))
	assert.Equal(t, "120.5", ring.Weight.Decimal.String())

	assert.Equal(t, "4.50", result.Records[2].Price.Decimal.StringFixed(2))
	assert.False(t, result.Records[2].Weight.Valid)
	assert.False(t, result.Records[3].Price.Valid)
}

func TestClient_ReusesToken(t *testing.T) {
	fake := &fakeCJ{listBody: productPage}
	client := newTestClient(t, fake, nil)

	for i := 0; i < 3; i++ {
		_, err := client.SearchProducts(context.Background(), "yoga mat", 1, 10)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.authCalls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.listCalls))
}

func TestClient_ReauthenticatesOnceOnExpiredToken(t *testing.T) {
	fake := &fakeCJ{listBody: productPage, expireFirst: 1}
	client := newTestClient(t, fake, nil)

	result, err := client.SearchProducts(context.Background(), "yoga mat", 1, 10)
	require.NoError(t, err)
	assert.Len(t, result.Records, 4)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.listCalls))
}

func TestClient_GivesUpAfterOneRefresh(t *testing.T) {
	fake := &fakeCJ{listBody: productPage, expireFirst: 100}
	client := newTestClient(t, fake, nil)

	_, err := client.SearchProducts(context.Background(), "yoga mat", 1, 10)
	assert.ErrorIs(t, err, ErrAuthFailed)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.authCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.listCalls))
}

func TestClient_ConcurrentCallersShareOneRefresh(t *testing.T) {
	fake := &fakeCJ{listBody: productPage, authDelay: 50 * time.Millisecond}
	client := newTestClient(t, fake, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SearchProducts(context.Background(), "ring light", 1, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.authCalls))
}

func TestClient_LateStaleRejectionKeepsRefreshedToken(t *testing.T) {
	var (
		authCalls   int32
		staleSeen   int32
		bothStale   = make(chan struct{})
		firstServed = make(chan struct{})
		served      sync.Once
	)

	wait := func(ch chan struct{}) {
		select {
		case <-ch:
		case <-time.After(500 * time.Millisecond):
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/authentication/getAccessToken":
			atomic.AddInt32(&authCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code":   200,
				"result": true,
				"data": map[string]string{
					"accessToken":           "fresh",
					"accessTokenExpiryDate": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
				},
			})

		case "/product/list":
			if r.Header.Get("CJ-Access-Token") == "stale" {
				switch atomic.AddInt32(&staleSeen, 1) {
				case 1:
					// Hold the first rejection until the other caller has sent the same stale token
					wait(bothStale)
				case 2:
					close(bothStale)
					// Reject the second caller only after the first one refreshed and succeeded
					wait(firstServed)
				}
				w.Write([]byte(`{"code":1600200,"result":false,"message":"Access token expired"}`))
				return
			}
			w.Write([]byte(productPage))
			served.Do(func() { close(firstServed) })

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cache := NewMemoryTokenCache()
	require.NoError(t, cache.Set(context.Background(), Token{Value: "stale", ExpiresAt: time.Now().Add(time.Hour)}))

	cfg := &config.Config{Supplier: config.SupplierConfig{
		BaseURL:        server.URL,
		Email:          "ops@example.com",
		Password:       "secret",
		RequestTimeout: 2 * time.Second,
		TokenTTL:       time.Hour,
	}}
	client := NewClient(cfg, cache, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.SearchProducts(context.Background(), "ring light", 1, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&staleSeen))
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))

	token, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "fresh", token.Value)
}

func TestClient_BadCredentials(t *testing.T) {
	fake := &fakeCJ{listBody: productPage}
	client := newTestClient(t, fake, nil)
	client.password = "wrong"

	_, err := client.SearchProducts(context.Background(), "ring light", 1, 10)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.listCalls))
}

func TestClient_APIError(t *testing.T) {
	fake := &fakeCJ{listBody: `{"code":1600100,"result":false,"message":"Param error"}`}
	client := newTestClient(t, fake, nil)

	_, err := client.SearchProducts(context.Background(), "ring light", 1, 10)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1600100, apiErr.Code)
	assert.Equal(t, "Param error", apiErr.Message)
}

func TestClient_Unavailable(t *testing.T) {
	fake := &fakeCJ{listBody: productPage}
	server := httptest.NewServer(fake.handler(t))
	server.Close()

	cfg := &config.Config{Supplier: config.SupplierConfig{
		BaseURL:  server.URL,
		Email:    "ops@example.com",
		Password: "secret",
	}}
	client := NewClient(cfg, nil, logger.Discard())

	_, err := client.SearchProducts(context.Background(), "ring light", 1, 10)
	assert.ErrorIs(t, err, ErrSupplierUnavailable)
}

func TestClient_SharesTokenThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	fake := &fakeCJ{listBody: productPage}
	first := newTestClient(t, fake, NewRedisTokenCache(rdb))
	second := newTestClient(t, fake, NewRedisTokenCache(rdb))

	_, err := first.SearchProducts(context.Background(), "yoga mat", 1, 10)
	require.NoError(t, err)
	_, err = second.SearchProducts(context.Background(), "yoga mat", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.authCalls))
}

func TestClient_Throttles(t *testing.T) {
	fake := &fakeCJ{listBody: productPage}
	client := newTestClient(t, fake, nil)
	client.limiter.SetLimit(20)
	client.limiter.SetBurst(1)

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := client.SearchProducts(context.Background(), "lamp", 1, 10)
		require.NoError(t, err)
	}

	// five outbound calls (one auth, four searches) at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

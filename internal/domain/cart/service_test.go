package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCatalog serves a fixed set of products
type stubCatalog struct {
	entries map[string]*CatalogEntry
}

func (c *stubCatalog) LookupProduct(_ context.Context, productID, variantID string) (*CatalogEntry, error) {
	entry, ok := c.entries[ItemKey(productID, variantID)]
	if !ok {
		return nil, ErrProductUnavailable
	}
	return entry, nil
}

func setupService(t *testing.T) (*Service, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	compare := decimal.RequireFromString("29.99")
	catalog := &stubCatalog{entries: map[string]*CatalogEntry{
		"p1": {
			ProductID:    "p1",
			Name:         "Galaxy Projector",
			Price:        decimal.RequireFromString("19.99"),
			ComparePrice: &compare,
			Image:        "https://cdn.example.com/p1.jpg",
			MaxQuantity:  10,
		},
		"p2": {
			ProductID:   "p2",
			Name:        "Yoga Mat",
			Price:       decimal.RequireFromString("12.00"),
			MaxQuantity: 3,
		},
		"p3": {
			ProductID:   "p3",
			Name:        "Ring Light",
			Price:       decimal.RequireFromString("5.00"),
			MaxQuantity: 999,
		},
	}}

	cfg := &config.Config{Cart: config.CartConfig{DefaultMaxQuantity: 10}}
	storage := NewRedisStorage(client, time.Hour, time.Hour)

	return NewService(storage, catalog, cfg, logger.Discard()), mr
}

func TestService_AddItemUsesCatalogPrice(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	snap, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Galaxy Projector", snap.Items[0].Name)
	assert.Equal(t, 2, snap.TotalItems)
	assert.Equal(t, "39.98", snap.TotalPrice.StringFixed(2))
	assert.Equal(t, 33, snap.Items[0].DiscountPercent())
}

func TestService_AddItemUnknownProduct(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.AddItem(context.Background(), "sess-1", &AddItemRequest{ProductID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestService_AddItemCapsStockDerivedMaximum(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	snap, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p3", Quantity: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Items[0].Quantity)
	assert.Equal(t, 10, snap.Items[0].MaxQuantity)

	snap, err = svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p2", Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Items[1].Quantity)
}

func TestService_PersistsAcrossCalls(t *testing.T) {
	svc, mr := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	raw, err := mr.Get(cartKey("sess-1"))
	require.NoError(t, err)

	var stored sessionCart
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "sess-1", stored.SessionID)
	require.Len(t, stored.Items, 1)
	assert.True(t, mr.TTL(cartKey("sess-1")) > 0)

	snap, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalItems)

	other, err := svc.GetCart(ctx, "sess-2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestService_UpdateAndRemove(t *testing.T) {
	svc, mr := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	snap, err := svc.UpdateQuantity(ctx, "sess-1", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.TotalItems)

	snap, err = svc.UpdateQuantity(ctx, "sess-1", "p1", 0)
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.False(t, mr.Exists(cartKey("sess-1")))

	snap, err = svc.RemoveItem(ctx, "sess-1", "p1")
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestService_RequiresSession(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.GetCart(ctx, "")
	assert.ErrorIs(t, err, ErrSessionRequired)

	_, err = svc.AddItem(ctx, "", &AddItemRequest{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrSessionRequired)

	assert.ErrorIs(t, svc.ClearCart(ctx, ""), ErrSessionRequired)
}

func TestService_CompleteCheckoutClearsOnce(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	cleared, err := svc.CompleteCheckout(ctx, "sess-1", "cs_test_1")
	require.NoError(t, err)
	assert.True(t, cleared)

	snap, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())

	// The shopper starts a new cart; a late webhook for the same payment must not wipe it
	_, err = svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p2", Quantity: 1})
	require.NoError(t, err)

	cleared, err = svc.CompleteCheckout(ctx, "sess-1", "cs_test_1")
	require.NoError(t, err)
	assert.False(t, cleared)

	snap, err = svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalItems)
}

func TestService_CompleteCheckoutWithoutCartSession(t *testing.T) {
	svc, _ := setupService(t)

	cleared, err := svc.CompleteCheckout(context.Background(), "", "cs_test_1")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestService_ClearCart(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess-1", &AddItemRequest{ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.ClearCart(ctx, "sess-1"))

	snap, err := svc.GetCart(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestRedisStorage_UpdatePropagatesCallbackError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	storage := NewRedisStorage(client, time.Hour, time.Hour)
	boom := assert.AnError

	_, err := storage.Update(context.Background(), "s", func([]CartItem) ([]CartItem, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRedisStorage_LoadCorruptCart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set(cartKey("s"), "{not json"))

	storage := NewRedisStorage(client, time.Hour, time.Hour)
	_, err := storage.Load(context.Background(), "s")
	assert.Error(t, err)
}

// internal/domain/cart/storage.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrConcurrentUpdate is returned when a cart kept changing underneath an update
var ErrConcurrentUpdate = errors.New("cart was modified concurrently, please retry")

// Storage persists cart lines between requests. The cart store itself never
// touches it; the service loads, mutates and saves through this boundary.
type Storage interface {
	Load(ctx context.Context, sessionID string) ([]CartItem, error)
	// Update applies fn to the stored lines atomically and saves the result
	Update(ctx context.Context, sessionID string, fn func([]CartItem) ([]CartItem, error)) ([]CartItem, error)
	Delete(ctx context.Context, sessionID string) error
	// MarkCompleted records a payment session as handled and reports whether
	// this call was the first to do so
	MarkCompleted(ctx context.Context, paymentSessionID string) (bool, error)
	UnmarkCompleted(ctx context.Context, paymentSessionID string) error
}

const maxUpdateRetries = 5

// sessionCart is the JSON document stored per cart session
type sessionCart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RedisStorage keeps carts in Redis with a sliding expiry
type RedisStorage struct {
	client        *redis.Client
	ttl           time.Duration
	completionTTL time.Duration
}

// NewRedisStorage creates a Redis-backed cart storage
func NewRedisStorage(client *redis.Client, ttl, completionTTL time.Duration) *RedisStorage {
	return &RedisStorage{
		client:        client,
		ttl:           ttl,
		completionTTL: completionTTL,
	}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func completedKey(paymentSessionID string) string {
	return fmt.Sprintf("cart:completed:%s", paymentSessionID)
}

// Load returns the stored lines, or none when the session has no cart
func (r *RedisStorage) Load(ctx context.Context, sessionID string) ([]CartItem, error) {
	return readCart(ctx, r.client, sessionID)
}

// Update runs fn inside a WATCH transaction so concurrent writers on the
// same session retry instead of overwriting each other
func (r *RedisStorage) Update(ctx context.Context, sessionID string, fn func([]CartItem) ([]CartItem, error)) ([]CartItem, error) {
	key := cartKey(sessionID)
	var result []CartItem

	txf := func(tx *redis.Tx) error {
		items, err := readCart(ctx, tx, sessionID)
		if err != nil {
			return err
		}

		next, err := fn(items)
		if err != nil {
			return err
		}

		data, err := json.Marshal(sessionCart{
			SessionID: sessionID,
			Items:     next,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to encode cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, r.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}

		result = next
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}

	return nil, ErrConcurrentUpdate
}

// Delete removes the cart for a session
func (r *RedisStorage) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, cartKey(sessionID)).Err()
}

// MarkCompleted sets the completion marker if it is not already present
func (r *RedisStorage) MarkCompleted(ctx context.Context, paymentSessionID string) (bool, error) {
	return r.client.SetNX(ctx, completedKey(paymentSessionID), time.Now().UTC().Unix(), r.completionTTL).Result()
}

// UnmarkCompleted releases a marker so a failed clear can be retried
func (r *RedisStorage) UnmarkCompleted(ctx context.Context, paymentSessionID string) error {
	return r.client.Del(ctx, completedKey(paymentSessionID)).Err()
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readCart(ctx context.Context, c stringGetter, sessionID string) ([]CartItem, error) {
	data, err := c.Get(ctx, cartKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	var stored sessionCart
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}

	return stored.Items, nil
}

// internal/domain/supplier/token_cache.go
package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token is a supplier access token and when it stops being accepted
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Usable reports whether the token can still be sent, keeping margin in hand
func (t *Token) Usable(now time.Time, margin time.Duration) bool {
	return t != nil && t.Value != "" && now.Add(margin).Before(t.ExpiresAt)
}

// TokenCache stores the current access token. Get returns nil when empty.
// Invalidate drops the cached token only while it is still the rejected one,
// so a late rejection cannot evict a token another caller just refreshed.
type TokenCache interface {
	Get(ctx context.Context) (*Token, error)
	Set(ctx context.Context, token Token) error
	Invalidate(ctx context.Context, rejected string) error
}

// MemoryTokenCache keeps the token in process
type MemoryTokenCache struct {
	mu    sync.RWMutex
	token *Token
}

// NewMemoryTokenCache creates an empty in-process token cache
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{}
}

func (c *MemoryTokenCache) Get(_ context.Context) (*Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil {
		return nil, nil
	}
	token := *c.token
	return &token, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, token Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = &token
	return nil
}

func (c *MemoryTokenCache) Invalidate(_ context.Context, rejected string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Value == rejected {
		c.token = nil
	}
	return nil
}

const redisTokenKey = "supplier:cj:access_token"

// RedisTokenCache shares the token between API instances so they do not
// each authenticate against the supplier's tight auth quota
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache creates a Redis-backed token cache
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context) (*Token, error) {
	data, err := c.client.Get(ctx, redisTokenKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read supplier token: %w", err)
	}

	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		// A corrupt entry is as good as none
		return nil, nil
	}
	return &token, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, token Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode supplier token: %w", err)
	}

	return c.client.Set(ctx, redisTokenKey, data, ttl).Err()
}

func (c *RedisTokenCache) Invalidate(ctx context.Context, rejected string) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, redisTokenKey).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var current Token
		if err := json.Unmarshal([]byte(data), &current); err == nil && current.Value != rejected {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, redisTokenKey)
			return nil
		})
		return err
	}, redisTokenKey)

	// The key changed under the watch, so a fresh token has replaced the rejected one
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to invalidate supplier token: %w", err)
	}
	return nil
}

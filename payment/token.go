package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"
)

// Token is a gateway access token and the instant it stops being valid.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenCache stores the current token. Get returns (nil, nil) when nothing is cached.
type TokenCache interface {
	Get(ctx context.Context) (*Token, error)
	Set(ctx context.Context, t *Token) error
}

type MemoryCache struct {
	mu    sync.RWMutex
	token *Token
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(ctx context.Context) (*Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil {
		return nil, nil
	}
	t := *c.token
	return &t, nil
}

func (c *MemoryCache) Set(ctx context.Context, t *Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *t
	c.token = &cp
	return nil
}

// RedisCache shares the token between replicas. Entries expire with the token.
type RedisCache struct {
	rdb *redis.Client
	key string
}

func NewRedisCache(rdb *redis.Client, key string) *RedisCache {
	if key == "" {
		key = "payment:access_token"
	}
	return &RedisCache{rdb: rdb, key: key}
}

func (c *RedisCache) Get(ctx context.Context) (*Token, error) {
	b, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get token: %w", err)
	}
	var t Token
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return &t, nil
}

func (c *RedisCache) Set(ctx context.Context, t *Token) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

// FetchFunc obtains a fresh token from the authorization server.
type FetchFunc func(ctx context.Context) (*Token, error)

// TokenSource hands out a valid token, refreshing through fetch only when the
// cached one is missing or within skew of expiry. Concurrent refreshes share one fetch.
type TokenSource struct {
	cache TokenCache
	fetch FetchFunc
	skew  time.Duration
	now   func() time.Time
	group singleflight.Group
}

func NewTokenSource(cache TokenCache, fetch FetchFunc, skew time.Duration) *TokenSource {
	return &TokenSource{cache: cache, fetch: fetch, skew: skew, now: time.Now}
}

func (s *TokenSource) GetValidToken(ctx context.Context) (string, error) {
	if t, err := s.cache.Get(ctx); err == nil && s.valid(t) {
		return t.AccessToken, nil
	}
	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		if t, err := s.cache.Get(ctx); err == nil && s.valid(t) {
			return t.AccessToken, nil
		}
		t, err := s.fetch(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch access token: %w", err)
		}
		// A cache write failure only costs an extra fetch next time.
		_ = s.cache.Set(ctx, t)
		return t.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenSource) valid(t *Token) bool {
	return t != nil && t.AccessToken != "" && s.now().Add(s.skew).Before(t.ExpiresAt)
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pops/player-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the byte store behind CachedLookup (Redis-backed in production).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryCache is a simple in-memory cache for development/testing.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]entry), now: time.Now}
}

func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.data[key] = entry{value: value, expiresAt: exp}
	return nil
}

func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// RedisCache stores entries in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a RedisCache whose keys all start with prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// CachedLookup serves published versions from a cache in front of another Lookup.
// Only hits are cached, so a newly published game is visible on the next call.
// Cache failures fall through to the backing lookup.
type CachedLookup struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
}

// NewCachedLookup wraps next with cache entries living for ttl.
func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: cache, ttl: ttl}
}

func (l *CachedLookup) Lookup(ctx context.Context, gameID int64) (*domain.PublishedVersion, error) {
	key := cacheKey(gameID)
	if b, err := l.cache.Get(ctx, key); err == nil {
		var v domain.PublishedVersion
		if json.Unmarshal(b, &v) == nil {
			return &v, nil
		}
	}

	v, err := l.next.Lookup(ctx, gameID)
	if err != nil || v == nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		_ = l.cache.Set(ctx, key, b, l.ttl)
	}
	return v, nil
}

// Invalidate drops the cached version of a game, e.g. when a patch is distributed.
func (l *CachedLookup) Invalidate(ctx context.Context, gameID int64) error {
	return l.cache.Delete(ctx, cacheKey(gameID))
}

func cacheKey(gameID int64) string {
	return "catalog:game:" + strconv.FormatInt(gameID, 10)
}

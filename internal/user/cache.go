package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultProfileKeyPrefix is prepended to the user id to form the profile cache key.
const DefaultProfileKeyPrefix = "profile:user_id:"

// DefaultProfileTTL is how long a cached profile lives.
const DefaultProfileTTL = 24 * time.Hour

// ErrCacheMiss is returned by ProfileCache.Get when nothing is cached.
var ErrCacheMiss = errors.New("profile cache miss")

// ProfileCache caches serialized profiles.
type ProfileCache interface {
	Get(ctx context.Context, id int64) (*Profile, error)
	Set(ctx context.Context, profile *Profile) error
	Delete(ctx context.Context, id int64) error
}

// RedisProfileCache stores profiles as JSON strings in Redis.
type RedisProfileCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisProfileCache creates a Redis-backed profile cache.
func NewRedisProfileCache(rdb redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisProfileCache {
	if keyPrefix == "" {
		keyPrefix = DefaultProfileKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &RedisProfileCache{rdb: rdb, prefix: keyPrefix, ttl: ttl}
}

func (c *RedisProfileCache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

// Get returns the cached profile or ErrCacheMiss.
func (c *RedisProfileCache) Get(ctx context.Context, id int64) (*Profile, error) {
	val, err := c.rdb.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("decoding cached profile: %w", err)
	}
	return &p, nil
}

// Set caches profile for the configured TTL.
func (c *RedisProfileCache) Set(ctx context.Context, profile *Profile) error {
	b, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	return c.rdb.Set(ctx, c.key(profile.ID), b, c.ttl).Err()
}

// Delete evicts the cached profile.
func (c *RedisProfileCache) Delete(ctx context.Context, id int64) error {
	return c.rdb.Del(ctx, c.key(id)).Err()
}

// NoopProfileCache never caches.
type NoopProfileCache struct{}

func (NoopProfileCache) Get(context.Context, int64) (*Profile, error) { return nil, ErrCacheMiss }
func (NoopProfileCache) Set(context.Context, *Profile) error          { return nil }
func (NoopProfileCache) Delete(context.Context, int64) error          { return nil }

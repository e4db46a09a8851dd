// Package cache provides the Redis client shared by the session store and the
// profile cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Prefix is prepended to every key written by the gateway.
	Prefix string

	// ConnectRetries bounds the ping attempts made while Redis starts up.
	ConnectRetries uint64
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// Connect creates a Redis client and waits for the server to answer a ping,
// retrying with exponential backoff.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	retry := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.ConnectRetries), ctx)

	err := backoff.Retry(func() error {
		return client.Ping(ctx).Err()
	}, retry)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

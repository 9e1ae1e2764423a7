// Package redis holds the session store and the rate limiter backend.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection. URL,
// when set, wins over Addr, Password and DB.
type Config struct {
	URL        string
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	ClientName string
	Timeout    time.Duration
}

// Connect opens a client and fails fast when the server does not answer a
// ping within the configured timeout.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := Pinger(client, opts.DialTimeout)(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Pinger returns a readiness check for client bounded by timeout.
func Pinger(client redis.UniversalClient, timeout time.Duration) func(ctx context.Context) error {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		return nil
	}
}

func clientOptions(cfg Config) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		opts = parsed
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.ClientName != "" {
		opts.ClientName = cfg.ClientName
	}
	return opts, nil
}

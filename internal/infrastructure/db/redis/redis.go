package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pingTimeout   = 5 * time.Second
	cacheIOBudget = 500 * time.Millisecond
)

// Config describes the cache connection. Zero values fall back to the
// go-redis defaults except where the cache needs tighter bounds.
type Config struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	PingTimeout time.Duration
}

// clientOptions maps Config onto go-redis options. Reads and writes get a
// short budget: a slow cache should fall through to the store, not stall a
// sync request.
func clientOptions(cfg Config) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  cacheIOBudget,
		WriteTimeout: cacheIOBudget,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	return opts
}

// Connect opens the user cache client and pings it so a misconfigured cache
// fails startup instead of the first lookup.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = pingTimeout
	}

	client := redis.NewClient(clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("user cache %s: ping: %w", cfg.Addr, err)
	}
	return client, nil
}

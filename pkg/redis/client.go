package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/junzhu/tidegate/backend/pkg/config"
)

// Client wraps the Redis client. When Redis is disabled in config every
// helper degrades to a no-op so the engine still runs.
// SSOT: Redis 连接只在这里管理。
type Client struct {
	rdb     *redis.Client
	enabled bool
}

// New creates a Redis client, or a disabled stand-in when config says so.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{enabled: false}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Client{rdb: rdb, enabled: true}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled reports whether Redis is in use.
func (c *Client) Enabled() bool { return c.enabled }

// Redis returns the underlying client for advanced usage.
func (c *Client) Redis() *redis.Client { return c.rdb }

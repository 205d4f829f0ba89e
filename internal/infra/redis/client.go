package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// Config holds Redis connection configuration. An empty URL disables
// sample publishing.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

// Enabled reports whether a Redis URL was configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Client publishes samples to a Redis channel.
type Client struct {
	rdb     *redis.Client
	channel string
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newClient(rdb, cfg.Channel), nil
}

func newClient(rdb *redis.Client, channel string) *Client {
	return &Client{rdb: rdb, channel: channel}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Channel returns the channel name samples of a node are published on.
func (c *Client) Channel(node string) string {
	return fmt.Sprintf("%s:%s", c.channel, node)
}

// Publish sends one sample as JSON on the node's channel.
func (c *Client) Publish(ctx context.Context, node string, s domain.Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}
	if err := c.rdb.Publish(ctx, c.Channel(node), data).Err(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel new records are published to.
const DefaultRedisChannel = "insider:new"

// RedisChannel publishes each message to a Redis pub/sub channel.
type RedisChannel struct {
	client  *redis.Client
	channel string
}

// NewRedisChannel connects to addr. An empty channel uses DefaultRedisChannel.
func NewRedisChannel(addr, channel string) *RedisChannel {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisChannel{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

func (c *RedisChannel) Name() string { return "redis" }

// Send publishes msg as JSON.
func (c *RedisChannel) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.client.Publish(ctx, c.channel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", c.channel, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisChannel) Close() error {
	return c.client.Close()
}

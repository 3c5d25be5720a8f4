package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/scoreline/internal/domain/stats"
)

// RedisClient is the subset of *redis.Client the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis stores snapshots as JSON strings with a TTL.
type Redis struct {
	client RedisClient
	opts   options
}

var _ StatsCache = (*Redis)(nil)

// NewRedis wraps client.
func NewRedis(client RedisClient, opts ...Option) *Redis {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &Redis{client: client, opts: o}
}

// Dial parses a redis URL and returns a connected client.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache.dial: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache.dial: ping: %w", err)
	}
	return client, nil
}

func (c *Redis) key(userID string) string { return c.opts.prefix + userID }

func (c *Redis) Get(ctx context.Context, userID string) (stats.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats.Snapshot{}, false, nil
	}
	if err != nil {
		return stats.Snapshot{}, false, fmt.Errorf("cache.get: %w", err)
	}
	var snap stats.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return stats.Snapshot{}, false, fmt.Errorf("cache.get: decode: %w", err)
	}
	return snap, true, nil
}

func (c *Redis) Set(ctx context.Context, snap stats.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache.set: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(snap.UserID), raw, c.opts.ttl).Err(); err != nil {
		return fmt.Errorf("cache.set: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache.invalidate: %w", err)
	}
	return nil
}

// Ping checks the backend.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

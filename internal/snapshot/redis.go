package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fx-trend-lab/internal/domain"
)

// DefaultKey is the Redis key holding the latest snapshot.
const DefaultKey = "fx-trend-lab:snapshot:latest"

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithKey sets the Redis key.
func WithKey(key string) RedisOption {
	return func(c *RedisCache) {
		c.key = key
	}
}

// WithTTL sets the expiration of the cached snapshot. Zero keeps it forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		c.ttl = ttl
	}
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		key:    DefaultKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to Redis at addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Set stores snap as JSON.
func (c *RedisCache) Set(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot: nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the cached snapshot or ErrMiss.
func (c *RedisCache) Get(ctx context.Context) (*domain.Snapshot, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Clear deletes the snapshot key.
func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under a namespace shared by every key it writes.
type Cache struct {
	client    redis.Cmdable
	namespace string
}

func NewCache(client redis.Cmdable, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

func (c *Cache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// SetNX writes value only when key is absent and reports whether it did.
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal value: %w", err)
	}
	return c.client.SetNX(ctx, c.key(key), data, ttl).Result()
}

// Replace overwrites an existing key and keeps its TTL. It reports false
// when the key has already expired.
func (c *Cache) Replace(ctx context.Context, key string, value interface{}) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal value: %w", err)
	}
	_, err = c.client.SetArgs(ctx, c.key(key), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if IsMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.client.Del(ctx, full...).Err()
}

// IsMiss reports whether err came from a missing key.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

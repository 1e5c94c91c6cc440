package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching in redis hashes. Every entry of one hash
// shares a TTL and is dropped together by Invalidate.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(name string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, name)
}

// Get reads one field of a cached hash into dest
func (c *Cache) Get(ctx context.Context, name, field string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().HGet(ctx, c.key(name), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores one field of a cached hash and refreshes the hash TTL
func (c *Cache) Set(ctx context.Context, name, field string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	key := c.key(name)
	pipe := c.client.Redis().TxPipeline()
	pipe.HSet(ctx, key, field, data)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Invalidate drops every field of a cached hash
func (c *Cache) Invalidate(ctx context.Context, name string) error {
	if !c.client.Enabled() {
		return nil
	}
	return c.client.Redis().Del(ctx, c.key(name)).Err()
}

// Cache names
const (
	RankingCache = "ranking"
)

// RankingField is the hash field holding a top-N ranking
func RankingField(limit int) string {
	return fmt.Sprintf("top:%d", limit)
}

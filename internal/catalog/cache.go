package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheKey is the Redis key holding the catalog snapshot.
const DefaultCacheKey = "scrapdai:catalog:snapshot"

// ErrCacheMiss is returned when no snapshot is cached.
var ErrCacheMiss = errors.New("catalog: cache miss")

// Cache keeps a gzip-compressed snapshot in Redis.
type Cache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewCache creates a cache. A zero ttl keeps the entry until invalidated.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, key: DefaultCacheKey, ttl: ttl}
}

// Get returns the cached snapshot or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Put stores snap.
func (c *Cache) Put(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	if err := c.client.Set(ctx, c.key, buf.Bytes(), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

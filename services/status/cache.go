package status

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"skywatch/models"

	"github.com/go-redis/redis/v8"
)

// StatusCache stores the latest status snapshot per flight/day key. A miss
// is (nil, nil); callers treat read errors as misses and keep going.
type StatusCache interface {
	Get(ctx context.Context, key models.StatusKey) (*models.FlightStatus, error)
	Set(ctx context.Context, status *models.FlightStatus) error
	Delete(ctx context.Context, key models.StatusKey) error
	Ping(ctx context.Context) error
}

const statusKeyPrefix = "flightstatus:"

func statusKey(key models.StatusKey) string {
	return fmt.Sprintf("%s%s", statusKeyPrefix, key.String())
}

// RedisStatusCache is the production cache. Entries live for the configured
// TTL; the freshness window that short-circuits provider calls is narrower
// and enforced by the reader, so entries between the two ages stay around as
// stale fallbacks.
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStatusCache(client *redis.Client, ttl time.Duration) StatusCache {
	return &RedisStatusCache{client: client, ttl: ttl}
}

func (c *RedisStatusCache) Get(ctx context.Context, key models.StatusKey) (*models.FlightStatus, error) {
	val, err := c.client.Get(ctx, statusKey(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading status cache: %w", err)
	}

	var status models.FlightStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		// Corrupt entry: drop it and report a miss.
		c.client.Del(ctx, statusKey(key))
		return nil, nil
	}
	return &status, nil
}

// Set writes a snapshot unless the cache already holds a newer capture for
// the same key. Concurrent refreshes of one key are serialized by the
// aggregator, so the read-then-write pair does not race with itself.
func (c *RedisStatusCache) Set(ctx context.Context, status *models.FlightStatus) error {
	existing, err := c.Get(ctx, status.Key)
	if err == nil && existing != nil && existing.CapturedAt.After(status.CapturedAt) {
		return nil
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("error encoding status for cache: %w", err)
	}
	return c.client.Set(ctx, statusKey(status.Key), data, c.ttl).Err()
}

func (c *RedisStatusCache) Delete(ctx context.Context, key models.StatusKey) error {
	return c.client.Del(ctx, statusKey(key)).Err()
}

func (c *RedisStatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryStatusCache keeps snapshots in-process. It backs dev runs without
// Redis and the test suite.
type MemoryStatusCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	status    models.FlightStatus
	expiresAt time.Time
}

func NewMemoryStatusCache(ttl time.Duration) *MemoryStatusCache {
	return &MemoryStatusCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (c *MemoryStatusCache) Get(ctx context.Context, key models.StatusKey) (*models.FlightStatus, error) {
	c.mu.RLock()
	entry, ok := c.entries[key.String()]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key.String())
		c.mu.Unlock()
		return nil, nil
	}
	status := entry.status
	return &status, nil
}

func (c *MemoryStatusCache) Set(ctx context.Context, status *models.FlightStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[status.Key.String()]; ok && entry.status.CapturedAt.After(status.CapturedAt) {
		return nil
	}
	c.entries[status.Key.String()] = memoryEntry{status: *status, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryStatusCache) Delete(ctx context.Context, key models.StatusKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
	return nil
}

func (c *MemoryStatusCache) Ping(ctx context.Context) error { return nil }

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/pkg/cache"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// ErrKeyNotFound reports a missing or expired volatile entry.
var ErrKeyNotFound = appErrors.Clone(appErrors.ErrNotFound, "entry not found or expired")

// RedisKeyValueRepository stores JSON values with a TTL in Redis. Sessions,
// pending sign-ups and one-time codes live here.
type RedisKeyValueRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKeyValueRepository constructs the repository.
func NewRedisKeyValueRepository(client *redis.Client, logger *zap.Logger) *RedisKeyValueRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKeyValueRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the value into dest.
func (r *RedisKeyValueRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrKeyNotFound
	}

	raw, err := r.client.Get(ctx, cache.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("dropping undecodable entry", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, cache.Key(key)).Err()
		return ErrKeyNotFound
	}
	return nil
}

// Take atomically reads and removes the value, so only one caller wins.
func (r *RedisKeyValueRepository) Take(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrKeyNotFound
	}

	raw, err := r.client.GetDel(ctx, cache.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("redis getdel %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal value for %s: %w", key, err)
	}
	return nil
}

// Set marshals the value and stores it with the given TTL.
func (r *RedisKeyValueRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return appErrors.Clone(appErrors.ErrNotConfigured, "redis client not configured")
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, cache.Key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes the key; a missing key is not an error.
func (r *RedisKeyValueRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, cache.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *RedisKeyValueRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryKeyValueRepository is the single-process counterpart of
// RedisKeyValueRepository. Expired entries are dropped lazily on access.
type MemoryKeyValueRepository struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKeyValueRepository constructs an empty store.
func NewMemoryKeyValueRepository() *MemoryKeyValueRepository {
	return &MemoryKeyValueRepository{entries: make(map[string]memoryEntry), now: time.Now}
}

// WithClock overrides the time source (tests).
func (r *MemoryKeyValueRepository) WithClock(now func() time.Time) *MemoryKeyValueRepository {
	r.now = now
	return r
}

// Get unmarshals the live value into dest.
func (r *MemoryKeyValueRepository) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	entry, ok := r.live(key)
	r.mu.Unlock()
	if !ok {
		return ErrKeyNotFound
	}
	return json.Unmarshal(entry.payload, dest)
}

// Take reads and removes the live value.
func (r *MemoryKeyValueRepository) Take(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	entry, ok := r.live(key)
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()
	if !ok {
		return ErrKeyNotFound
	}
	return json.Unmarshal(entry.payload, dest)
}

// Set stores value; ttl <= 0 means no expiry.
func (r *MemoryKeyValueRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %s: %w", key, err)
	}
	entry := memoryEntry{payload: payload}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
	return nil
}

// Delete removes the key.
func (r *MemoryKeyValueRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

// Len counts live entries.
func (r *MemoryKeyValueRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.entries {
		if _, ok := r.live(key); ok {
			n++
		}
	}
	return n
}

// live must be called with mu held.
func (r *MemoryKeyValueRepository) live(key string) (memoryEntry, bool) {
	entry, ok := r.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

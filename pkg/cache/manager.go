package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Config holds cache manager configuration.
type Config struct {
	// Prefix starts every Redis key.
	Prefix string

	// DefaultTTL is the freshness of responses without caching headers.
	DefaultTTL time.Duration

	// StaleRetention keeps entries in Redis past expiry so they can be
	// revalidated with a conditional request.
	StaleRetention time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Prefix:         DefaultPrefix,
		DefaultTTL:     DefaultTTL,
		StaleRetention: time.Hour,
	}
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	config Config
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, config Config) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTTL
	}
	if config.StaleRetention < 0 {
		config.StaleRetention = 0
	}
	return &Manager{
		redis:  redisClient,
		config: config,
	}
}

// DefaultTTL returns the configured fallback freshness.
func (m *Manager) DefaultTTL() time.Duration {
	return m.config.DefaultTTL
}

func (m *Manager) redisKey(key Key) string {
	return key.withPrefix(m.config.Prefix)
}

// Get retrieves a fresh cache entry.
// Returns ErrCacheMiss if the key doesn't exist or the entry is stale.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	entry, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if !entry.IsFresh() {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}
	CacheHits.WithLabelValues("redis").Inc()
	return entry, nil
}

// GetStale retrieves an entry whether fresh or not, for revalidation.
// Only absent keys are counted, as misses.
func (m *Manager) GetStale(ctx context.Context, key Key) (*Entry, error) {
	return m.load(ctx, key)
}

func (m *Manager) load(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, m.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Set stores an entry. Redis expires it StaleRetention after it goes stale;
// an entry that is stale already and has no validator is not stored.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL() + m.config.StaleRetention
	if entry.TTL() <= 0 && !CanRevalidate(entry) {
		return nil
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, m.redisKey(key), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, m.redisKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Refresh extends the freshness of an existing entry, typically after a
// 304 Not Modified answer, and returns the refreshed entry.
func (m *Manager) Refresh(ctx context.Context, key Key, expires time.Time) (*Entry, error) {
	entry, err := m.load(ctx, key)
	if err != nil {
		return nil, err
	}
	entry.Expires = expires
	if err := m.Set(ctx, key, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

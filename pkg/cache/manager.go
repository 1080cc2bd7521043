package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss indicates the requested key is absent, expired, or could not
// be read. Callers recompute on this error; it is never fatal.
var ErrCacheMiss = errors.New("cache miss")

// Config holds cache manager configuration.
type Config struct {
	// Jitter is the maximum random duration added to every Set's base TTL.
	// Zero disables jitter.
	Jitter time.Duration
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis  *redis.Client
	jitter time.Duration
	logger zerolog.Logger
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:  redisClient,
		jitter: cfg.Jitter,
		logger: logger,
	}
}

// Get retrieves a cached value by key.
// Returns ErrCacheMiss if the key doesn't exist, the entry is expired, or
// the store is unavailable.
func (m *Manager) Get(ctx context.Context, key Key) (json.RawMessage, error) {
	cacheKey := key.String()

	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		// Store failure degrades to a miss
		CacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("op", key.Op).Msg("Cache get failed, treating as miss")
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("op", key.Op).Msg("Corrupt cache entry, treating as miss")
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	if entry.IsExpired() {
		// Evict lazily
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.Inc()
	return entry.Value, nil
}

// Set stores a value under the given key with a jittered TTL: the configured
// base duration plus a uniform random addition in [0, Jitter), drawn
// independently per call. Storage is best-effort; the returned error is
// informational and safe to ignore.
func (m *Manager) Set(ctx context.Context, key Key, value any, baseTTL time.Duration) error {
	if baseTTL <= 0 {
		return fmt.Errorf("base TTL must be positive (got %v)", baseTTL)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache value: %w", err)
	}

	ttl := baseTTL
	if m.jitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(m.jitter)))
	}

	now := time.Now()
	entry := Entry{
		Value:    raw,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		m.logger.Warn().Err(err).Str("op", key.Op).Msg("Cache set failed")
		return fmt.Errorf("redis set: %w", err)
	}

	m.logger.Debug().
		Str("op", key.Op).
		Dur("ttl", ttl).
		Msg("Cached value")

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

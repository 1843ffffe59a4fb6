// Package statcache is a Redis-backed read-model cache of per-realm
// session/subscription/registration counts, used only to answer the
// HTTP stats endpoint cheaply. It is never authoritative: the router's
// in-memory state is the only source of truth, and a cache miss or a
// disabled cache simply means the caller recomputes from the router.
package statcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings. Enabled=false yields a
// disabled Cache that degrades every operation to a no-op/miss rather
// than failing the caller. An enabled Config whose Redis does not answer
// a ping makes New return an error instead.
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// RealmStats is the read-model snapshot cached per realm.
type RealmStats struct {
	Sessions      int `json:"sessions"`
	Subscriptions int `json:"subscriptions"`
	Registrations int `json:"registrations"`
}

// statTTL bounds how stale a cached snapshot may get before callers
// fall back to recomputing from the router.
const statTTL = 5 * time.Second

// Cache wraps a Redis client scoped to realm stats.
type Cache struct {
	client *redis.Client
}

// New creates a Cache. A disabled config yields a Cache with no
// client, whose methods become no-ops.
func New(cfg Config) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     25,
		MinIdleConns: 5,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("statcache: failed to ping Redis: %w", err)
	}
	return &Cache{client: client}, nil
}

// Close closes the Redis connection, if any.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Enabled reports whether this cache has a live Redis client.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// RealmKey builds the cache key for a realm's stats snapshot.
func RealmKey(realm string) string {
	return "wampd:realm:" + realm + ":stats"
}

// Get returns the cached snapshot for realm, ok is false on a miss,
// a disabled cache, or a Redis error.
func (c *Cache) Get(ctx context.Context, realm string) (stats RealmStats, ok bool) {
	if !c.Enabled() {
		return RealmStats{}, false
	}
	val, err := c.client.Get(ctx, RealmKey(realm)).Result()
	if err != nil {
		return RealmStats{}, false
	}
	if err := json.Unmarshal([]byte(val), &stats); err != nil {
		return RealmStats{}, false
	}
	return stats, true
}

// Set stores realm's snapshot with a short TTL. Errors are swallowed:
// a cache write failure must never surface to the HTTP caller, since
// the router's live state remains the authority.
func (c *Cache) Set(ctx context.Context, realm string, stats RealmStats) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, RealmKey(realm), data, statTTL).Err()
}

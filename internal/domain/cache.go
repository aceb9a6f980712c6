package domain

import (
	"context"
	"time"
)

// Cache defines the interface for the memoization store.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// Keys are scoped by namespace so several memo tables can share one store.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, namespace string, key string) ([]byte, error)

	// Set stores a value. A ttl of zero or less never expires.
	Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, namespace string, key string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `yaml:"type" json:"type"`

	// Local LRU cache settings (Community tier).
	// LocalMaxSize <= 0 keeps every entry for the life of the process.
	LocalMaxSize int           `yaml:"localMaxSize" json:"localMaxSize"`
	LocalTTL     time.Duration `yaml:"localTTL" json:"localTTL"`

	// Redis settings (Pro tier)
	RedisAddr     string `yaml:"redisAddr" json:"redisAddr"`
	RedisPassword string `yaml:"redisPassword" json:"-"`
	RedisDB       int    `yaml:"redisDB" json:"redisDB"`

	// Two-phase settings
	EnableTwoPhase bool `yaml:"enableTwoPhase" json:"enableTwoPhase"` // If true, check local first, then Redis
}

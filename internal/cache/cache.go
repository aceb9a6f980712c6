package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/underwrite/internal/domain"
)

// New builds the memo store for the scorer. A single replica memoizes in
// process; replicas that share work memoize in Redis, optionally fronted by
// a local LRU.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory", "":
		slog.Info("memo store ready", "type", "memory", "max_size", cfg.LocalMaxSize)
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		slog.Info("memo store ready", "type", "redis", "addr", cfg.RedisAddr, "two_phase", cfg.EnableTwoPhase)
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache keeps hot memo entries in a local LRU (L1) in front of the
// Redis store shared by every replica (L2). Memo entries are keyed by
// document content, so an L1 copy can never disagree with L2 except by age.
type TwoPhaseCache struct {
	local  *LRUCache
	remote domain.Cache
	l1TTL  time.Duration

	l1Hits   atomic.Uint64
	l2Hits   atomic.Uint64
	misses   atomic.Uint64
	l2Errors atomic.Uint64
}

// TierStats counts memo lookups by the tier that answered them.
type TierStats struct {
	L1Hits   uint64 `json:"l1Hits"`
	L2Hits   uint64 `json:"l2Hits"`
	Misses   uint64 `json:"misses"`
	L2Errors uint64 `json:"l2Errors"`
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}
	return newTwoPhase(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil
}

func newTwoPhase(local *LRUCache, remote domain.Cache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}
}

// Get retrieves from L1 first, then L2, and populates L1 on an L2 hit. An
// unreachable L2 reads as a miss so scoring falls back to recomputing.
func (c *TwoPhaseCache) Get(ctx context.Context, namespace string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		c.l1Hits.Add(1)
		return val, nil
	}

	val, err = c.remote.Get(ctx, namespace, key)
	if err != nil {
		c.l2Errors.Add(1)
		slog.WarnContext(ctx, "memo L2 read failed", "namespace", namespace, "error", err)
		c.misses.Add(1)
		return nil, nil
	}
	if val == nil {
		c.misses.Add(1)
		return nil, nil
	}

	c.l2Hits.Add(1)
	_ = c.local.Set(ctx, namespace, key, val, c.l1TTL)
	return val, nil
}

// Set writes to both L1 and L2. L1 never outlives its own TTL. The L1 copy
// stays even when L2 rejects the write.
func (c *TwoPhaseCache) Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.local.Set(ctx, namespace, key, value, l1TTL); err != nil {
		return err
	}
	if err := c.remote.Set(ctx, namespace, key, value, ttl); err != nil {
		c.l2Errors.Add(1)
		return fmt.Errorf("memo L2 write: %w", err)
	}
	return nil
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, namespace string, key string) error {
	if err := c.local.Delete(ctx, namespace, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, namespace, key)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}

// TierStats returns the lookup counters since the cache was created.
func (c *TwoPhaseCache) TierStats() TierStats {
	return TierStats{
		L1Hits:   c.l1Hits.Load(),
		L2Hits:   c.l2Hits.Load(),
		Misses:   c.misses.Load(),
		L2Errors: c.l2Errors.Load(),
	}
}

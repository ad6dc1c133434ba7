package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/config"
	"price-tracker/internal/model"
)

// Cache keeps the most recent observation per symbol for fast status reads.
// It is a convenience layer over the ledger, not a source of truth.
type Cache interface {
	Put(ctx context.Context, obs model.Observation) error
	Get(ctx context.Context, symbol string) (model.Observation, bool, error)
	All(ctx context.Context) ([]model.Observation, error)
	Close() error
}

// New selects the configured backend. A Redis backend that cannot be reached
// degrades to the in-memory cache with a warning rather than failing startup.
func New(cfg config.SnapshotConfig, logger zerolog.Logger) Cache {
	log := logger.With().Str("component", "snapshot").Logger()

	if cfg.Backend == "redis" && cfg.RedisAddr != "" {
		cache, err := newRedisCache(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, falling back to in-memory snapshot cache")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("snapshot cache backed by redis")
			return cache
		}
	}

	return NewMemoryCache(cfg.TTL)
}

type memoryEntry struct {
	obs      model.Observation
	storedAt time.Time
}

// MemoryCache is the default process-local backend.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	now func() time.Time
}

// NewMemoryCache builds an in-memory cache. A non-positive TTL keeps entries
// until overwritten.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Put(_ context.Context, obs model.Observation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[obs.Symbol] = memoryEntry{obs: obs, storedAt: c.now()}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (model.Observation, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || c.expired(entry) {
		return model.Observation{}, false, nil
	}
	return entry.obs, true, nil
}

func (c *MemoryCache) All(_ context.Context) ([]model.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Observation, 0, len(c.entries))
	for _, entry := range c.entries {
		if c.expired(entry) {
			continue
		}
		out = append(out, entry.obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) expired(entry memoryEntry) bool {
	return c.ttl > 0 && c.now().Sub(entry.storedAt) > c.ttl
}

var _ Cache = (*MemoryCache)(nil)

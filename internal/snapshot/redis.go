package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"price-tracker/internal/config"
	"price-tracker/internal/model"
)

const redisKeyPrefix = "pricetracker:snapshot:"

// RedisCache shares the latest observations across processes. Entries expire
// after the configured TTL so stale prices never linger.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newRedisCache(cfg config.SnapshotConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Put(ctx context.Context, obs model.Observation) error {
	value, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal snapshot entry: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+obs.Symbol, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot for %s: %w", obs.Symbol, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (model.Observation, bool, error) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+symbol).Result()
	if err == redis.Nil {
		return model.Observation{}, false, nil
	}
	if err != nil {
		return model.Observation{}, false, fmt.Errorf("read snapshot for %s: %w", symbol, err)
	}

	var obs model.Observation
	if err := json.Unmarshal([]byte(raw), &obs); err != nil {
		return model.Observation{}, false, fmt.Errorf("decode snapshot for %s: %w", symbol, err)
	}
	return obs, true, nil
}

func (c *RedisCache) All(ctx context.Context) ([]model.Observation, error) {
	keys, err := c.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read snapshot entries: %w", err)
	}

	out := make([]model.Observation, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var obs model.Observation
		if err := json.Unmarshal([]byte(raw), &obs); err != nil {
			c.logger.Warn().Err(err).Str("key", keys[i]).Msg("skipping undecodable snapshot entry")
			continue
		}
		out = append(out, obs)
	}
	return out, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)

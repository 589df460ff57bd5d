package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/plans"
)

const (
	DefaultCacheTTL    = 10 * time.Minute
	defaultCachePrefix = "broker-genie:catalog:"

	plansKey      = "plans"
	conditionsKey = "health_conditions"
	medsKey       = "medications"
)

// Cached keeps a JSON copy of another source in Redis. Redis failures are
// logged and the wrapped source is used instead.
type Cached struct {
	next   Source
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewCached(next Source, rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, prefix: defaultCachePrefix, logger: logger}
}

func (c *Cached) Plans(ctx context.Context) (*plans.Plans, error) {
	items, err := fetch(ctx, c, plansKey, func(ctx context.Context) ([]*plans.Plan, error) {
		ps, err := c.next.Plans(ctx)
		if err != nil {
			return nil, err
		}
		return ps.Items, nil
	})
	if err != nil {
		return nil, err
	}
	return &plans.Plans{Items: items}, nil
}

func (c *Cached) HealthConditions(ctx context.Context) ([]string, error) {
	return fetch(ctx, c, conditionsKey, c.next.HealthConditions)
}

func (c *Cached) Medications(ctx context.Context) ([]string, error) {
	return fetch(ctx, c, medsKey, c.next.Medications)
}

// Invalidate drops every cached catalog entry.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.prefix+plansKey, c.prefix+conditionsKey, c.prefix+medsKey).Err()
}

func fetch[T any](ctx context.Context, c *Cached, key string, load func(context.Context) (T, error)) (T, error) {
	key = c.prefix + key
	log := c.logger.With(zap.String("key", key))

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var value T
		decodeErr := json.Unmarshal(data, &value)
		if decodeErr == nil {
			log.Debug("catalog cache hit")
			return value, nil
		}
		log.Warn("dropping malformed catalog cache entry", zap.Error(decodeErr))
	case errors.Is(err, redis.Nil):
		log.Debug("catalog cache miss")
	default:
		log.Warn("catalog cache unavailable", zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		log.Warn("encoding catalog cache entry", zap.Error(err))
		return value, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn("storing catalog cache entry", zap.Error(err))
	}

	return value, nil
}

package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"deckhand/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const topQuotesCacheKey = "deckhand:quotes:top"

// RedisCache is a read-through cache in front of another source. Redis
// failures are logged and fall through to the base source.
type RedisCache struct {
	base  Source
	redis *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger
}

func NewRedisCache(base Source, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RedisCache {
	if base == nil {
		panic("quotes.NewRedisCache: base source is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisCache{base: base, redis: client, ttl: ttl, log: log}
}

func (c *RedisCache) TopQuotes(ctx context.Context) ([]model.Quote, error) {
	if qs, ok := c.load(ctx); ok {
		return qs, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qs, err := c.base.TopQuotes(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, qs)
	return qs, nil
}

// Evict drops the cached list.
func (c *RedisCache) Evict(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, topQuotesCacheKey).Err()
}

func (c *RedisCache) load(ctx context.Context) ([]model.Quote, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, topQuotesCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			c.log.WithError(err).Warn("quotes cache get")
		}
		return nil, false
	}
	var qs []model.Quote
	if err := json.Unmarshal(data, &qs); err != nil {
		c.log.WithError(err).Warn("quotes cache decode")
		return nil, false
	}
	return qs, true
}

func (c *RedisCache) store(ctx context.Context, qs []model.Quote) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(qs)
	if err != nil {
		c.log.WithError(err).Warn("quotes cache encode")
		return
	}
	if err := c.redis.Set(ctx, topQuotesCacheKey, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("quotes cache set")
	}
}

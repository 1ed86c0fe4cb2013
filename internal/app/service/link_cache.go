package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ksavin/snipurl/internal/app/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "link:"

// RedisLinkCache caches resolved links in Redis. Cached entries carry the
// clicks value observed at cache time; the accounting fallback tolerates the
// resulting staleness.
type RedisLinkCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLinkCache returns a cache with the given entry TTL.
func NewRedisLinkCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLinkCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLinkCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisLinkCache) Get(ctx context.Context, code string) (*model.Link, bool) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+code).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("link cache read failed", zap.String("code", code), zap.Error(err))
		}
		return nil, false
	}

	var link model.Link
	if err := json.Unmarshal(data, &link); err != nil {
		c.logger.Warn("link cache entry corrupt", zap.String("code", code), zap.Error(err))
		return nil, false
	}
	return &link, true
}

func (c *RedisLinkCache) Set(ctx context.Context, link *model.Link) {
	data, err := json.Marshal(link)
	if err != nil {
		c.logger.Warn("link cache marshal failed", zap.String("code", link.Code), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+link.Code, data, c.ttl).Err(); err != nil {
		c.logger.Debug("link cache write failed", zap.String("code", link.Code), zap.Error(err))
	}
}

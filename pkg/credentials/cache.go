package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// RedisCache decorates an IntegrationSource with a shared Redis cache so
// concurrent runs do not hammer the secret backend. Cache misses and Redis
// outages fall through to the wrapped source.
type RedisCache struct {
	source IntegrationSource
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(source IntegrationSource, client redis.UniversalClient, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		source: source,
		client: client,
		ttl:    defaultCacheTTL,
		logger: logger.With("module", "credential_cache"),
	}
}

func (c *RedisCache) DefaultCredentials(ctx context.Context, serviceType string) (map[string]any, error) {
	key := "syncline:integration-credentials:" + serviceType

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var credentials map[string]any
		if err := json.Unmarshal([]byte(cached), &credentials); err == nil {
			return credentials, nil
		}

		c.logger.Warn("Discarding corrupt cached credentials", "service_type", serviceType)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Credential cache read failed", "error", err)
	}

	credentials, err := c.source.DefaultCredentials(ctx, serviceType)
	if err != nil {
		return nil, err
	}

	if credentials != nil {
		if payload, err := json.Marshal(credentials); err == nil {
			if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
				c.logger.Warn("Credential cache write failed", "error", err)
			}
		}
	}

	return credentials, nil
}

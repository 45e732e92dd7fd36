package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/monitoring"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "aggregator:"

// Redis is a Cache shared between processes. Expiry is delegated to redis.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	metrics *monitoring.Metrics
}

func NewRedis(host string, ttl time.Duration, m *monitoring.Metrics) *Redis {
	if host == "" {
		host = "localhost"
	}
	return NewRedisWithClient(redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:6379", host),
		Password: "",
	}), DefaultRedisPrefix, ttl, m)
}

func NewRedisWithClient(client redis.UniversalClient, prefix string, ttl time.Duration, m *monitoring.Metrics) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if m == nil {
		m = monitoring.NewMetrics()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, metrics: m}
}

func (r *Redis) key(key string) string {
	return r.prefix + SanitizeKey(key)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.fail("read", key, err)
		}
		r.metrics.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}
	r.metrics.CacheHits.WithLabelValues("redis").Inc()
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, data []byte) {
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		r.fail("write", key, err)
	}
}

// Clear removes every key under the prefix.
func (r *Redis) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.fail("clear", r.prefix, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.fail("clear", r.prefix, err)
	}
}

func (r *Redis) fail(op, key string, err error) {
	r.metrics.CacheErrors.WithLabelValues("redis", op).Inc()
	logging.Warn().Err(err).Str("op", op).Str("key", key).Msg("Redis cache operation failed")
}

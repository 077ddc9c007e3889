package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "replystack:processed:"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration

	// approximate local count, enough for the status endpoint
	size atomic.Int64
}

// NewRedisCache returns a redis-backed processed-ID cache. Expiry is
// delegated to redis key TTLs, which makes the dedup window survive
// process restarts.
func NewRedisCache(url string, ttl time.Duration) (ProcessedCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &redisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *redisCache) MarkProcessed(ctx context.Context, id string) {
	set, err := c.client.SetNX(ctx, redisKeyPrefix+id, 1, c.ttl).Result()
	if err == nil && set {
		c.size.Add(1)
	}
}

func (c *redisCache) IsProcessed(ctx context.Context, id string) bool {
	n, err := c.client.Exists(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		// Treat redis failure as unknown; the audit-log existence check
		// still prevents duplicate replies.
		return false
	}
	return n > 0
}

func (c *redisCache) Size() int {
	return int(c.size.Load())
}

func (c *redisCache) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	c.size.Store(0)
}

func (c *redisCache) Close() {
	_ = c.client.Close()
}

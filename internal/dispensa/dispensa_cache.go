package dispensa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const documentCachePrefix = "dispensa:pdf:"

// DocumentCacheKey changes whenever the request version does, so a cached
// document can never outlive the decision it shows.
func DocumentCacheKey(id string, version int64) string {
	return fmt.Sprintf("%s%s:v%d", documentCachePrefix, id, version)
}

type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

type redisDocumentCache struct {
	rdb *redis.Client
}

func NewRedisDocumentCache(rdb *redis.Client) DocumentCache {
	return &redisDocumentCache{rdb: rdb}
}

func (c *redisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *redisDocumentCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

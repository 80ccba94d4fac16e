package locker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    *redis.Client
	wait   time.Duration
	poll   time.Duration
	logger *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, wait time.Duration, logger ...*zap.Logger) *RedisLocker {
	l := zap.L().Named("locker.redis")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("locker.redis")
	}
	return &RedisLocker{rdb: rdb, wait: wait, poll: 25 * time.Millisecond, logger: l}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}

		if !time.Now().Before(deadline) {
			l.logger.Warn("lock busy", zap.String("key", key), zap.Duration("waited", l.wait))
			return nil, ErrNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled here.
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
				l.logger.Error("release lock failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

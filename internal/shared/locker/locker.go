package locker

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock is still held by someone else
// once the wait budget runs out.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker serializes work per key. release must be called exactly once; extra
// calls are ignored.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

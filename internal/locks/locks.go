package locks

import (
	"context"
	"time"
)

// Locker is a try-acquire mutex with a TTL safety valve. Acquire never
// blocks: callers that lose the race get ok=false and must re-invoke later.
type Locker interface {
	// Acquire returns a release token when the named lock was free. The TTL
	// bounds how long a crashed holder can keep the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the lock only when token still matches the holder.
	Release(ctx context.Context, key, token string) error
	Held(ctx context.Context, key string) (bool, error)
}

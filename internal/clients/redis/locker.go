package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vidaplus/onboarding-backend/internal/locks"
	"github.com/vidaplus/onboarding-backend/internal/logger"
)

// releaseScript deletes the lock only when the stored token matches, so an
// expired-and-reacquired lock is never released by the previous holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

type locker struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewLocker(log *logger.Logger) (locks.Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_LOCK_PREFIX"))
	if prefix == "" {
		prefix = "lock"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &locker{
		log:    log.With("service", "RedisLocker"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (l *locker) key(name string) string {
	return l.prefix + ":" + name
}

func (l *locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.rdb == nil {
		return "", false, fmt.Errorf("redis locker not initialized")
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key(key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.rdb == nil {
		return fmt.Errorf("redis locker not initialized")
	}
	if err := l.rdb.Eval(ctx, releaseScript, []string{l.key(key)}, token).Err(); err != nil && err != goredis.Nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

func (l *locker) Held(ctx context.Context, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return false, fmt.Errorf("redis locker not initialized")
	}
	n, err := l.rdb.Exists(ctx, l.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

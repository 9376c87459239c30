package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lease taken over by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease-based lock using SET NX PX. It works across
// multiple server instances sharing one Redis.
type RedisLocker struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

// NewRedisLocker creates a RedisLocker. ttl is the lease; timeout bounds the wait.
func NewRedisLocker(rdb redis.UniversalClient, ttl, timeout time.Duration, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:     rdb,
		ttl:     ttl,
		timeout: timeout,
		log:     log.With().Str("component", "redis_locker").Logger(),
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && ctx.Err() == nil {
			return nil, err
		}

		select {
		case <-ctx.Done():
			// A caller that went away is not lock contention.
			if err := parent.Err(); err != nil {
				return nil, err
			}
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be gone; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
				l.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
			}
		})
	}, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only while the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is an advisory lock shared by every server instance using the
// same redis. The TTL bounds how long a crashed holder can block others; a live
// holder keeps extending it every TTL/3 until it releases.
type RedisLocker struct {
	Redis      *redis.Client
	TTL        time.Duration
	RetryEvery time.Duration
}

// NewRedisLocker Constructor
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Redis: rdb, TTL: ttl, RetryEvery: 25 * time.Millisecond}
}

// Lock blocks until the lock for key is held or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	token := uuid.New().String()

	for {
		ok, err := l.Redis.SetNX(ctx, lockKey, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: acquire %s: %v", ErrStoreUnavailable, lockKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: acquire %s: %v", ErrStoreUnavailable, lockKey, ctx.Err())
		case <-time.After(l.RetryEvery):
		}
	}

	stop := make(chan struct{})
	go keepAlive(stop, lockKey, l.TTL/3, func(ctx context.Context) (bool, error) {
		n, err := extendScript.Run(ctx, l.Redis, []string{lockKey}, token, l.TTL.Milliseconds()).Int()
		return n == 1, err
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			// The caller's ctx may already be cancelled; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.Redis, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("WARNING: Failed to release %s: %v", lockKey, err)
			}
		})
	}, nil
}

// keepAlive calls extend every interval until stop is closed or extend reports
// that the lock is no longer ours. Extension errors are retried on the next tick.
func keepAlive(stop <-chan struct{}, key string, every time.Duration, extend func(ctx context.Context) (bool, error)) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			held, err := extend(ctx)
			cancel()
			if err != nil {
				log.Printf("WARNING: Failed to extend %s: %v", key, err)
				continue
			}
			if !held {
				log.Printf("ERROR: Lost %s before release; another holder may have entered", key)
				return
			}
		}
	}
}

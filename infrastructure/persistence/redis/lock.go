package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cartsync/application/ports"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`

// DrainLock implements ports.DrainLock with SET NX PX
type DrainLock struct {
	rdb    Client
	prefix string
}

// DrainLock returns a lock sharing the store's client and key prefix
func (s *Store) DrainLock() *DrainLock {
	return &DrainLock{rdb: s.rdb, prefix: s.prefix}
}

// Acquire takes the drain lease for scope
func (l *DrainLock) Acquire(ctx context.Context, scope string, ttl time.Duration) (func(context.Context) error, error) {
	key := l.prefix + ":" + scope + ":lock:drain"
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", scope, err)
	}
	if !ok {
		return nil, ports.ErrLockHeld
	}

	return func(ctx context.Context) error {
		err := l.rdb.Eval(ctx, releaseScript, []string{key}, token).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("redis unlock %s: %w", scope, err)
		}
		return nil
	}, nil
}

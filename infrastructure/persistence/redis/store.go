package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cartsync/application/ports"

	goredis "github.com/redis/go-redis/v9"
)

// Client is the subset of the go-redis client the store uses
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// Store implements ports.KeyValueStore on Redis strings keyed <prefix>:<scope>:<name>
type Store struct {
	rdb    Client
	prefix string
	ttl    time.Duration
}

// NewStore wraps an existing client. A zero ttl keeps keys forever.
func NewStore(rdb Client, prefix string, ttl time.Duration) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cartsync"
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and verifies the connection with a ping
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Get returns the stored bytes for key
func (s *Store) Get(ctx context.Context, key ports.StorageKey) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ports.ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Put stores value under key, refreshing the ttl
func (s *Store) Put(ctx context.Context, key ports.StorageKey, value []byte) error {
	if err := s.rdb.Set(ctx, s.redisKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key ports.StorageKey) error {
	if err := s.rdb.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *Store) redisKey(key ports.StorageKey) string {
	return s.prefix + ":" + key.Scope + ":" + key.Name
}

// Close closes the underlying client when it owns a connection pool
func (s *Store) Close() error {
	if closer, ok := s.rdb.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

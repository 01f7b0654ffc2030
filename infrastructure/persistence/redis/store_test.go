package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"cartsync/application/ports"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.err != nil {
		return goredis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	if f.err != nil {
		return goredis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	if f.err != nil {
		return goredis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd {
	if f.err != nil {
		return goredis.NewBoolResult(false, f.err)
	}
	if _, ok := f.values[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	f.ttls[key] = expiration
	return goredis.NewBoolResult(true, nil)
}

// Eval only understands the compare-and-delete release script
func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd {
	if f.err != nil {
		return goredis.NewCmdResult(nil, f.err)
	}
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewStore(rdb, "shop", 30*time.Minute)
	key := ports.StorageKey{Scope: "s1", Name: "cart"}

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, key, []byte(`[{"id":"a"}]`)))
	assert.Contains(t, rdb.values, "shop:s1:cart")
	assert.Equal(t, 30*time.Minute, rdb.ttls["shop:s1:cart"])

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestStore_DefaultPrefix(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, " ", 0)

	require.NoError(t, store.Put(context.Background(), ports.StorageKey{Scope: "x", Name: "wishlist"}, []byte("[]")))
	assert.Contains(t, rdb.values, "cartsync:x:wishlist")
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	rdb := newFakeRedis()
	rdb.err = boom
	store := NewStore(rdb, "shop", 0)
	key := ports.StorageKey{Scope: "s1", Name: "cart"}

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ports.ErrKeyNotFound)
	assert.ErrorIs(t, store.Put(ctx, key, []byte("[]")), boom)
	assert.ErrorIs(t, store.Delete(ctx, key), boom)
}

func TestDial_RequiresAddress(t *testing.T) {
	_, err := Dial(context.Background(), "", "", 0)
	assert.Error(t, err)
}

func TestStore_CloseWithoutPool(t *testing.T) {
	store := NewStore(newFakeRedis(), "", 0)
	assert.NoError(t, store.Close())
}

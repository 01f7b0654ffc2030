package ports

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by a KeyValueStore when nothing is stored under a key
var ErrKeyNotFound = errors.New("storage key not found")

// StorageKey addresses one snapshot. Scope isolates shopper sessions from
// each other; Name selects the aggregate ("cart", "wishlist").
type StorageKey struct {
	Scope string
	Name  string
}

// String returns "scope/name"
func (k StorageKey) String() string {
	return k.Scope + "/" + k.Name
}

// KeyValueStore is the durable byte store snapshots are written to.
// This is a port in hexagonal architecture - backends live in infrastructure/persistence.
type KeyValueStore interface {
	// Get returns the stored bytes or ErrKeyNotFound
	Get(ctx context.Context, key StorageKey) ([]byte, error)

	// Put replaces whatever is stored under key
	Put(ctx context.Context, key StorageKey, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key StorageKey) error
}

// SnapshotStore is the typed adapter aggregates persist through.
// Load never fails: a missing or corrupt snapshot is an empty sequence.
// Read is Load for callers that already hold state: it reports a backend
// failure instead of answering empty.
type SnapshotStore[T any] interface {
	Load(ctx context.Context, name string) []T
	Read(ctx context.Context, name string) ([]T, error)
	Save(ctx context.Context, name string, items []T) error
	Clear(ctx context.Context, name string) error
}

// ErrLockHeld is returned by a DrainLock when another owner holds the lease
var ErrLockHeld = errors.New("lock already held")

// DrainLock is a lease that keeps two processes sharing one snapshot backend
// from draining the same session's cart at the same time.
type DrainLock interface {
	// Acquire takes the lease for scope or returns ErrLockHeld. The returned
	// release func gives the lease back; an unreleased lease expires after ttl.
	Acquire(ctx context.Context, scope string, ttl time.Duration) (release func(context.Context) error, err error)
}

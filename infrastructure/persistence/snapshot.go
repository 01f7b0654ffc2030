// Package persistence contains the typed snapshot adapter and the byte store backends behind it.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cartsync/application/ports"
	pkgerrors "cartsync/pkg/errors"

	"go.uber.org/zap"
)

// SnapshotStore persists whole sequences of T as JSON under one storage scope.
// It implements ports.SnapshotStore[T].
type SnapshotStore[T any] struct {
	store  ports.KeyValueStore
	scope  string
	logger *zap.Logger
}

// NewSnapshotStore creates a snapshot adapter bound to scope
func NewSnapshotStore[T any](store ports.KeyValueStore, scope string, logger *zap.Logger) *SnapshotStore[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore[T]{
		store:  store,
		scope:  scope,
		logger: logger,
	}
}

// Load returns the stored sequence. A missing, unreadable or corrupt snapshot
// is an empty sequence; the cause is logged.
func (s *SnapshotStore[T]) Load(ctx context.Context, name string) []T {
	items, err := s.Read(ctx, name)
	if err != nil {
		s.logger.Warn("Failed to read snapshot, starting empty",
			zap.String("key", s.key(name).String()),
			zap.Error(err),
		)
		return []T{}
	}
	return items
}

// Read returns the stored sequence. A missing or corrupt snapshot is an empty
// sequence; only a backend failure is returned as an error.
func (s *SnapshotStore[T]) Read(ctx context.Context, name string) ([]T, error) {
	key := s.key(name)

	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return []T{}, nil
		}
		return nil, pkgerrors.NewStorageError("read snapshot", err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("Corrupt snapshot, starting empty",
			zap.String("key", key.String()),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the stored sequence with items
func (s *SnapshotStore[T]) Save(ctx context.Context, name string, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.NewStorageError("encode snapshot", err)
	}

	if err := s.store.Put(ctx, s.key(name), data); err != nil {
		return pkgerrors.NewStorageError("save snapshot", err)
	}
	return nil
}

// Clear removes the stored sequence
func (s *SnapshotStore[T]) Clear(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, s.key(name)); err != nil {
		return pkgerrors.NewStorageError("clear snapshot", err)
	}
	return nil
}

// Scope returns the storage scope this adapter writes under
func (s *SnapshotStore[T]) Scope() string {
	return s.scope
}

func (s *SnapshotStore[T]) key(name string) ports.StorageKey {
	return ports.StorageKey{Scope: s.scope, Name: name}
}

// Probe checks that store answers a read. A missing key counts as healthy.
func Probe(ctx context.Context, store ports.KeyValueStore) error {
	_, err := store.Get(ctx, ports.StorageKey{Scope: "_health", Name: "probe"})
	if err != nil && !errors.Is(err, ports.ErrKeyNotFound) {
		return fmt.Errorf("storage probe failed: %w", err)
	}
	return nil
}

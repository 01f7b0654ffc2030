// Package services drives the cart and wishlist aggregates: hydration,
// persistence after every mutation, event publishing, and authenticated
// mirroring to the server cart.
package services

import (
	"context"

	"cartsync/application/ports"
	"cartsync/application/session"
	"cartsync/application/tasks"
	"cartsync/domain/events"

	"go.uber.org/zap"
)

// Identity exposes the current shopper identity
type Identity interface {
	Current() session.State
}

type eventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// publishEvents hands the aggregate's pending events to the publisher on a
// detached task. Caller must hold the aggregate's lock.
func publishEvents(ctx context.Context, src eventSource, runner *tasks.Runner, publisher ports.EventPublisher, logger *zap.Logger) {
	pending := src.GetUncommittedEvents()
	src.MarkEventsAsCommitted()
	if len(pending) == 0 || publisher == nil {
		return
	}

	if runner == nil {
		if err := publisher.PublishBatch(ctx, pending); err != nil {
			logger.Warn("Failed to publish events", zap.Int("count", len(pending)), zap.Error(err))
		}
		return
	}
	runner.Go(ctx, "events.publish", func(ctx context.Context) error {
		return publisher.PublishBatch(ctx, pending)
	})
}

type nopMetrics struct{}

func (nopMetrics) RecordMutation(string, string) {}
func (nopMetrics) RecordStorageFailure(string)   {}
func (nopMetrics) RecordMirror(bool)             {}
func (nopMetrics) RecordDrain(string, int)       {}

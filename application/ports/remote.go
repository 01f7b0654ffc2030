package ports

import (
	"context"

	"cartsync/domain/events"
)

// RemoteCart is the server-side cart API.
// AddLineItem must behave as an upsert keyed by product ID so that a retried
// drain can resend lines that were already delivered.
type RemoteCart interface {
	AddLineItem(ctx context.Context, credential string, productID string, quantity int) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Metrics receives counters from the cart engine
type Metrics interface {
	RecordMutation(aggregate, operation string)
	RecordStorageFailure(operation string)
	RecordMirror(success bool)
	RecordDrain(outcome string, lines int)
}

package events

import (
	"time"

	"cartsync/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Event type names
const (
	TypeCartItemAdded       = "cart.item_added"
	TypeCartQuantityChanged = "cart.quantity_changed"
	TypeCartItemRemoved     = "cart.item_removed"
	TypeCartCleared         = "cart.cleared"
	TypeCartDrained         = "cart.drained"
	TypeWishlistItemAdded   = "wishlist.item_added"
	TypeWishlistItemRemoved = "wishlist.item_removed"
)

// SourceCartSync is the event source used when publishing to a bus
const SourceCartSync = "cartsync.sessions"

func newBase(aggregateID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// Cart Events

// CartItemAdded is raised when a product is added to a cart, either as a new
// line or merged into an existing one
type CartItemAdded struct {
	BaseEvent
	ProductID   valueobjects.ProductID `json:"product_id"`
	Delta       int                    `json:"delta"`
	NewQuantity int                    `json:"new_quantity"`
	Merged      bool                   `json:"merged"`
}

// NewCartItemAdded creates a CartItemAdded event
func NewCartItemAdded(cartID string, productID valueobjects.ProductID, delta, newQuantity int, merged bool, timestamp time.Time) CartItemAdded {
	return CartItemAdded{
		BaseEvent:   newBase(cartID, TypeCartItemAdded, timestamp),
		ProductID:   productID,
		Delta:       delta,
		NewQuantity: newQuantity,
		Merged:      merged,
	}
}

// CartQuantityChanged is raised when a line's quantity moves but stays positive
type CartQuantityChanged struct {
	BaseEvent
	ProductID   valueobjects.ProductID `json:"product_id"`
	OldQuantity int                    `json:"old_quantity"`
	NewQuantity int                    `json:"new_quantity"`
}

// NewCartQuantityChanged creates a CartQuantityChanged event
func NewCartQuantityChanged(cartID string, productID valueobjects.ProductID, oldQty, newQty int, timestamp time.Time) CartQuantityChanged {
	return CartQuantityChanged{
		BaseEvent:   newBase(cartID, TypeCartQuantityChanged, timestamp),
		ProductID:   productID,
		OldQuantity: oldQty,
		NewQuantity: newQty,
	}
}

// CartItemRemoved is raised when a line leaves the cart
type CartItemRemoved struct {
	BaseEvent
	ProductID valueobjects.ProductID `json:"product_id"`
	Quantity  int                    `json:"quantity"`
}

// NewCartItemRemoved creates a CartItemRemoved event
func NewCartItemRemoved(cartID string, productID valueobjects.ProductID, quantity int, timestamp time.Time) CartItemRemoved {
	return CartItemRemoved{
		BaseEvent: newBase(cartID, TypeCartItemRemoved, timestamp),
		ProductID: productID,
		Quantity:  quantity,
	}
}

// CartCleared is raised when every line is dropped at once
type CartCleared struct {
	BaseEvent
	LineCount int `json:"line_count"`
}

// NewCartCleared creates a CartCleared event
func NewCartCleared(cartID string, lineCount int, timestamp time.Time) CartCleared {
	return CartCleared{
		BaseEvent: newBase(cartID, TypeCartCleared, timestamp),
		LineCount: lineCount,
	}
}

// CartDrained is raised after a guest cart was delivered to the server cart
type CartDrained struct {
	BaseEvent
	LineCount int `json:"line_count"`
	UnitCount int `json:"unit_count"`
}

// NewCartDrained creates a CartDrained event
func NewCartDrained(cartID string, lineCount, unitCount int, timestamp time.Time) CartDrained {
	return CartDrained{
		BaseEvent: newBase(cartID, TypeCartDrained, timestamp),
		LineCount: lineCount,
		UnitCount: unitCount,
	}
}

// Wishlist Events

// WishlistItemAdded is raised when a product joins a wishlist
type WishlistItemAdded struct {
	BaseEvent
	ProductID valueobjects.ProductID `json:"product_id"`
}

// NewWishlistItemAdded creates a WishlistItemAdded event
func NewWishlistItemAdded(wishlistID string, productID valueobjects.ProductID, timestamp time.Time) WishlistItemAdded {
	return WishlistItemAdded{
		BaseEvent: newBase(wishlistID, TypeWishlistItemAdded, timestamp),
		ProductID: productID,
	}
}

// WishlistItemRemoved is raised when a product leaves a wishlist
type WishlistItemRemoved struct {
	BaseEvent
	ProductID valueobjects.ProductID `json:"product_id"`
}

// NewWishlistItemRemoved creates a WishlistItemRemoved event
func NewWishlistItemRemoved(wishlistID string, productID valueobjects.ProductID, timestamp time.Time) WishlistItemRemoved {
	return WishlistItemRemoved{
		BaseEvent: newBase(wishlistID, TypeWishlistItemRemoved, timestamp),
		ProductID: productID,
	}
}

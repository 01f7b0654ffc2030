package aggregates

import (
	"errors"
	"fmt"
	"time"

	"cartsync/domain/config"
	"cartsync/domain/core/entities"
	"cartsync/domain/core/valueobjects"
	"cartsync/domain/events"
	pkgerrors "cartsync/pkg/errors"
)

// Wishlist is a set of saved products keyed by product ID.
// It keeps insertion order so listings are stable across reloads.
type Wishlist struct {
	id       string
	items    []entities.WishlistItem
	index    map[valueobjects.ProductID]int
	maxItems int
	events   []events.DomainEvent
}

// NewWishlist creates an empty wishlist owned by the given scope
func NewWishlist(id string, cfg *config.DomainConfig) (*Wishlist, error) {
	if id == "" {
		return nil, errors.New("wishlist id required")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	return &Wishlist{
		id:       id,
		items:    []entities.WishlistItem{},
		index:    make(map[valueobjects.ProductID]int),
		maxItems: cfg.MaxWishlistItems,
		events:   []events.DomainEvent{},
	}, nil
}

// ReconstructWishlist hydrates a wishlist from a persisted snapshot, keeping the
// first occurrence of any duplicated ID
func ReconstructWishlist(id string, snapshot []entities.WishlistItem, cfg *config.DomainConfig) (*Wishlist, error) {
	w, err := NewWishlist(id, cfg)
	if err != nil {
		return nil, err
	}
	for _, item := range snapshot {
		if !item.IsValid() || w.Contains(item.ID) {
			continue
		}
		w.append(item)
	}
	return w, nil
}

// ID returns the wishlist's owning scope
func (w *Wishlist) ID() string {
	return w.id
}

// Items returns a copy of the saved products
func (w *Wishlist) Items() []entities.WishlistItem {
	items := make([]entities.WishlistItem, len(w.items))
	copy(items, w.items)
	return items
}

// Len returns the number of saved products
func (w *Wishlist) Len() int {
	return len(w.items)
}

// Contains reports membership
func (w *Wishlist) Contains(id valueobjects.ProductID) bool {
	_, ok := w.index[id]
	return ok
}

// Add saves a product. Adding an ID that is already present is a no-op and
// returns false.
func (w *Wishlist) Add(item entities.WishlistItem) (bool, error) {
	if item.ID.IsZero() {
		return false, pkgerrors.NewValidationError("product ID is required")
	}
	if w.Contains(item.ID) {
		return false, nil
	}
	if w.maxItems > 0 && len(w.items) >= w.maxItems {
		return false, pkgerrors.NewCartLimitError(fmt.Sprintf("wishlist cannot hold more than %d products", w.maxItems))
	}

	w.append(item)
	w.addEvent(events.NewWishlistItemAdded(w.id, item.ID, time.Now()))
	return true, nil
}

// Remove drops a product. Absent products are a no-op and return false.
func (w *Wishlist) Remove(id valueobjects.ProductID) bool {
	idx, ok := w.index[id]
	if !ok {
		return false
	}

	w.items = append(w.items[:idx], w.items[idx+1:]...)
	delete(w.index, id)
	for i := idx; i < len(w.items); i++ {
		w.index[w.items[i].ID] = i
	}

	w.addEvent(events.NewWishlistItemRemoved(w.id, id, time.Now()))
	return true
}

// GetUncommittedEvents returns all uncommitted domain events
func (w *Wishlist) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(w.events))
	copy(out, w.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (w *Wishlist) MarkEventsAsCommitted() {
	w.events = []events.DomainEvent{}
}

func (w *Wishlist) append(item entities.WishlistItem) {
	w.index[item.ID] = len(w.items)
	w.items = append(w.items, item)
}

func (w *Wishlist) addEvent(event events.DomainEvent) {
	w.events = append(w.events, event)
}

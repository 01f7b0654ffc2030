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

// Cart is the aggregate root for a shopper's line items.
// Invariants: at most one line per product ID, and no line with quantity <= 0.
// Insertion order is the display order.
type Cart struct {
	id        string
	items     []entities.LineItem
	maxLines  int
	maxQty    int
	updatedAt time.Time
	version   int
	events    []events.DomainEvent
}

// NewCart creates an empty cart owned by the given scope
func NewCart(id string, cfg *config.DomainConfig) (*Cart, error) {
	if id == "" {
		return nil, errors.New("cart id required")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	return &Cart{
		id:        id,
		items:     []entities.LineItem{},
		maxLines:  cfg.MaxLinesPerCart,
		maxQty:    cfg.MaxLineQuantity,
		updatedAt: time.Now(),
		version:   1,
		events:    []events.DomainEvent{},
	}, nil
}

// ReconstructCart hydrates a cart from a persisted snapshot.
// Invalid lines are dropped and duplicate IDs are merged into the first
// occurrence, so a hand-edited or legacy snapshot still yields a valid cart.
func ReconstructCart(id string, snapshot []entities.LineItem, cfg *config.DomainConfig) (*Cart, error) {
	cart, err := NewCart(id, cfg)
	if err != nil {
		return nil, err
	}

	for _, item := range snapshot {
		if !item.IsValid() {
			continue
		}
		if idx := cart.indexOf(item.ID); idx >= 0 {
			cart.items[idx].Quantity += item.Quantity
			continue
		}
		cart.items = append(cart.items, item)
	}

	return cart, nil
}

// ID returns the cart's owning scope
func (c *Cart) ID() string {
	return c.id
}

// Version returns the number of applied mutations plus one
func (c *Cart) Version() int {
	return c.version
}

// UpdatedAt returns the time of the last mutation
func (c *Cart) UpdatedAt() time.Time {
	return c.updatedAt
}

// Items returns a copy of the line items in display order
func (c *Cart) Items() []entities.LineItem {
	items := make([]entities.LineItem, len(c.items))
	copy(items, c.items)
	return items
}

// Find returns the line for a product, if present
func (c *Cart) Find(id valueobjects.ProductID) (entities.LineItem, bool) {
	if idx := c.indexOf(id); idx >= 0 {
		return c.items[idx], true
	}
	return entities.LineItem{}, false
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// LineCount returns the number of distinct products
func (c *Cart) LineCount() int {
	return len(c.items)
}

// UnitCount returns the sum of all quantities
func (c *Cart) UnitCount() int {
	units := 0
	for _, item := range c.items {
		units += item.Quantity
	}
	return units
}

// Total is derived on every call and never cached
func (c *Cart) Total() float64 {
	total := 0.0
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// Add merges delta units of item into the cart. An existing line for the same
// product accumulates; otherwise a new line is appended with quantity = delta.
// It returns the resulting line.
func (c *Cart) Add(item entities.LineItem, delta int) (entities.LineItem, error) {
	if item.ID.IsZero() {
		return entities.LineItem{}, pkgerrors.NewValidationError("product ID is required")
	}
	if delta < 1 {
		return entities.LineItem{}, pkgerrors.NewValidationError("quantity must be at least 1")
	}

	if idx := c.indexOf(item.ID); idx >= 0 {
		newQty := c.items[idx].Quantity + delta
		if err := c.checkQuantity(newQty); err != nil {
			return entities.LineItem{}, err
		}
		c.items[idx].Quantity = newQty
		c.touch()
		c.addEvent(events.NewCartItemAdded(c.id, item.ID, delta, newQty, true, c.updatedAt))
		return c.items[idx], nil
	}

	if c.maxLines > 0 && len(c.items) >= c.maxLines {
		return entities.LineItem{}, pkgerrors.NewCartLimitError(fmt.Sprintf("cart cannot hold more than %d products", c.maxLines))
	}
	if err := c.checkQuantity(delta); err != nil {
		return entities.LineItem{}, err
	}

	item.Quantity = delta
	c.items = append(c.items, item)
	c.touch()
	c.addEvent(events.NewCartItemAdded(c.id, item.ID, delta, delta, false, c.updatedAt))
	return item, nil
}

// UpdateQuantity adds delta (positive or negative) to an existing line. A
// resulting quantity <= 0 removes the line. An absent product is a no-op and
// reports changed == false.
func (c *Cart) UpdateQuantity(id valueobjects.ProductID, delta int) (changed bool, err error) {
	idx := c.indexOf(id)
	if idx < 0 || delta == 0 {
		return false, nil
	}

	oldQty := c.items[idx].Quantity
	newQty := oldQty + delta
	if newQty <= 0 {
		c.removeAt(idx)
		return true, nil
	}
	if err := c.checkQuantity(newQty); err != nil {
		return false, err
	}

	c.items[idx].Quantity = newQty
	c.touch()
	c.addEvent(events.NewCartQuantityChanged(c.id, id, oldQty, newQty, c.updatedAt))
	return true, nil
}

// Remove deletes the line for a product. Absent products are a no-op.
func (c *Cart) Remove(id valueobjects.ProductID) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	c.removeAt(idx)
	return true
}

// Clear drops every line and returns how many there were
func (c *Cart) Clear() int {
	n := len(c.items)
	c.items = []entities.LineItem{}
	c.touch()
	c.addEvent(events.NewCartCleared(c.id, n, c.updatedAt))
	return n
}

// MarkDrained empties the cart after every delivered line reached the
// server, including lines added while the drain was in flight (those adds
// were mirrored). It returns how many dropped lines were not in delivered.
func (c *Cart) MarkDrained(delivered []entities.LineItem) int {
	units := 0
	for _, d := range delivered {
		units += d.Quantity
	}

	extra := 0
	for _, item := range c.items {
		if !containsLine(delivered, item.ID) {
			extra++
		}
	}

	c.items = []entities.LineItem{}
	c.touch()
	c.addEvent(events.NewCartDrained(c.id, len(delivered), units, c.updatedAt))
	return extra
}

func containsLine(lines []entities.LineItem, id valueobjects.ProductID) bool {
	for _, l := range lines {
		if l.ID.Equals(id) {
			return true
		}
	}
	return false
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *Cart) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (c *Cart) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

func (c *Cart) removeAt(idx int) {
	removed := c.items[idx]
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.touch()
	c.addEvent(events.NewCartItemRemoved(c.id, removed.ID, removed.Quantity, c.updatedAt))
}

func (c *Cart) checkQuantity(qty int) error {
	if c.maxQty > 0 && qty > c.maxQty {
		return pkgerrors.NewCartLimitError(fmt.Sprintf("quantity cannot exceed %d", c.maxQty))
	}
	return nil
}

func (c *Cart) indexOf(id valueobjects.ProductID) int {
	for i := range c.items {
		if c.items[i].ID.Equals(id) {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.updatedAt = time.Now()
	c.version++
}

func (c *Cart) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}

package entities

import (
	"strings"

	"cartsync/domain/core/valueobjects"
	pkgerrors "cartsync/pkg/errors"
)

// LineItem is one product entry in a cart, carrying a quantity.
// The JSON shape is the persisted snapshot format and must stay stable.
type LineItem struct {
	ID       valueobjects.ProductID `json:"id"`
	Name     string                 `json:"name"`
	Price    valueobjects.Price     `json:"price"`
	Quantity int                    `json:"quantity"`
	Vendor   string                 `json:"vendor"`
	Image    string                 `json:"image"`
}

// NewLineItem creates a line item with full validation
func NewLineItem(id, name string, price float64, quantity int, vendor, image string) (LineItem, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return LineItem{}, pkgerrors.NewValidationError(err.Error())
	}

	p, err := valueobjects.NewPrice(price)
	if err != nil {
		return LineItem{}, pkgerrors.NewValidationError(err.Error())
	}

	if quantity < 1 {
		return LineItem{}, pkgerrors.NewValidationError("quantity must be at least 1")
	}

	return LineItem{
		ID:       pid,
		Name:     strings.TrimSpace(name),
		Price:    p,
		Quantity: quantity,
		Vendor:   strings.TrimSpace(vendor),
		Image:    strings.TrimSpace(image),
	}, nil
}

// Subtotal returns price times quantity
func (li LineItem) Subtotal() float64 {
	return li.Price.Times(li.Quantity)
}

// IsValid reports whether the item may live in a cart. Snapshots that fail this
// check are dropped during hydration.
func (li LineItem) IsValid() bool {
	return !li.ID.IsZero() && li.Quantity >= 1 && li.Price >= 0
}

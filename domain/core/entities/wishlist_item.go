package entities

import (
	"strings"

	"cartsync/domain/core/valueobjects"
	pkgerrors "cartsync/pkg/errors"
)

// WishlistItem is a saved product. Membership is boolean, so there is no quantity.
type WishlistItem struct {
	ID       valueobjects.ProductID `json:"id"`
	Name     string                 `json:"name"`
	Price    valueobjects.Price     `json:"price"`
	Image    string                 `json:"image"`
	Material string                 `json:"material,omitempty"`
}

// NewWishlistItem creates a wishlist item with validation
func NewWishlistItem(id, name string, price float64, image, material string) (WishlistItem, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return WishlistItem{}, pkgerrors.NewValidationError(err.Error())
	}

	p, err := valueobjects.NewPrice(price)
	if err != nil {
		return WishlistItem{}, pkgerrors.NewValidationError(err.Error())
	}

	return WishlistItem{
		ID:       pid,
		Name:     strings.TrimSpace(name),
		Price:    p,
		Image:    strings.TrimSpace(image),
		Material: strings.TrimSpace(material),
	}, nil
}

// IsValid reports whether the item may live in a wishlist
func (wi WishlistItem) IsValid() bool {
	return !wi.ID.IsZero() && wi.Price >= 0
}

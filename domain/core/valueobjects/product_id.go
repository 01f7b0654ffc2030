package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
)

// ProductID is a value object identifying a product in a cart or wishlist.
// It is the merge key: two line items with equal ProductIDs are the same line.
type ProductID struct {
	value string
}

// NewProductID creates a ProductID from a catalogue identifier
func NewProductID(id string) (ProductID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ProductID{}, errors.New("product ID cannot be empty")
	}
	return ProductID{value: id}, nil
}

// MustProductID is NewProductID for literals known to be valid
func MustProductID(id string) ProductID {
	pid, err := NewProductID(id)
	if err != nil {
		panic(err)
	}
	return pid
}

// String returns the string representation of the ProductID
func (id ProductID) String() string {
	return id.value
}

// Equals checks if two ProductIDs are equal
func (id ProductID) Equals(other ProductID) bool {
	return id.value == other.value
}

// IsZero checks if the ProductID is the zero value
func (id ProductID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ProductID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ProductID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.New("ProductID must be a string")
	}
	id.value = strings.TrimSpace(raw)
	return nil
}

package valueobjects

import (
	"errors"
	"math"
)

// Price is a non-negative unit price. Amounts are plain decimals with no
// currency attached; formatting is left to the presentation layer.
type Price float64

// NewPrice validates a unit price
func NewPrice(amount float64) (Price, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, errors.New("price must be a finite number")
	}
	if amount < 0 {
		return 0, errors.New("price cannot be negative")
	}
	return Price(amount), nil
}

// Times returns the extended price for a quantity
func (p Price) Times(quantity int) float64 {
	return float64(p) * float64(quantity)
}

// Float64 returns the raw amount
func (p Price) Float64() float64 {
	return float64(p)
}

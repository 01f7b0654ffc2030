package validators

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"cartsync/domain/config"
	"cartsync/domain/core/entities"
	"cartsync/pkg/errors"
)

// ItemValidator validates cart and wishlist items against configurable rules
type ItemValidator struct {
	nameMaxLength   int
	vendorMaxLength int
	maxQuantity     int
	imagePattern    *regexp.Regexp
}

// NewItemValidator creates a new item validator from domain configuration
func NewItemValidator(cfg *config.DomainConfig) *ItemValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ItemValidator{
		nameMaxLength:   500,
		vendorMaxLength: 200,
		maxQuantity:     cfg.MaxLineQuantity,
		imagePattern:    regexp.MustCompile(`^(https?://|/)[^\s]*$`),
	}
}

// ValidateLineItem validates a line item about to be added with the given delta
func (v *ItemValidator) ValidateLineItem(item entities.LineItem, delta int) error {
	validationErrors := errors.NewValidationErrors()

	if item.ID.IsZero() {
		validationErrors.Add("id", "product ID is required")
	}
	if item.Price < 0 {
		validationErrors.Add("price", "price cannot be negative")
	}
	if delta < 1 {
		validationErrors.Add("quantity", "quantity must be at least 1")
	}
	if v.maxQuantity > 0 && delta > v.maxQuantity {
		validationErrors.Add("quantity", fmt.Sprintf("quantity cannot exceed %d", v.maxQuantity))
	}
	v.validateName(validationErrors, item.Name)
	if utf8.RuneCountInString(item.Vendor) > v.vendorMaxLength {
		validationErrors.Add("vendor", fmt.Sprintf("vendor exceeds maximum length of %d characters", v.vendorMaxLength))
	}
	v.validateImage(validationErrors, item.Image)

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// ValidateWishlistItem validates a wishlist item
func (v *ItemValidator) ValidateWishlistItem(item entities.WishlistItem) error {
	validationErrors := errors.NewValidationErrors()

	if item.ID.IsZero() {
		validationErrors.Add("id", "product ID is required")
	}
	if item.Price < 0 {
		validationErrors.Add("price", "price cannot be negative")
	}
	v.validateName(validationErrors, item.Name)
	v.validateImage(validationErrors, item.Image)

	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

func (v *ItemValidator) validateName(errs *errors.ValidationErrors, name string) {
	if utf8.RuneCountInString(name) > v.nameMaxLength {
		errs.Add("name", fmt.Sprintf("name exceeds maximum length of %d characters", v.nameMaxLength))
	}
}

// images are optional; when present they must be an absolute URL or a site path
func (v *ItemValidator) validateImage(errs *errors.ValidationErrors, image string) {
	if image != "" && !v.imagePattern.MatchString(image) {
		errs.Add("image", "image must be an http(s) URL or an absolute path")
	}
}

package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Storage keys, one snapshot per aggregate
	CartKey     string
	WishlistKey string

	// Line item constraints
	MaxLineQuantity  int // 0 means unbounded
	MaxLinesPerCart  int // 0 means unbounded
	MaxWishlistItems int // 0 means unbounded

	// Remote cart API budgets
	MirrorTimeout    time.Duration
	DrainCallTimeout time.Duration

	// Session lifecycle
	SessionIdleTTL time.Duration
	SnapshotTTL    time.Duration // 0 means snapshots never expire

	// Feature flags
	EnableMirroring bool
	EnableDrain     bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		CartKey:     "cart",
		WishlistKey: "wishlist",

		MaxLineQuantity:  0,
		MaxLinesPerCart:  0,
		MaxWishlistItems: 0,

		MirrorTimeout:    10 * time.Second,
		DrainCallTimeout: 10 * time.Second,

		SessionIdleTTL: 30 * time.Minute,
		SnapshotTTL:    0,

		EnableMirroring: true,
		EnableDrain:     true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxLineQuantity = 999
	config.MaxLinesPerCart = 200
	config.MaxWishlistItems = 500
	config.SnapshotTTL = 30 * 24 * time.Hour

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MirrorTimeout = 30 * time.Second
	config.DrainCallTimeout = 30 * time.Second

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.CartKey == "" || c.WishlistKey == "" {
		return fmt.Errorf("storage keys must not be empty")
	}
	if c.CartKey == c.WishlistKey {
		return fmt.Errorf("cart and wishlist must use distinct storage keys")
	}
	if c.MaxLineQuantity < 0 || c.MaxLinesPerCart < 0 || c.MaxWishlistItems < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.MirrorTimeout <= 0 || c.DrainCallTimeout <= 0 {
		return fmt.Errorf("remote call timeouts must be positive")
	}
	return nil
}

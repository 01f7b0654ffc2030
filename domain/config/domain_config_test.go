package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDomainConfig(t *testing.T) {
	prod := LoadDomainConfig("production")
	assert.Equal(t, 999, prod.MaxLineQuantity)
	assert.Equal(t, 200, prod.MaxLinesPerCart)
	assert.Equal(t, 30*24*time.Hour, prod.SnapshotTTL)

	dev := LoadDomainConfig("development")
	assert.Equal(t, 30*time.Second, dev.DrainCallTimeout)

	def := LoadDomainConfig("staging")
	assert.Equal(t, DefaultDomainConfig(), def)

	for _, cfg := range []*DomainConfig{prod, dev, def} {
		assert.NoError(t, cfg.Validate())
	}
}

func TestDomainConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DomainConfig)
	}{
		{"empty key", func(c *DomainConfig) { c.CartKey = "" }},
		{"shared key", func(c *DomainConfig) { c.WishlistKey = c.CartKey }},
		{"negative limit", func(c *DomainConfig) { c.MaxLinesPerCart = -1 }},
		{"zero timeout", func(c *DomainConfig) { c.DrainCallTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDomainConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 10*time.Second, cfg.DrainCallTimeout)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_backend: file
storage_dir: /var/lib/cartsync
drain_call_timeout: 3s
remote_cart_base_url: https://api.example.com
cors_allowed_origins:
  - https://shop.example.com
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DRAIN_CALL_TIMEOUT", "5")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageFile, cfg.StorageBackend)
	assert.Equal(t, "/var/lib/cartsync", cfg.StorageDir)
	assert.Equal(t, 5*time.Second, cfg.DrainCallTimeout, "environment wins over the file")
	assert.Equal(t, "https://api.example.com", cfg.RemoteCartBaseURL)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_backend: [unterminated"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.StorageBackend = "s3" }, true},
		{"redis without address", func(c *Config) { c.StorageBackend = StorageRedis }, true},
		{"zero drain timeout", func(c *Config) { c.DrainCallTimeout = 0 }, true},
		{"production memory backend", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s"
			c.RemoteCartBaseURL = "https://api"
		}, true},
		{"production complete", func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s"
			c.RemoteCartBaseURL = "https://api"
			c.StorageBackend = StorageDynamoDB
		}, false},
		{"production without secret", func(c *Config) {
			c.Environment = "production"
			c.RemoteCartBaseURL = "https://api"
			c.StorageBackend = StorageDynamoDB
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDomainConfig_Overrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Environment = "production"
	cfg.MaxLineQuantity = 50
	cfg.DrainCallTimeout = 2 * time.Second
	cfg.EnableMirroring = false

	d := cfg.DomainConfig()
	assert.Equal(t, 50, d.MaxLineQuantity)
	assert.Equal(t, 200, d.MaxLinesPerCart)
	assert.Equal(t, 2*time.Second, d.DrainCallTimeout)
	assert.False(t, d.EnableMirroring)
	assert.NoError(t, d.Validate())
}

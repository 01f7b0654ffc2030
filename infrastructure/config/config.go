package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "cartsync/domain/config"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageDynamoDB = "dynamodb"
	StorageRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Snapshot storage
	StorageBackend string        `yaml:"storage_backend"`
	StorageDir     string        `yaml:"storage_dir"`
	DynamoDBTable  string        `yaml:"dynamodb_table"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisPassword  string        `yaml:"redis_password"`
	RedisDB        int           `yaml:"redis_db"`
	RedisPrefix    string        `yaml:"redis_prefix"`
	SnapshotTTL    time.Duration `yaml:"snapshot_ttl"`

	// AWS configuration
	AWSRegion    string `yaml:"aws_region"`
	EventBusName string `yaml:"event_bus_name"`

	// Remote cart API
	RemoteCartBaseURL string        `yaml:"remote_cart_base_url"`
	RemoteCartTimeout time.Duration `yaml:"remote_cart_timeout"`
	MirrorTimeout     time.Duration `yaml:"mirror_timeout"`
	DrainCallTimeout  time.Duration `yaml:"drain_call_timeout"`

	// Sessions
	SessionIdleTTL       time.Duration `yaml:"session_idle_ttl"`
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`

	// Cart limits, 0 keeps the environment default
	MaxLineQuantity int `yaml:"max_line_quantity"`
	MaxLinesPerCart int `yaml:"max_lines_per_cart"`

	// Lambda configuration
	IsLambda bool `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret      string `yaml:"jwt_secret"`
	JWTIssuer      string `yaml:"jwt_issuer"`
	ValidateTokens bool   `yaml:"validate_tokens"`

	// Observability
	CloudWatchNamespace  string        `yaml:"cloudwatch_namespace"`
	MetricsFlushInterval time.Duration `yaml:"metrics_flush_interval"`

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Feature flags
	EnableMetrics   bool `yaml:"enable_metrics"`
	EnableTracing   bool `yaml:"enable_tracing"`
	EnableCORS      bool `yaml:"enable_cors"`
	EnableMirroring bool `yaml:"enable_mirroring"`
	EnableDrain     bool `yaml:"enable_drain"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `yaml:"-"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		ServerAddress:        ":8080",
		Environment:          "development",
		StorageBackend:       StorageMemory,
		StorageDir:           "./data",
		DynamoDBTable:        "cartsync",
		RedisPrefix:          "cartsync",
		AWSRegion:            "us-west-2",
		RemoteCartTimeout:    15 * time.Second,
		MirrorTimeout:        10 * time.Second,
		DrainCallTimeout:     10 * time.Second,
		SessionIdleTTL:       30 * time.Minute,
		SessionSweepInterval: time.Minute,
		LogLevel:             "info",
		JWTIssuer:            "",
		ValidateTokens:       true,
		MetricsFlushInterval: time.Minute,
		CORSAllowedOrigins:   []string{"*"},
		EnableMetrics:        true,
		EnableCORS:           true,
		EnableMirroring:      true,
		EnableDrain:          true,
	}
}

// LoadConfig builds configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadedFrom = []string{"defaults"}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	cfg.applyEnv()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", c.StorageBackend))
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", c.DynamoDBTable))
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPrefix = getEnv("REDIS_PREFIX", c.RedisPrefix)
	c.SnapshotTTL = getEnvDuration("SNAPSHOT_TTL", c.SnapshotTTL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.RemoteCartBaseURL = getEnv("REMOTE_CART_BASE_URL", c.RemoteCartBaseURL)
	c.RemoteCartTimeout = getEnvDuration("REMOTE_CART_TIMEOUT", c.RemoteCartTimeout)
	c.MirrorTimeout = getEnvDuration("MIRROR_TIMEOUT", c.MirrorTimeout)
	c.DrainCallTimeout = getEnvDuration("DRAIN_CALL_TIMEOUT", c.DrainCallTimeout)

	c.SessionIdleTTL = getEnvDuration("SESSION_IDLE_TTL", c.SessionIdleTTL)
	c.SessionSweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", c.SessionSweepInterval)

	c.MaxLineQuantity = getEnvInt("MAX_LINE_QUANTITY", c.MaxLineQuantity)
	c.MaxLinesPerCart = getEnvInt("MAX_LINES_PER_CART", c.MaxLinesPerCart)

	c.IsLambda = getEnvBool("IS_LAMBDA", c.IsLambda || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.ValidateTokens = getEnvBool("AUTH_VALIDATE_TOKENS", c.ValidateTokens)

	c.CloudWatchNamespace = getEnv("CLOUDWATCH_NAMESPACE", c.CloudWatchNamespace)
	c.MetricsFlushInterval = getEnvDuration("METRICS_FLUSH_INTERVAL", c.MetricsFlushInterval)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	c.EnableMirroring = getEnvBool("ENABLE_MIRRORING", c.EnableMirroring)
	c.EnableDrain = getEnvBool("ENABLE_DRAIN", c.EnableDrain)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory:
	case StorageFile:
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for the file backend")
		}
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.MirrorTimeout <= 0 || c.DrainCallTimeout <= 0 {
		return fmt.Errorf("MIRROR_TIMEOUT and DRAIN_CALL_TIMEOUT must be positive")
	}
	if c.ValidateTokens && c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.Environment == "production" {
		if c.RemoteCartBaseURL == "" {
			return fmt.Errorf("REMOTE_CART_BASE_URL is required in production")
		}
		if c.StorageBackend == StorageMemory {
			return fmt.Errorf("the memory storage backend is not allowed in production")
		}
	}

	return nil
}

// DomainConfig returns the environment's domain rules with overrides applied
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	d := domainconfig.LoadDomainConfig(c.Environment)
	d.MirrorTimeout = c.MirrorTimeout
	d.DrainCallTimeout = c.DrainCallTimeout
	d.SessionIdleTTL = c.SessionIdleTTL
	d.EnableMirroring = c.EnableMirroring
	d.EnableDrain = c.EnableDrain
	if c.SnapshotTTL > 0 {
		d.SnapshotTTL = c.SnapshotTTL
	}
	if c.MaxLineQuantity > 0 {
		d.MaxLineQuantity = c.MaxLineQuantity
	}
	if c.MaxLinesPerCart > 0 {
		d.MaxLinesPerCart = c.MaxLinesPerCart
	}
	return d
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or plain seconds ("10")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

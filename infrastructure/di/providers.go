package di

import (
	"context"
	"fmt"
	"net/http"

	"cartsync/application/ports"
	"cartsync/application/shopper"
	"cartsync/application/tasks"
	domainconfig "cartsync/domain/config"
	"cartsync/infrastructure/config"
	"cartsync/infrastructure/messaging"
	"cartsync/infrastructure/messaging/eventbridge"
	"cartsync/infrastructure/persistence"
	"cartsync/infrastructure/persistence/dynamodb"
	"cartsync/infrastructure/persistence/file"
	"cartsync/infrastructure/persistence/memory"
	"cartsync/infrastructure/persistence/redis"
	"cartsync/infrastructure/remote/cartapi"
	"cartsync/interfaces/http/rest"
	"cartsync/pkg/auth"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	serviceName          = "cartsync"
	developmentJWTSecret = "development-secret-change-in-production"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideDomainConfig derives the cart rules from the service configuration
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	d := cfg.DomainConfig()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}
	return d, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideKeyValueStore opens the configured snapshot backend
func ProvideKeyValueStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.KeyValueStore, error) {
	logger.Info("Opening snapshot store", zap.String("backend", cfg.StorageBackend))

	switch cfg.StorageBackend {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StorageFile:
		return file.NewStore(cfg.StorageDir)
	case config.StorageDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamodb.NewSnapshotStore(client, cfg.DynamoDBTable, cfg.SnapshotTTL, logger), nil
	case config.StorageRedis:
		rdb, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return redis.NewStore(rdb, cfg.RedisPrefix, cfg.SnapshotTTL), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and logs otherwise
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return messaging.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideCloudWatchMetrics creates the CloudWatch sink, or nil when no namespace is set
func ProvideCloudWatchMetrics(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *observability.CloudWatchMetrics {
	if cfg.CloudWatchNamespace == "" {
		return nil
	}
	namespace := fmt.Sprintf("%s/%s", cfg.CloudWatchNamespace, cfg.Environment)
	return observability.NewCloudWatchMetrics(namespace, awscloudwatch.NewFromConfig(awsCfg), logger)
}

// ProvideMetrics fans engine counters out to every configured sink
func ProvideMetrics(collector *observability.Collector, cloudWatch *observability.CloudWatchMetrics) ports.Metrics {
	sinks := observability.Fanout{collector}
	if cloudWatch != nil {
		sinks = append(sinks, cloudWatch)
	}
	return sinks
}

// ProvideTracer returns an X-Ray tracer, or nil when tracing is off
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer(serviceName)
}

// ProvideHTTPClient creates the outbound client for the remote cart API
func ProvideHTTPClient(cfg *config.Config, tracer *observability.Tracer) *http.Client {
	return tracer.Client(&http.Client{Timeout: cfg.RemoteCartTimeout})
}

// ProvideRemoteCart creates the remote cart API client. Without a base URL
// every call fails as unavailable, so drains leave guest carts in place.
func ProvideRemoteCart(cfg *config.Config, httpClient *http.Client, logger *zap.Logger) (ports.RemoteCart, error) {
	if cfg.RemoteCartBaseURL == "" {
		logger.Warn("REMOTE_CART_BASE_URL is not set; remote cart calls will fail")
		return unconfiguredRemote{}, nil
	}
	clientCfg := cartapi.DefaultConfig(cfg.RemoteCartBaseURL)
	clientCfg.Timeout = cfg.RemoteCartTimeout
	return cartapi.NewClient(clientCfg, httpClient, logger)
}

type unconfiguredRemote struct{}

func (unconfiguredRemote) AddLineItem(context.Context, string, string, int) error {
	return pkgerrors.NewUnavailableError("remote cart API")
}

// ProvideRunner creates the detached task runner shared by all sessions
func ProvideRunner(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *tasks.Runner {
	return tasks.NewRunner(domainCfg.MirrorTimeout, logger)
}

// ProvideDrainLock returns a lease shared by every process using the same
// backend. The memory and file backends are single process and get none.
func ProvideDrainLock(cfg *config.Config, awsCfg aws.Config, store ports.KeyValueStore, logger *zap.Logger) ports.DrainLock {
	switch cfg.StorageBackend {
	case config.StorageDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, "", logger)
	case config.StorageRedis:
		if rs, ok := store.(*redis.Store); ok {
			return rs.DrainLock()
		}
	}
	return nil
}

// ProvideRegistry creates the shopper session registry
func ProvideRegistry(
	store ports.KeyValueStore,
	remote ports.RemoteCart,
	drainLock ports.DrainLock,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	runner *tasks.Runner,
	tracer *observability.Tracer,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *shopper.Registry {
	// ProvideDrainLock only returns a lock for backends shared across processes
	return shopper.NewRegistry(shopper.Deps{
		Store:     store,
		Remote:    remote,
		Shared:    drainLock != nil,
		DrainLock: drainLock,
		Publisher: publisher,
		Metrics:   metrics,
		Runner:    runner,
		Tracer:    tracer,
		Config:    domainCfg,
		Logger:    logger,
	})
}

// ProvideJWTValidator returns the login token validator, or nil when tokens are opaque
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	if !cfg.ValidateTokens {
		return nil, nil
	}
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		logger.Warn("JWT_SECRET is not set; using the development secret")
		secret = developmentJWTSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	registry *shopper.Registry,
	validator *auth.JWTValidator,
	collector *observability.Collector,
	tracer *observability.Tracer,
	store ports.KeyValueStore,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(registry, validator, collector, tracer, rest.RouterConfig{
		EnableCORS:     cfg.EnableCORS,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
		Debug:          cfg.IsDevelopment(),
	}, logger, func(ctx context.Context) error {
		return persistence.Probe(ctx, store)
	})
}

package di

import (
	"context"
	"testing"
	"time"

	"cartsync/application/ports"
	"cartsync/infrastructure/config"
	"cartsync/infrastructure/messaging"
	"cartsync/infrastructure/messaging/eventbridge"
	"cartsync/infrastructure/persistence/dynamodb"
	"cartsync/infrastructure/persistence/file"
	"cartsync/infrastructure/persistence/memory"
	"cartsync/infrastructure/remote/cartapi"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProvideLogger(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = "debug"
	logger, err := ProvideLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "chatty"
	_, err = ProvideLogger(cfg)
	assert.Error(t, err)
}

func TestProvideKeyValueStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	store, err := ProvideKeyValueStore(ctx, cfg, aws.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)

	cfg.StorageBackend = config.StorageFile
	cfg.StorageDir = t.TempDir()
	store, err = ProvideKeyValueStore(ctx, cfg, aws.Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)

	cfg.StorageBackend = "tape"
	_, err = ProvideKeyValueStore(ctx, cfg, aws.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideDrainLock(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Nil(t, ProvideDrainLock(cfg, aws.Config{}, memory.NewStore(), zap.NewNop()))

	cfg.StorageBackend = config.StorageDynamoDB
	assert.IsType(t, &dynamodb.DistributedLock{}, ProvideDrainLock(cfg, aws.Config{Region: "us-west-2"}, memory.NewStore(), zap.NewNop()))
}

func TestProvideEventPublisher(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.IsType(t, &messaging.LogPublisher{}, ProvideEventPublisher(cfg, aws.Config{}, zap.NewNop()))

	cfg.EventBusName = "cart-events"
	assert.IsType(t, &eventbridge.Publisher{}, ProvideEventPublisher(cfg, aws.Config{}, zap.NewNop()))
}

func TestProvideMetrics(t *testing.T) {
	collector := ProvideCollector()
	metrics := ProvideMetrics(collector, nil)
	assert.Len(t, metrics.(observability.Fanout), 1)

	cfg := config.DefaultConfig()
	assert.Nil(t, ProvideCloudWatchMetrics(cfg, aws.Config{}, zap.NewNop()))
	cfg.CloudWatchNamespace = "CartSync"
	cw := ProvideCloudWatchMetrics(cfg, aws.Config{}, zap.NewNop())
	require.NotNil(t, cw)
	assert.Len(t, ProvideMetrics(collector, cw).(observability.Fanout), 2)
}

func TestProvideRemoteCart(t *testing.T) {
	cfg := config.DefaultConfig()
	remote, err := ProvideRemoteCart(cfg, ProvideHTTPClient(cfg, nil), zap.NewNop())
	require.NoError(t, err)
	err = remote.AddLineItem(context.Background(), "tok", "A", 1)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))

	cfg.RemoteCartBaseURL = "https://carts.example.com"
	remote, err = ProvideRemoteCart(cfg, ProvideHTTPClient(cfg, nil), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &cartapi.Client{}, remote)
}

func TestProvideJWTValidator(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ValidateTokens = false
	validator, err := ProvideJWTValidator(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, validator)

	cfg.ValidateTokens = true
	validator, err = ProvideJWTValidator(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, validator)

	cfg.Environment = "production"
	_, err = ProvideJWTValidator(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeContainer_Memory(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg := config.DefaultConfig()
	cfg.LogLevel = "error"
	container, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, container.Router)
	assert.NotNil(t, container.Router.Handler())
	assert.Nil(t, container.CloudWatch)
	assert.Nil(t, container.DrainLock)
	assert.NoError(t, container.Close(context.Background()))
}

type noopLock struct{}

func (noopLock) Acquire(ctx context.Context, scope string, ttl time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

func TestProvideRegistry_ReloadsWhenStoreIsShared(t *testing.T) {
	ctx := context.Background()
	key := ports.StorageKey{Scope: "s1", Name: "cart"}
	snapshot := []byte(`[{"id":"p1","name":"Chair","price":10,"quantity":2}]`)

	tests := []struct {
		name string
		lock ports.DrainLock
		want int
	}{
		{"process local", nil, 0},
		{"shared backend", noopLock{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			registry := ProvideRegistry(store, nil, tt.lock, nil, nil, nil, nil, nil, zap.NewNop())
			t.Cleanup(func() { _ = registry.Close(ctx) })

			_, err := registry.Get(ctx, "s1")
			require.NoError(t, err)
			require.NoError(t, store.Put(ctx, key, snapshot))

			s, err := registry.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Len(t, s.Cart.Items(), tt.want)
		})
	}
}

package di

import (
	"context"
	"errors"
	"io"

	"cartsync/application/ports"
	"cartsync/application/shopper"
	"cartsync/application/tasks"
	domainconfig "cartsync/domain/config"
	"cartsync/infrastructure/config"
	"cartsync/interfaces/http/rest"
	"cartsync/pkg/auth"
	"cartsync/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	Store        ports.KeyValueStore
	Remote       ports.RemoteCart
	DrainLock    ports.DrainLock
	Publisher    ports.EventPublisher
	Collector    *observability.Collector
	CloudWatch   *observability.CloudWatchMetrics
	Metrics      ports.Metrics
	Tracer       *observability.Tracer
	Runner       *tasks.Runner
	Registry     *shopper.Registry
	Validator    *auth.JWTValidator
	Router       *rest.Router
}

// StartBackground runs the session janitor and the CloudWatch flusher until ctx is done
func (c *Container) StartBackground(ctx context.Context) {
	go c.Registry.RunJanitor(ctx, c.Config.SessionSweepInterval)
	if c.CloudWatch != nil {
		go c.CloudWatch.Run(ctx, c.Config.MetricsFlushInterval)
	}
}

// Close stops every session, waits for detached tasks and releases the store
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if err := c.Registry.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if c.CloudWatch != nil {
		if err := c.CloudWatch.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if closer, ok := c.Store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

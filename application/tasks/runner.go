// Package tasks runs fire-and-forget work that must outlive the request that started it.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of detached work
type Task func(ctx context.Context) error

// Runner starts detached tasks. Tasks keep the values of the context they
// were spawned from but not its cancellation, and each one is bounded by
// the runner's timeout. Failures are logged, never returned.
type Runner struct {
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a runner whose tasks run for at most timeout
func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		timeout: timeout,
		logger:  logger,
	}
}

// Go starts task in the background. It returns false when the runner is closed.
func (r *Runner) Go(ctx context.Context, name string, task Task) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("Task rejected, runner closed", zap.String("task", name))
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)

	go func() {
		defer r.wg.Done()

		taskCtx := detached
		if r.timeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(detached, r.timeout)
			defer cancel()
		}

		if err := r.run(taskCtx, task); err != nil {
			r.logger.Warn("Detached task failed",
				zap.String("task", name),
				zap.Error(err),
			)
		}
	}()
	return true
}

func (r *Runner) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task(ctx)
}

// Wait blocks until every started task has returned
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops accepting tasks and waits for running ones, up to ctx
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for detached tasks: %w", ctx.Err())
	}
}

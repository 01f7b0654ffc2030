package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type ctxKey struct{}

func TestRunner_SurvivesCallerCancellation(t *testing.T) {
	runner := NewRunner(time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
	started := make(chan struct{})
	var sawValue atomic.Value
	var finished atomic.Bool

	ok := runner.Go(ctx, "mirror", func(ctx context.Context) error {
		close(started)
		time.Sleep(20 * time.Millisecond)
		sawValue.Store(ctx.Value(ctxKey{}))
		finished.Store(ctx.Err() == nil)
		return nil
	})
	require.True(t, ok)

	<-started
	cancel()
	runner.Wait()

	assert.Equal(t, "v", sawValue.Load())
	assert.True(t, finished.Load(), "task context must not inherit the caller's cancellation")
}

func TestRunner_AppliesTimeout(t *testing.T) {
	runner := NewRunner(10*time.Millisecond, zap.NewNop())

	var err atomic.Value
	runner.Go(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		err.Store(ctx.Err())
		return ctx.Err()
	})
	runner.Wait()

	assert.ErrorIs(t, err.Load().(error), context.DeadlineExceeded)
}

func TestRunner_LogsFailuresAndPanics(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	runner := NewRunner(time.Second, zap.New(core))

	runner.Go(context.Background(), "fails", func(ctx context.Context) error {
		return errors.New("remote rejected")
	})
	runner.Go(context.Background(), "panics", func(ctx context.Context) error {
		panic("bad")
	})
	runner.Wait()

	assert.Equal(t, 2, logs.FilterMessage("Detached task failed").Len())
}

func TestRunner_CloseRejectsNewTasks(t *testing.T) {
	runner := NewRunner(time.Second, zap.NewNop())

	var ran atomic.Int32
	runner.Go(context.Background(), "first", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	require.NoError(t, runner.Close(context.Background()))
	assert.Equal(t, int32(1), ran.Load())

	ok := runner.Go(context.Background(), "late", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	assert.False(t, ok)
	assert.Equal(t, int32(1), ran.Load())
}

func TestRunner_CloseHonoursDeadline(t *testing.T) {
	runner := NewRunner(0, zap.NewNop())
	release := make(chan struct{})
	defer close(release)

	runner.Go(context.Background(), "stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, runner.Close(ctx))
}

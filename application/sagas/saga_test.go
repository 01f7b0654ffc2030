package sagas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recordingStep(name string, log *[]string, err error) SagaStep {
	return SagaStep{
		Name: name,
		Execute: func(ctx context.Context) error {
			*log = append(*log, name)
			return err
		},
	}
}

func TestSaga_RunsStepsInOrder(t *testing.T) {
	var log []string
	saga := NewSaga("drain", zap.NewNop()).
		AddStep(recordingStep("a", &log, nil)).
		AddStep(recordingStep("b", &log, nil)).
		AddStep(recordingStep("c", &log, nil))

	completed, err := saga.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, completed)
	assert.Equal(t, []string{"a", "b", "c"}, log)
	assert.Equal(t, SagaStateCompleted, saga.GetState())
	assert.NotEmpty(t, saga.GetID())
}

func TestSaga_StopsAtFirstFailure(t *testing.T) {
	var log []string
	boom := errors.New("remote down")
	saga := NewSaga("drain", zap.NewNop()).
		AddStep(recordingStep("a", &log, nil)).
		AddStep(recordingStep("b", &log, boom)).
		AddStep(recordingStep("c", &log, nil))

	completed, err := saga.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, completed)
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, SagaStateFailed, saga.GetState())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "b", stepErr.Step)
	assert.Equal(t, 1, stepErr.Index)
}

func TestSaga_StepTimeout(t *testing.T) {
	saga := NewSaga("drain", zap.NewNop()).AddStep(SagaStep{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Execute: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	completed, err := saga.Execute(context.Background())
	assert.Equal(t, 0, completed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSaga_FailedStepIsNotRetried(t *testing.T) {
	attempts := 0
	saga := NewSaga("drain", zap.NewNop()).AddStep(SagaStep{
		Name: "flaky",
		Execute: func(ctx context.Context) error {
			attempts++
			return errors.New("flaky")
		},
	})

	completed, err := saga.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, completed)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, SagaStateFailed, saga.GetState())
}

func TestSaga_CancelledContextStopsBeforeNextStep(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	saga := NewSaga("drain", zap.NewNop()).
		AddStep(SagaStep{Name: "a", Execute: func(ctx context.Context) error {
			log = append(log, "a")
			cancel()
			return nil
		}}).
		AddStep(recordingStep("b", &log, nil))

	completed, err := saga.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, completed)
	assert.Equal(t, []string{"a"}, log)
}

func TestSaga_EmptyCompletes(t *testing.T) {
	completed, err := NewSaga("empty", nil).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, completed)
}

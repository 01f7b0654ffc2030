// Package sagas runs ordered multi-step workflows against external systems.
package sagas

import (
	"context"
	"fmt"
	"time"

	"cartsync/pkg/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SagaStep represents a single step in a saga
type SagaStep struct {
	Name    string
	Execute func(ctx context.Context) error
	// Timeout bounds the step; zero means the saga context alone applies
	Timeout time.Duration
}

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending   SagaState = "PENDING"
	SagaStateRunning   SagaState = "RUNNING"
	SagaStateCompleted SagaState = "COMPLETED"
	SagaStateFailed    SagaState = "FAILED"
)

// StepError reports which step stopped the saga
type StepError struct {
	Saga  string
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s failed at step %d (%s): %v", e.Saga, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Saga executes steps strictly in order, one at a time. The first failing
// step stops the run and nothing is undone or retried: the completed steps
// form a prefix the caller can report.
type Saga struct {
	id        string
	name      string
	steps     []SagaStep
	state     SagaState
	completed int
	logger    *zap.Logger
	tracer    *observability.Tracer
}

// NewSaga creates a new saga instance
func NewSaga(name string, logger *zap.Logger) *Saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saga{
		id:     uuid.New().String(),
		name:   name,
		steps:  make([]SagaStep, 0),
		state:  SagaStatePending,
		logger: logger,
	}
}

// WithTracer runs every step inside a trace subsegment
func (s *Saga) WithTracer(tracer *observability.Tracer) *Saga {
	s.tracer = tracer
	return s
}

// AddStep adds a step to the saga
func (s *Saga) AddStep(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Execute runs the saga and returns the number of steps that completed
func (s *Saga) Execute(ctx context.Context) (int, error) {
	s.state = SagaStateRunning
	s.completed = 0
	s.logger.Info("Starting saga execution",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("total_steps", len(s.steps)),
	)

	for i, step := range s.steps {
		s.logger.Debug("Executing saga step",
			zap.String("saga_id", s.id),
			zap.String("step_name", step.Name),
			zap.Int("step_number", i+1),
		)

		if err := s.executeStep(ctx, step); err != nil {
			s.state = SagaStateFailed
			s.logger.Warn("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("step_name", step.Name),
				zap.Int("completed_steps", s.completed),
				zap.Error(err),
			)
			return s.completed, &StepError{Saga: s.name, Step: step.Name, Index: i, Err: err}
		}

		s.completed = i + 1
	}

	s.state = SagaStateCompleted
	s.logger.Info("Saga completed successfully",
		zap.String("saga_id", s.id),
		zap.String("saga_name", s.name),
		zap.Int("completed_steps", s.completed),
	)
	return s.completed, nil
}

func (s *Saga) executeStep(ctx context.Context, step SagaStep) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.tracer.TraceFunction(ctx, step.Name, func(ctx context.Context) error {
		if step.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, step.Timeout)
			defer cancel()
		}
		return step.Execute(ctx)
	})
}

// GetState returns the current state of the saga
func (s *Saga) GetState() SagaState {
	return s.state
}

// GetID returns the saga ID
func (s *Saga) GetID() string {
	return s.id
}

// Completed returns how many steps finished in the last run
func (s *Saga) Completed() int {
	return s.completed
}

// Package coordinator drains a guest cart into the server cart when the
// shopper signs in.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cartsync/application/ports"
	"cartsync/application/sagas"
	"cartsync/application/session"
	"cartsync/domain/core/entities"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/observability"

	"go.uber.org/zap"
)

// State of the coordinator
type State string

const (
	StateIdle     State = "IDLE"
	StateDraining State = "DRAINING"
	StateDone     State = "DONE"
)

// DrainTarget is the local cart a drain reads from and clears
type DrainTarget interface {
	DrainCandidates() []entities.LineItem
	CompleteDrain(ctx context.Context, delivered []entities.LineItem)
}

// TransitionSource publishes identity transitions
type TransitionSource interface {
	Subscribe() *session.Subscription
	Unsubscribe(sub *session.Subscription)
}

// DrainResult describes the last drain attempt. Synced is the length of the
// prefix of Lines the server accepted.
type DrainResult struct {
	SagaID     string              `json:"saga_id"`
	Lines      []entities.LineItem `json:"-"`
	Attempted  int                 `json:"attempted"`
	Synced     int                 `json:"synced"`
	Err        error               `json:"-"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Succeeded reports whether every line was delivered
func (r DrainResult) Succeeded() bool {
	return r.Err == nil && r.Synced == r.Attempted
}

// Config holds coordinator settings
type Config struct {
	// CallTimeout bounds each remote call of a drain
	CallTimeout time.Duration
	Enabled     bool

	// Lock, when set, serializes drains of Scope across processes
	Lock  ports.DrainLock
	Scope string
}

// SyncCoordinator is the Idle/Draining/Done state machine. It subscribes to
// the identity signal at construction and handles transitions one at a time
// in arrival order, so a login that arrives mid-drain waits for the running
// drain to finish.
type SyncCoordinator struct {
	mu    sync.RWMutex
	state State
	last  *DrainResult

	// handled counts transitions taken off sub; progress is closed and
	// replaced each time it moves
	handled  uint64
	progress chan struct{}

	signal  TransitionSource
	sub     *session.Subscription
	cart    DrainTarget
	remote  ports.RemoteCart
	metrics ports.Metrics
	tracer  *observability.Tracer
	config  Config
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	stopped   chan struct{}
}

// NewSyncCoordinator creates a coordinator in the Idle state and subscribes it to signal
func NewSyncCoordinator(
	signal TransitionSource,
	cart DrainTarget,
	remote ports.RemoteCart,
	metrics ports.Metrics,
	tracer *observability.Tracer,
	cfg Config,
	logger *zap.Logger,
) *SyncCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NopRecorder{}
	}
	return &SyncCoordinator{
		state:    StateIdle,
		signal:   signal,
		sub:      signal.Subscribe(),
		cart:     cart,
		remote:   remote,
		metrics:  metrics,
		tracer:   tracer,
		config:   cfg,
		logger:   logger,
		progress: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start processes transitions on a background goroutine until Stop
func (c *SyncCoordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)
		go func() {
			defer close(c.stopped)
			c.Run(ctx)
		}()
	})
}

// Run processes transitions until ctx is done or the subscription closes
func (c *SyncCoordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-c.sub.C():
			if !ok {
				return
			}
			c.HandleTransition(ctx, t)
			c.markHandled()
		}
	}
}

// WaitIdle blocks until every transition raised so far has been handled,
// including any drain it started. It returns early when ctx is done or the
// coordinator stops.
func (c *SyncCoordinator) WaitIdle(ctx context.Context) error {
	for {
		raised := c.sub.Pushed()

		c.mu.RLock()
		idle := c.handled >= raised
		progress := c.progress
		c.mu.RUnlock()
		if idle {
			return nil
		}

		select {
		case <-progress:
		case <-c.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *SyncCoordinator) markHandled() {
	c.mu.Lock()
	c.handled++
	close(c.progress)
	c.progress = make(chan struct{})
	c.mu.Unlock()
}

// Stop unsubscribes and waits for a running drain to return
func (c *SyncCoordinator) Stop() {
	c.stopOnce.Do(func() {
		c.signal.Unsubscribe(c.sub)
		if c.cancel != nil {
			c.cancel()
			<-c.stopped
		}
	})
}

// State returns the current state
func (c *SyncCoordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastDrain returns the most recent drain attempt, if any
func (c *SyncCoordinator) LastDrain() (DrainResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return DrainResult{}, false
	}
	return *c.last, true
}

// HandleTransition reacts to one identity transition. Only a guest to
// authenticated edge with a non-empty cart starts a drain; it returns
// whether a drain ran.
func (c *SyncCoordinator) HandleTransition(ctx context.Context, t session.Transition) bool {
	if !t.IsLogin() {
		c.logger.Debug("Ignoring identity transition",
			zap.String("from", t.From.String()),
			zap.String("to", t.To.String()),
		)
		return false
	}
	if !c.config.Enabled || c.remote == nil {
		return false
	}

	lines := c.cart.DrainCandidates()
	if len(lines) == 0 {
		c.metrics.RecordDrain(observability.DrainSkipped, 0)
		c.logger.Debug("Login with empty cart, nothing to drain")
		return false
	}

	release, ok := c.acquire(ctx, len(lines))
	if !ok {
		return false
	}

	c.setState(StateDraining)
	result := c.drain(ctx, t.To.Credential(), lines)
	release()

	c.mu.Lock()
	c.last = &result
	if result.Succeeded() {
		c.state = StateDone
	} else {
		c.state = StateIdle
	}
	c.mu.Unlock()
	return true
}

func (c *SyncCoordinator) drain(ctx context.Context, credential string, lines []entities.LineItem) DrainResult {
	ctx, seg := c.tracer.StartSegment(ctx, "drain")

	saga := sagas.NewSaga("cart-drain", c.logger).WithTracer(c.tracer)
	for _, line := range lines {
		productID, quantity := line.ID.String(), line.Quantity
		saga.AddStep(sagas.SagaStep{
			Name:    "add " + productID,
			Timeout: c.config.CallTimeout,
			Execute: func(ctx context.Context) error {
				return c.remote.AddLineItem(ctx, credential, productID, quantity)
			},
		})
	}

	result := DrainResult{
		SagaID:    saga.GetID(),
		Lines:     lines,
		Attempted: len(lines),
		StartedAt: time.Now(),
	}

	synced, err := saga.Execute(ctx)
	result.Synced = synced
	result.FinishedAt = time.Now()

	if err != nil {
		result.Err = pkgerrors.NewDrainIncompleteError(synced, len(lines), err)
		c.tracer.EndSegment(seg, result.Err)
		c.metrics.RecordDrain(observability.DrainFailed, synced)
		c.logger.Warn("Cart drain failed, guest cart kept for next login",
			zap.String("sagaID", result.SagaID),
			zap.Int("synced", synced),
			zap.Int("total", len(lines)),
			zap.Error(err),
		)
		return result
	}

	c.cart.CompleteDrain(ctx, lines)
	c.tracer.EndSegment(seg, nil)
	c.metrics.RecordDrain(observability.DrainSucceeded, len(lines))
	c.logger.Info("Guest cart drained to server cart",
		zap.String("sagaID", result.SagaID),
		zap.Int("lines", len(lines)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result
}

// acquire takes the cross-process drain lease for this scope. The lease
// outlives the worst case drain by one call timeout.
func (c *SyncCoordinator) acquire(ctx context.Context, lines int) (func(), bool) {
	if c.config.Lock == nil {
		return func() {}, true
	}

	ttl := c.config.CallTimeout * time.Duration(lines+1)
	if ttl <= 0 {
		ttl = time.Minute
	}
	release, err := c.config.Lock.Acquire(ctx, c.config.Scope, ttl)
	if err != nil {
		c.metrics.RecordDrain(observability.DrainSkipped, 0)
		if errors.Is(err, ports.ErrLockHeld) {
			c.logger.Info("Drain already running elsewhere for this session",
				zap.String("scope", c.config.Scope))
		} else {
			c.logger.Warn("Could not acquire drain lock, skipping drain",
				zap.String("scope", c.config.Scope), zap.Error(err))
		}
		return nil, false
	}

	return func() {
		// ctx may already be cancelled by shutdown
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			c.logger.Warn("Failed to release drain lock",
				zap.String("scope", c.config.Scope), zap.Error(err))
		}
	}, true
}

func (c *SyncCoordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// String implements fmt.Stringer for logs
func (r DrainResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("drain %s: %d/%d synced: %v", r.SagaID, r.Synced, r.Attempted, r.Err)
	}
	return fmt.Sprintf("drain %s: %d/%d synced", r.SagaID, r.Synced, r.Attempted)
}

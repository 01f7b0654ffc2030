// Package shopper keeps one cart engine per shopper session.
package shopper

import (
	"context"
	"strings"
	"sync"
	"time"

	"cartsync/application/coordinator"
	"cartsync/application/ports"
	"cartsync/application/services"
	"cartsync/application/session"
	"cartsync/application/tasks"
	"cartsync/domain/config"
	"cartsync/domain/core/entities"
	"cartsync/infrastructure/persistence"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/observability"

	"go.uber.org/zap"
)

const maxSessionIDLength = 128

// Session bundles everything one shopper's cart engine needs
type Session struct {
	ID          string
	Cart        *services.CartService
	Wishlist    *services.WishlistService
	Signal      *session.Signal
	Coordinator *coordinator.SyncCoordinator

	identity ports.SnapshotStore[identityRecord]
	logger   *zap.Logger

	mu       sync.Mutex
	lastSeen time.Time
	// unsaved is set while the stored identity lags the signal
	unsaved bool
}

// identityRecord is the persisted sign-in state of a session
type identityRecord struct {
	Credential string `json:"credential"`
}

const identityKey = "identity"

// SignIn authenticates the session and stores the credential next to the
// cart snapshot, so another process or a rehydrated session sees it.
func (s *Session) SignIn(ctx context.Context, credential string) error {
	if err := s.Signal.Authenticate(credential); err != nil {
		return err
	}
	record := identityRecord{Credential: s.Signal.Current().Credential()}
	s.recordIdentityWrite(s.identity.Save(ctx, identityKey, []identityRecord{record}))
	return nil
}

// SignOut returns the session to guest and forgets the stored credential
func (s *Session) SignOut(ctx context.Context) {
	s.Signal.SignOut()
	s.recordIdentityWrite(s.identity.Clear(ctx, identityKey))
}

func (s *Session) recordIdentityWrite(err error) {
	s.mu.Lock()
	s.unsaved = err != nil
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("Failed to persist sign-in state, keeping in-memory state", zap.Error(err))
	}
}

// refresh reloads cart, wishlist and identity written by other processes
func (s *Session) refresh(ctx context.Context) {
	s.Cart.Refresh(ctx)
	s.Wishlist.Refresh(ctx)

	s.mu.Lock()
	unsaved := s.unsaved
	s.mu.Unlock()
	if unsaved {
		return
	}
	state, err := loadIdentity(ctx, s.identity)
	if err != nil {
		s.logger.Warn("Failed to refresh sign-in state", zap.Error(err))
		return
	}
	s.Signal.Restore(state)
}

func loadIdentity(ctx context.Context, store ports.SnapshotStore[identityRecord]) (session.State, error) {
	records, err := store.Read(ctx, identityKey)
	if err != nil {
		return session.Guest(), err
	}
	if len(records) == 0 || strings.TrimSpace(records[0].Credential) == "" {
		return session.Guest(), nil
	}
	return session.Authenticated(records[0].Credential), nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Deps are the shared collaborators every session is built from
type Deps struct {
	Store  ports.KeyValueStore
	Remote ports.RemoteCart
	// Shared means other processes write to Store too; every Get then
	// reloads the session from it
	Shared bool
	// DrainLock is optional; set it when several processes share Store
	DrainLock ports.DrainLock
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Runner    *tasks.Runner
	Tracer    *observability.Tracer
	Config    *config.DomainConfig
	Logger    *zap.Logger
}

// Registry lazily creates sessions and evicts idle ones. Eviction only drops
// in-memory state; snapshots stay in the store and are hydrated again on the
// next request for that session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
	ctx      context.Context
	cancel   context.CancelFunc
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(deps Deps) *Registry {
	if deps.Config == nil {
		deps.Config = config.DefaultDomainConfig()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Runner == nil {
		deps.Runner = tasks.NewRunner(deps.Config.MirrorTimeout, deps.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
		logger:   deps.Logger,
	}
}

// Get returns the session for id, creating and hydrating it on first use.
// Hydration runs outside the registry lock; when two callers race to open
// the same session the first insert wins and the other copy is stopped.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxSessionIDLength {
		return nil, pkgerrors.NewValidationError("invalid session id")
	}

	existing, ok, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if ok {
		if r.deps.Shared {
			existing.refresh(ctx)
		}
		return existing, nil
	}

	built, err := r.build(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if err := r.ctx.Err(); err != nil {
		r.mu.Unlock()
		built.Coordinator.Stop()
		return nil, pkgerrors.NewUnavailableError("session registry")
	}
	if s, ok := r.sessions[id]; ok {
		s.touch(r.now())
		r.mu.Unlock()
		built.Coordinator.Stop()
		return s, nil
	}
	built.touch(r.now())
	r.sessions[id] = built
	count := len(r.sessions)
	r.mu.Unlock()

	built.Coordinator.Start(r.ctx)
	r.logger.Debug("Session opened", zap.String("sessionID", id), zap.Int("sessions", count))
	return built, nil
}

func (r *Registry) lookup(id string) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ctx.Err(); err != nil {
		return nil, false, pkgerrors.NewUnavailableError("session registry")
	}
	s, ok := r.sessions[id]
	if ok {
		s.touch(r.now())
	}
	return s, ok, nil
}

func (r *Registry) build(ctx context.Context, id string) (*Session, error) {
	d := r.deps
	logger := d.Logger.With(zap.String("sessionID", id))

	identity := persistence.NewSnapshotStore[identityRecord](d.Store, id, logger)
	signal := session.NewSignal()
	if state, err := loadIdentity(ctx, identity); err != nil {
		logger.Warn("Failed to read sign-in state, starting as guest", zap.Error(err))
	} else {
		signal.Restore(state)
	}

	cart, err := services.NewCartService(ctx, id, services.CartDeps{
		Store:     persistence.NewSnapshotStore[entities.LineItem](d.Store, id, logger),
		Identity:  signal,
		Remote:    d.Remote,
		Runner:    d.Runner,
		Publisher: d.Publisher,
		Metrics:   d.Metrics,
		Config:    d.Config,
		Logger:    d.Logger,
	})
	if err != nil {
		return nil, err
	}

	wishlist, err := services.NewWishlistService(ctx, id, services.WishlistDeps{
		Store:     persistence.NewSnapshotStore[entities.WishlistItem](d.Store, id, logger),
		Runner:    d.Runner,
		Publisher: d.Publisher,
		Metrics:   d.Metrics,
		Config:    d.Config,
		Logger:    d.Logger,
	})
	if err != nil {
		return nil, err
	}

	coord := coordinator.NewSyncCoordinator(signal, cart, d.Remote, d.Metrics, d.Tracer,
		coordinator.Config{
			CallTimeout: d.Config.DrainCallTimeout,
			Enabled:     d.Config.EnableDrain,
			Lock:        d.DrainLock,
			Scope:       id,
		}, logger)

	return &Session{
		ID:          id,
		Cart:        cart,
		Wishlist:    wishlist,
		Signal:      signal,
		Coordinator: coord,
		identity:    identity,
		logger:      logger,
	}, nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the configured TTL. Sessions
// that are draining are kept. It returns how many were evicted.
func (r *Registry) Sweep() int {
	ttl := r.deps.Config.SessionIdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if s.idleSince().After(cutoff) || s.Coordinator.State() == coordinator.StateDraining {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, s)
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.Coordinator.Stop()
	}
	if len(evicted) > 0 {
		r.logger.Info("Evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// RunJanitor sweeps every interval until ctx is done
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// WaitIdle waits until every live session has handled the identity
// transitions raised so far, including the drains they started
func (r *Registry) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if err := s.Coordinator.WaitIdle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops every coordinator and waits for detached tasks, up to ctx
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.cancel()
	r.mu.Unlock()

	for _, s := range sessions {
		s.Coordinator.Stop()
	}
	return r.deps.Runner.Close(ctx)
}

package services

import (
	"context"
	"sync"

	"cartsync/application/ports"
	"cartsync/application/tasks"
	"cartsync/domain/config"
	"cartsync/domain/core/aggregates"
	"cartsync/domain/core/entities"
	"cartsync/domain/core/validators"
	"cartsync/domain/core/valueobjects"
	pkgerrors "cartsync/pkg/errors"

	"go.uber.org/zap"
)

// CartView is a consistent read of the cart
type CartView struct {
	Items     []entities.LineItem `json:"items"`
	Total     float64             `json:"total"`
	LineCount int                 `json:"line_count"`
	UnitCount int                 `json:"unit_count"`
}

// CartService owns one shopper's cart. Every mutation is applied in memory,
// persisted, and then (for adds by an authenticated shopper) mirrored to the
// server cart on a detached task. Storage and mirror failures are logged and
// never returned; in-memory state stays authoritative.
type CartService struct {
	mu        sync.Mutex
	cart      *aggregates.Cart
	store     ports.SnapshotStore[entities.LineItem]
	key       string
	identity  Identity
	remote    ports.RemoteCart
	runner    *tasks.Runner
	publisher ports.EventPublisher
	metrics   ports.Metrics
	validator *validators.ItemValidator
	config    *config.DomainConfig
	logger    *zap.Logger

	// unsaved is set while the last write to store failed
	unsaved bool
}

// CartDeps groups the collaborators of a CartService
type CartDeps struct {
	Store     ports.SnapshotStore[entities.LineItem]
	Identity  Identity
	Remote    ports.RemoteCart
	Runner    *tasks.Runner
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Config    *config.DomainConfig
	Logger    *zap.Logger
}

// NewCartService hydrates the cart for scope from the snapshot store
func NewCartService(ctx context.Context, scope string, deps CartDeps) (*CartService, error) {
	if deps.Store == nil {
		return nil, pkgerrors.NewInternalError("cart service requires a snapshot store")
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	snapshot := deps.Store.Load(ctx, cfg.CartKey)
	cart, err := aggregates.ReconstructCart(scope, snapshot, cfg)
	if err != nil {
		return nil, err
	}
	if cart.LineCount() != len(snapshot) {
		logger.Warn("Cart snapshot contained invalid or duplicate lines",
			zap.String("sessionID", scope),
			zap.Int("persisted", len(snapshot)),
			zap.Int("kept", cart.LineCount()),
		)
	}

	return &CartService{
		cart:      cart,
		store:     deps.Store,
		key:       cfg.CartKey,
		identity:  deps.Identity,
		remote:    deps.Remote,
		runner:    deps.Runner,
		publisher: deps.Publisher,
		metrics:   metrics,
		validator: validators.NewItemValidator(cfg),
		config:    cfg,
		logger:    logger.With(zap.String("sessionID", scope)),
	}, nil
}

// AddToCart merges delta units of item into the cart. A zero delta means one
// unit; a negative delta is rejected (use UpdateQuantity to decrement).
func (s *CartService) AddToCart(ctx context.Context, item entities.LineItem, delta int) (entities.LineItem, error) {
	if delta == 0 {
		delta = 1
	}
	if delta < 0 {
		return entities.LineItem{}, pkgerrors.NewValidationError("quantity to add must be positive")
	}
	if err := s.validator.ValidateLineItem(item, delta); err != nil {
		return entities.LineItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.cart.Add(item, delta)
	if err != nil {
		return entities.LineItem{}, err
	}

	s.persist(ctx, "add")
	s.metrics.RecordMutation("cart", "add")
	s.mirror(ctx, line.ID, delta)
	publishEvents(ctx, s.cart, s.runner, s.publisher, s.logger)

	s.logger.Debug("Added to cart",
		zap.String("productID", line.ID.String()),
		zap.Int("delta", delta),
		zap.Int("quantity", line.Quantity),
	)
	return line, nil
}

// UpdateQuantity adds delta to the line for id; a result <= 0 removes the line.
// It reports whether anything changed.
func (s *CartService) UpdateQuantity(ctx context.Context, id string, delta int) (bool, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return false, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.cart.UpdateQuantity(pid, delta)
	if err != nil || !changed {
		return false, err
	}

	s.persist(ctx, "update_quantity")
	s.metrics.RecordMutation("cart", "update_quantity")
	publishEvents(ctx, s.cart, s.runner, s.publisher, s.logger)
	return true, nil
}

// RemoveFromCart deletes the line for id if present
func (s *CartService) RemoveFromCart(ctx context.Context, id string) (bool, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return false, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cart.Remove(pid) {
		return false, nil
	}

	s.persist(ctx, "remove")
	s.metrics.RecordMutation("cart", "remove")
	publishEvents(ctx, s.cart, s.runner, s.publisher, s.logger)
	return true, nil
}

// ClearCart empties the cart and clears its snapshot
func (s *CartService) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Clear()
	s.clearSnapshot(ctx, "clear")
	s.metrics.RecordMutation("cart", "clear")
	publishEvents(ctx, s.cart, s.runner, s.publisher, s.logger)
}

// Items returns the line items in display order
func (s *CartService) Items() []entities.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// Total returns the sum of price times quantity, recomputed on every call
func (s *CartService) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Total()
}

// View returns items and totals read under one lock
func (s *CartService) View() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CartView{
		Items:     s.cart.Items(),
		Total:     s.cart.Total(),
		LineCount: s.cart.LineCount(),
		UnitCount: s.cart.UnitCount(),
	}
}

// DrainCandidates returns the lines a drain should deliver, in order
func (s *CartService) DrainCandidates() []entities.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// CompleteDrain empties the cart and clears its snapshot once every
// delivered line reached the server
func (s *CartService) CompleteDrain(ctx context.Context, delivered []entities.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if extra := s.cart.MarkDrained(delivered); extra > 0 {
		s.logger.Info("Lines added during drain were cleared with it",
			zap.Int("lines", extra),
		)
	}
	s.clearSnapshot(ctx, "drain")
	s.metrics.RecordMutation("cart", "drain")
	publishEvents(ctx, s.cart, s.runner, s.publisher, s.logger)
}

// Refresh replaces the in-memory cart with the stored snapshot so that
// writes from other processes sharing the store are seen. It is a no-op
// while a failed write leaves the in-memory cart ahead of the store, and a
// failed read keeps the in-memory cart.
func (s *CartService) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsaved {
		return
	}
	snapshot, err := s.store.Read(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to refresh cart, keeping in-memory state", zap.Error(err))
		return
	}
	cart, err := aggregates.ReconstructCart(s.cart.ID(), snapshot, s.config)
	if err != nil {
		s.logger.Warn("Failed to rebuild cart from snapshot", zap.Error(err))
		return
	}
	s.cart = cart
}

func (s *CartService) persist(ctx context.Context, operation string) {
	s.unsaved = false
	if err := s.store.Save(ctx, s.key, s.cart.Items()); err != nil {
		s.unsaved = true
		s.metrics.RecordStorageFailure(operation)
		s.logger.Warn("Failed to persist cart, keeping in-memory state",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

func (s *CartService) clearSnapshot(ctx context.Context, operation string) {
	s.unsaved = false
	if err := s.store.Clear(ctx, s.key); err != nil {
		s.unsaved = true
		s.metrics.RecordStorageFailure(operation)
		s.logger.Warn("Failed to clear cart snapshot",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

// mirror sends the add delta to the server cart when the shopper is signed in.
// The caller never waits on it and its failure is only logged.
func (s *CartService) mirror(ctx context.Context, id valueobjects.ProductID, delta int) {
	if !s.config.EnableMirroring || s.remote == nil || s.identity == nil || s.runner == nil {
		return
	}
	state := s.identity.Current()
	if !state.IsAuthenticated() {
		return
	}

	credential := state.Credential()
	productID := id.String()
	s.runner.Go(ctx, "cart.mirror", func(ctx context.Context) error {
		err := s.remote.AddLineItem(ctx, credential, productID, delta)
		s.metrics.RecordMirror(err == nil)
		if err != nil {
			s.logger.Warn("Cart mirror failed, local cart unchanged",
				zap.String("productID", productID),
				zap.Int("quantity", delta),
				zap.Error(err),
			)
		}
		return nil
	})
}

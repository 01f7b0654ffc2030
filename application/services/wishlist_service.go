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

// WishlistService owns one shopper's wishlist. It never talks to the server.
type WishlistService struct {
	mu        sync.Mutex
	wishlist  *aggregates.Wishlist
	store     ports.SnapshotStore[entities.WishlistItem]
	key       string
	runner    *tasks.Runner
	publisher ports.EventPublisher
	metrics   ports.Metrics
	validator *validators.ItemValidator
	config    *config.DomainConfig
	logger    *zap.Logger
	unsaved   bool
}

// WishlistDeps groups the collaborators of a WishlistService
type WishlistDeps struct {
	Store     ports.SnapshotStore[entities.WishlistItem]
	Runner    *tasks.Runner
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Config    *config.DomainConfig
	Logger    *zap.Logger
}

// NewWishlistService hydrates the wishlist for scope from the snapshot store
func NewWishlistService(ctx context.Context, scope string, deps WishlistDeps) (*WishlistService, error) {
	if deps.Store == nil {
		return nil, pkgerrors.NewInternalError("wishlist service requires a snapshot store")
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

	wishlist, err := aggregates.ReconstructWishlist(scope, deps.Store.Load(ctx, cfg.WishlistKey), cfg)
	if err != nil {
		return nil, err
	}

	return &WishlistService{
		wishlist:  wishlist,
		store:     deps.Store,
		key:       cfg.WishlistKey,
		runner:    deps.Runner,
		publisher: deps.Publisher,
		metrics:   metrics,
		validator: validators.NewItemValidator(cfg),
		config:    cfg,
		logger:    logger.With(zap.String("sessionID", scope)),
	}, nil
}

// AddToWishlist saves item; it reports false when the product was already saved
func (s *WishlistService) AddToWishlist(ctx context.Context, item entities.WishlistItem) (bool, error) {
	if err := s.validator.ValidateWishlistItem(item); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added, err := s.wishlist.Add(item)
	if err != nil || !added {
		return false, err
	}

	s.persist(ctx, "add")
	s.metrics.RecordMutation("wishlist", "add")
	publishEvents(ctx, s.wishlist, s.runner, s.publisher, s.logger)
	return true, nil
}

// RemoveFromWishlist drops id if present
func (s *WishlistService) RemoveFromWishlist(ctx context.Context, id string) (bool, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return false, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wishlist.Remove(pid) {
		return false, nil
	}

	s.persist(ctx, "remove")
	s.metrics.RecordMutation("wishlist", "remove")
	publishEvents(ctx, s.wishlist, s.runner, s.publisher, s.logger)
	return true, nil
}

// IsWishlisted reports membership of id
func (s *WishlistService) IsWishlisted(id string) (bool, error) {
	pid, err := valueobjects.NewProductID(id)
	if err != nil {
		return false, pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Contains(pid), nil
}

// Items returns the saved products
func (s *WishlistService) Items() []entities.WishlistItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wishlist.Items()
}

// Refresh reloads the wishlist from the store, like CartService.Refresh
func (s *WishlistService) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsaved {
		return
	}
	snapshot, err := s.store.Read(ctx, s.key)
	if err != nil {
		s.logger.Warn("Failed to refresh wishlist, keeping in-memory state", zap.Error(err))
		return
	}
	wishlist, err := aggregates.ReconstructWishlist(s.wishlist.ID(), snapshot, s.config)
	if err != nil {
		return
	}
	s.wishlist = wishlist
}

func (s *WishlistService) persist(ctx context.Context, operation string) {
	s.unsaved = false
	if err := s.store.Save(ctx, s.key, s.wishlist.Items()); err != nil {
		s.unsaved = true
		s.metrics.RecordStorageFailure("wishlist_" + operation)
		s.logger.Warn("Failed to persist wishlist, keeping in-memory state",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

package rest

import (
	"context"
	"net/http"
	"time"

	"cartsync/interfaces/http/rest/handlers"
	"cartsync/interfaces/http/rest/middleware"
	"cartsync/pkg/auth"
	"cartsync/pkg/common"
	pkgerrors "cartsync/pkg/errors"
	"cartsync/pkg/observability"
	"cartsync/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds the HTTP surface switches
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
	EnableMetrics  bool
	Debug          bool
}

// Router creates and configures the HTTP router
type Router struct {
	sessions  handlers.SessionProvider
	validator *auth.JWTValidator
	collector *observability.Collector
	tracer    *observability.Tracer
	ready     []ReadinessCheck
	config    RouterConfig
	logger    *zap.Logger
}

// NewRouter creates a new router instance. A nil validator accepts opaque
// bearer tokens at login; a nil collector disables /metrics.
func NewRouter(
	sessions handlers.SessionProvider,
	validator *auth.JWTValidator,
	collector *observability.Collector,
	tracer *observability.Tracer,
	config RouterConfig,
	logger *zap.Logger,
	ready ...ReadinessCheck,
) *Router {
	return &Router{
		sessions:  sessions,
		validator: validator,
		collector: collector,
		tracer:    tracer,
		ready:     ready,
		config:    config,
		logger:    logger,
	}
}

// Handler returns the routes wrapped in inbound tracing when a tracer is set
func (rt *Router) Handler() http.Handler {
	mux := rt.Setup()
	if rt.tracer != nil {
		return rt.tracer.Middleware(mux)
	}
	return mux
}

// Setup configures all routes and middleware
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()
	errs := pkgerrors.NewErrorHandler(rt.logger, rt.config.Debug)

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errs.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.collector != nil {
		router.Use(middleware.Metrics(rt.collector))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.SessionHeader},
			ExposedHeaders:   []string{"X-Request-ID", middleware.SessionHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.collector != nil && rt.config.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	cartHandler := handlers.NewCartHandler(rt.sessions, errs, rt.logger)
	wishlistHandler := handlers.NewWishlistHandler(rt.sessions, errs, rt.logger)
	sessionHandler := handlers.NewSessionHandler(rt.sessions, errs, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", wishlistHandler.GetWishlist)
			r.Post("/items", wishlistHandler.AddItem)
			r.Get("/items/{id}", wishlistHandler.IsWishlisted)
			r.Delete("/items/{id}", wishlistHandler.RemoveItem)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.GetSession)
			r.Post("/logout", sessionHandler.Logout)
			r.With(middleware.Authenticate(rt.validator, errs, rt.logger)).
				Post("/login", sessionHandler.Login)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": utils.Timestamp(time.Now()),
	})
}

// readinessCheck runs every registered dependency check
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	for _, check := range rt.ready {
		if err := check(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			common.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

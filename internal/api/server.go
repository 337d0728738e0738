// Package api provides the HTTP API server and handlers for the exercise resolver.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/exercise-resolver/internal/http/response"
	"github.com/listenupapp/exercise-resolver/internal/ratelimit"
	"github.com/listenupapp/exercise-resolver/internal/service"
	"github.com/listenupapp/exercise-resolver/internal/validation"
)

// DocumentCounter reports the size of the suggestion index. *search.SearchIndex
// implements it.
type DocumentCounter interface {
	DocumentCount() (uint64, error)
}

// Options configures NewServer. The zero value serves every route without rate
// limiting and with CORS open to any origin.
type Options struct {
	AllowedOrigins []string

	// RateLimiter limits /api/ requests per client IP. Nil disables limiting.
	RateLimiter *ratelimit.KeyedRateLimiter

	// Search is reported by /health. Nil reports suggestions as disabled.
	Search DocumentCounter

	// Metrics serves /metrics. Nil uses promhttp.Handler().
	Metrics http.Handler

	Logger *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc       *service.MatchingService
	search    DocumentCounter
	limiter   *ratelimit.KeyedRateLimiter
	validator *validation.Validator
	router    *chi.Mux
	api       huma.API
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(svc *service.MatchingService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		svc:       svc,
		search:    opts.Search,
		limiter:   opts.RateLimiter,
		validator: validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware(opts.AllowedOrigins)

	humaConfig := huma.DefaultConfig("Exercise Resolver API", "1.0.0")
	humaConfig.Info.Description = "Resolves free-text exercise names to canonical catalog entries."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes(opts.Metrics)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for humatest.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack. Chi requires it before any route.
func (s *Server) setupMiddleware(allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(metricsHandler http.Handler) {
	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, "method not allowed", s.logger)
	})

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	s.router.Handle("/metrics", metricsHandler)

	s.registerHealthRoutes()
	s.registerResolveRoutes()
	s.registerExerciseRoutes()
	s.registerCatalogRoutes()
	s.registerCacheRoutes()
}

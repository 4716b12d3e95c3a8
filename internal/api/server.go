// Package api provides the HTTP API server and handlers for the ReadLeaf application.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readleafapp/readleaf-server/internal/store"
	"github.com/readleafapp/readleaf-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       store.Store
	services    *Services
	search      DocumentCounter
	router      *chi.Mux
	api         huma.API
	rateLimiter *RateLimiter
	validator   *validation.Validator
	logger      *slog.Logger
}

// DocumentCounter reports the size of the search index for health checks.
type DocumentCounter interface {
	DocumentCount() (uint64, error)
}

// Options configures the HTTP server.
type Options struct {
	Store      store.Store
	Services   *Services
	Search     DocumentCounter // optional
	CORSOrigin string
	Logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:       opts.Store,
		services:    opts.Services,
		search:      opts.Search,
		router:      router,
		rateLimiter: NewRateLimiter(300, time.Minute, 100),
		validator:   validation.New(),
		logger:      opts.Logger,
	}

	s.setupMiddleware(opts.CORSOrigin)

	humaConfig := huma.DefaultConfig("ReadLeaf API", "1.0.0")
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerSessionRoutes()
	s.registerProgressRoutes()
	s.registerStreakRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(corsOrigin string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	allowedOrigins := []string{corsOrigin}
	if corsOrigin == "" {
		allowedOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Use(RateLimitMiddleware(s.rateLimiter, s.logger))
}

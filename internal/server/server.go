// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects the store, services,
// handlers, middleware and routes. It decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → OpenStore → repository.Store
//	Store → SearchService → SnippetService (purges the search cache on writes)
//	Store → AuthService (TokenService, PasswordService)
//	Services → Handlers → Routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/snippet-oracle/internal/auth"
	"github.com/sakif/snippet-oracle/internal/config"
	"github.com/sakif/snippet-oracle/internal/handler"
	"github.com/sakif/snippet-oracle/internal/metrics"
	"github.com/sakif/snippet-oracle/internal/middleware"
	"github.com/sakif/snippet-oracle/internal/repository"
	"github.com/sakif/snippet-oracle/internal/repository/postgres"
	sqliteRepo "github.com/sakif/snippet-oracle/internal/repository/sqlite"
	"github.com/sakif/snippet-oracle/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection. Start closes it on the way out so
// pending writes are flushed and the SQLite file lock is released.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    repository.Store
	registry *prometheus.Registry
}

// OpenStore opens the backend named by cfg.Driver. The CLI uses it too, so
// both entry points read the same database the same way.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` to avoid confusion with the
// modernc.org/sqlite driver package.
func OpenStore(ctx context.Context, cfg config.DBConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		if cfg.Path != ":memory:" {
			// os.MkdirAll is `mkdir -p`; 0755 = owner rwx, others r-x.
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown db.driver %q", cfg.Driver)
	}
}

// New opens the store and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		store.Close() // Clean up the store if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /search?q=             → Query resolver (JSON, public)
// GET    /metrics               → Prometheus scrape endpoint
// POST   /api/signup            → Create account (sets session cookie)
// POST   /api/login             → Log in (sets session cookie)
// POST   /api/logout            → Clear session cookie
// GET    /api/me                → Current user            [auth]
// GET    /api/snippets          → List own snippets       [auth]
// POST   /api/snippets          → Create snippet          [auth]
// GET    /api/snippets/{id}     → Get single snippet      [auth]
// PUT    /api/snippets/{id}     → Update snippet (owner)  [auth]
// DELETE /api/snippets/{id}     → Delete snippet (owner)  [auth]
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Logger and Metrics: see the final status, including recovered panics
//  4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(s.registry)

	tokens, err := auth.NewTokenService(s.config.JWT.Secret, s.config.JWT.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// === Services ===
	// The snippet service gets the search service as its cache purger, so a
	// write is visible to the very next search.
	searchService := service.NewSearchService(s.store, service.SearchOptions{
		Mode:      s.config.Search.Mode,
		CacheSize: s.config.Search.CacheSize,
		CacheTTL:  s.config.Search.CacheTTL,
	}, m, s.logger)
	snippetService := service.NewSnippetService(s.store, searchService, s.logger)
	authService := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), s.logger)

	// === Handlers ===
	searchHandler := handler.NewSearchHandler(searchService, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.config.Cookie.Secure, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID) // Adds X-Request-ID header
	s.router.Use(chimiddleware.RealIP)    // Extracts real IP from X-Forwarded-For
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(m))
	s.router.Use(chimiddleware.Recoverer) // Recovers from panics, returns 500

	s.router.Get("/search", searchHandler.HandleSearch)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	s.router.Route("/api", func(r chi.Router) {
		// OptionalAuth lets signup recognise a caller who is already signed in.
		r.With(auth.OptionalAuth(tokens)).Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		// Everything below requires a valid session cookie.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/snippets", snippetHandler.HandleList)
			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Get("/snippets/{id}", snippetHandler.HandleGetByID)
			r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
		})
	})

	return nil
}

// Handler exposes the router, mainly so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store. Start calls it itself; callers that never Start
// (tests) call it directly.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the store (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	// Ensure the store is closed when the server stops.
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DB.Driver),
			slog.String("search_mode", s.config.Search.Mode.String()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

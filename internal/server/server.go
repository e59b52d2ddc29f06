// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It is the composition root: every dependency in the chain
//
//	sqlite.DB → UserService → UserHandler
//
// is assembled in New/setupRoutes rather than scattered across the codebase.
// Each layer only receives what it needs: the service gets the repository
// interface (not the concrete sqlite.DB), the handler gets the service (not
// the repository or DB).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anfirdaus/userfinder/internal/auth"
	"github.com/anfirdaus/userfinder/internal/config"
	"github.com/anfirdaus/userfinder/internal/docs"
	"github.com/anfirdaus/userfinder/internal/handler"
	"github.com/anfirdaus/userfinder/internal/middleware"
	sqliteRepo "github.com/anfirdaus/userfinder/internal/repository/sqlite"
	"github.com/anfirdaus/userfinder/internal/service"
	"github.com/anfirdaus/userfinder/internal/upload"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection; when it shuts down it must close
// it to flush pending writes and release the file lock. This happens in
// Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server from the given config.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` to avoid confusion with the
// sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /docs                 → OpenAPI document (JSON)
//	GET    /Images/*             → Static avatar files
//	POST   /api/v1/register      → Create an account
//	POST   /api/v1/login         → Verify credentials, issue JWT
//	GET    /api/v1/users         → List users
//	GET    /api/v1/user/{id}     → Get one user
//	PATCH  /api/v1/user/{id}     → Update name/avatar    [bearer token]
//	DELETE /api/v1/user/{id}     → Delete user           [bearer token]
//
// MIDDLEWARE ORDER MATTERS — middleware executes in the order it's added:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
// 5. CORS — permissive, all origins (the API is public)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// === Auth utilities ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	// === Avatar storage + static serving ===
	avatars, err := upload.NewSaver(s.config.ImagesDir)
	if err != nil {
		return fmt.Errorf("creating avatar store: %w", err)
	}

	// GET /Images/cnb2qk….png → serves {ImagesDir}/cnb2qk….png.
	// StripPrefix removes "/Images/" before the filesystem lookup.
	fileServer := http.FileServer(http.Dir(avatars.Dir()))
	s.router.Handle("/Images/*", http.StripPrefix("/Images/", fileServer))

	// === API documentation ===
	docsHandler, err := docs.Handler(fmt.Sprintf("http://localhost:%d/api/v1", s.config.Port))
	if err != nil {
		return fmt.Errorf("building API docs: %w", err)
	}
	s.router.Get("/docs", docsHandler)

	// === API routes ===
	userService := service.NewUserService(s.db, tokens, passwords, s.config.AdminEmail, s.logger)
	userHandler := handler.NewUserHandler(userService, avatars, s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", userHandler.HandleRegister)
		r.Post("/login", userHandler.HandleLogin)
		r.Get("/users", userHandler.HandleList)
		r.Get("/user/{id}", userHandler.HandleGet)

		// Protected routes: the token gate lives here, the owner-or-admin
		// rules live in the service.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Patch("/user/{id}", userHandler.HandleUpdate)
			r.Delete("/user/{id}", userHandler.HandleDelete)
		})
	})

	return nil
}

// Router exposes the configured router, mainly so tests can drive the full
// middleware chain with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start() callers
// don't need this; it exists for tests and failed startups.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("docs", fmt.Sprintf("http://localhost:%d/docs", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This is the composition root: the database, services, handlers, and
// middleware are all created and connected here, in one place, rather than
// scattered across the codebase. main.go only builds a Config and calls
// New + Start.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB → AccountService / AuthService / PostService → handlers
//
// Handlers never touch the database; services never touch HTTP.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/handler"
	"github.com/sakif/social-network/internal/middleware"
	sqliteRepo "github.com/sakif/social-network/internal/repository/sqlite"
	"github.com/sakif/social-network/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC secret for the token pair
}

// Server owns the router and the resources that need closing on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server with all dependencies wired.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
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
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /auth/login                  → token pair
//	POST   /auth/refresh                → new access token
//	POST   /accounts/register           → new account (no token required)
//	GET    /accounts/me                 → caller's account
//	GET    /accounts/all                → directory, caller excluded
//	GET    /accounts/find/{name}        → lookup by display name
//	PATCH  /accounts/follow/{name}      → add follow edge
//	PATCH  /accounts/unfollow/{name}    → remove follow edge
//	PATCH  /accounts/updateName         → rename display name
//	DELETE /accounts/delete             → delete caller + cascade
//	POST   /posts/createPost            → new post
//	GET    /posts/me                    → caller's posts
//	GET    /posts/allFollowing          → aggregated feed
//	GET    /posts/post/{id}             → single post
//	GET    /posts/{postBy}              → one author's posts
//	PATCH  /posts/editPost/{id}         → edit text (author only)
//	PATCH  /posts/comment/{id}          → add comment
//	PATCH  /posts/deleteComment/{id}    → remove own comment
//	DELETE /posts/deletePost/{id}       → delete post (author only)
//	GET    /metrics                     → Prometheus scrape
//
// Everything under /accounts (except register) and /posts requires a
// bearer access token; a missing or invalid token is a uniform 401.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	accountService := service.NewAccountService(s.db, s.db, passwords, s.logger)
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	postService := service.NewPostService(s.db, s.db, s.logger)

	accountHandler := handler.NewAccountHandler(accountService, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)

	metrics := middleware.NewMetrics()
	requireAuth := auth.RequireAuth(tokens)

	// Global middleware, in order: request id, real client IP, panic
	// recovery, metrics, request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(metrics.Collect)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/refresh", authHandler.HandleRefresh)
	})

	s.router.Route("/accounts", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", accountHandler.HandleMe)
			r.Get("/all", accountHandler.HandleAll)
			r.Get("/find/{name}", accountHandler.HandleFind)
			r.Patch("/follow/{name}", accountHandler.HandleFollow)
			r.Patch("/unfollow/{name}", accountHandler.HandleUnfollow)
			r.Patch("/updateName", accountHandler.HandleUpdateName)
			r.Delete("/delete", accountHandler.HandleDelete)
		})
	})

	s.router.Route("/posts", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/createPost", postHandler.HandleCreate)
		r.Get("/me", postHandler.HandleMyPosts)
		r.Get("/allFollowing", postHandler.HandleFollowingFeed)
		r.Get("/post/{id}", postHandler.HandleGetPost)
		r.Get("/{postBy}", postHandler.HandleAuthorPosts)
		r.Patch("/editPost/{id}", postHandler.HandleEdit)
		r.Patch("/comment/{id}", postHandler.HandleComment)
		r.Patch("/deleteComment/{id}", postHandler.HandleDeleteComment)
		r.Delete("/deletePost/{id}", postHandler.HandleDelete)
	})

	s.router.Handle("/metrics", promhttp.Handler())

	return nil
}

// Start starts the HTTP server and blocks until shutdown.
//
// Graceful shutdown: stop accepting connections, give in-flight requests
// 30 seconds, then close the database so the WAL is flushed.
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

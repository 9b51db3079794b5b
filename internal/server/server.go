// Package server wires the HTTP surface: public webhook and status routes,
// key-protected model access, and the admin-key gated key lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anticlanker/anticlanker/internal/classifier"
	"github.com/anticlanker/anticlanker/internal/handler"
	"github.com/anticlanker/anticlanker/internal/moderation"
	"github.com/anticlanker/anticlanker/internal/server/middleware"
	"github.com/anticlanker/anticlanker/internal/service"
	"github.com/anticlanker/anticlanker/internal/ui"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RatePerMinute   int
	Auth            middleware.Options
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RatePerMinute:   120,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server. It owns the Chi router and delegates
// all domain work to the injected services.
type Server struct {
	cfg        Config
	router     chi.Router
	authSvc    *service.AuthService
	cls        *classifier.Classifier
	mod        *moderation.Moderator
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, authSvc *service.AuthService, cls *classifier.Classifier, mod *moderation.Moderator, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		authSvc: authSvc,
		cls:     cls,
		mod:     mod,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type",
			middleware.APIKeyHeader, middleware.APIKeyNameHeader,
			middleware.APIProjectHeader, middleware.AdminKeyHeader},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	if s.cfg.RatePerMinute > 0 {
		r.Use(middleware.RateLimit(s.cfg.RatePerMinute))
	}

	var mdlClient *classifier.Client
	if s.cls != nil {
		mdlClient = s.cls.Client()
	}
	webhookHandler := handler.NewWebhookHandler(s.mod, s.cfg.Version, s.logger)
	aiHandler := handler.NewAIHandler(s.cls, s.logger)
	adminHandler := handler.NewAdminHandler(s.authSvc, mdlClient, s.logger)
	openAPIHandler := handler.NewOpenAPIHandler(s.cfg.Version)

	// --- Public routes (no credentials) ---
	r.Get("/status", webhookHandler.Status)
	r.Post("/kill-da-clanker", webhookHandler.Callback)
	r.Get("/openapi.json", openAPIHandler.ServeSpec)

	// --- Key-protected routes ---
	r.Group(func(r chi.Router) {
		if s.cfg.RatePerMinute > 0 {
			r.Use(middleware.RateLimitByKeyName(s.cfg.RatePerMinute))
		}
		r.Use(middleware.RequireAPIKey(s.authSvc, s.logger, s.cfg.Auth))
		r.Post("/ai", aiHandler.Prompt)
		r.Post("/auth/login", aiHandler.Login)
	})

	// --- Admin routes ---
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(s.authSvc, s.logger, s.cfg.Auth))

		r.Post("/generate-key", adminHandler.GenerateKey)
		r.Get("/list-keys", adminHandler.ListKeys)
		r.Post("/revoke-key", adminHandler.RevokeKey)

		r.Post("/models/list", adminHandler.ListModels)
		r.Post("/models/pull", adminHandler.PullModel)
		r.Post("/models/delete", adminHandler.DeleteModel)
		r.Post("/models/switch", adminHandler.SwitchModel)
	})

	// --- Static consoles ---
	// The pages are served without credentials; every API call they make is
	// still gated by the middleware above.
	r.Get("/", s.servePage("static/user.html"))
	r.Get("/user_ui", s.servePage("static/user.html"))
	r.Get("/admin_ui", s.servePage("static/admin.html"))

	s.router = r
}

// servePage returns a handler that serves one embedded console page.
func (s *Server) servePage(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := ui.Static.ReadFile(path)
		if err != nil {
			s.logger.Error("embedded page missing", "path", path, "error", err)
			http.Error(w, "page not available", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	}
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second, // model pulls can take minutes
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Package web provides the HTTP server for the dataset version API and the
// admin pages.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/statspub/internal/config"
	"github.com/JonMunkholm/statspub/internal/core"
	"github.com/JonMunkholm/statspub/internal/web/middleware"
)

// Server serves the public version API and the admin endpoints.
type Server struct {
	service *core.Service
	cfg     config.Config
	logger  *slog.Logger
	router  *chi.Mux
	server  *http.Server

	publicLimiter *middleware.RateLimiter
	adminLimiter  *middleware.RateLimiter
	stopCleanup   context.CancelFunc
}

// NewServer creates a Server for service configured by cfg.
func NewServer(service *core.Service, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.publicLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Rate.RequestsPerMinute,
			Burst:             cfg.Rate.Burst,
		})
		s.adminLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Rate.AdminRequestsPerMinute,
			Burst:             max(1, cfg.Rate.Burst/4),
		})
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(requestInfo)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Public API
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Security.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			MaxAge:         300,
		}))
		if s.publicLimiter != nil {
			r.Use(s.publicLimiter.Handler)
		}

		r.Get("/datasets/{datasetID}/versions", s.handleListVersions)
		r.Get("/datasets/{datasetID}/versions/{version}", s.handleResolveVersion)
	})

	// Admin API and pages
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))
		if s.adminLimiter != nil {
			r.Use(s.adminLimiter.Handler)
		}

		r.Route("/api/admin", func(r chi.Router) {
			r.Get("/datasets/{datasetID}/deletion-plan", s.handleDeletionPlan)
			r.Delete("/datasets/{datasetID}/versions", s.handleDeleteVersions)
			r.Get("/dataset-versions/{versionID}/mapping/summary", s.handleMappingSummary)
			r.Get("/audit-log", s.handleAuditLog)
			r.Get("/audit-log/export", s.handleAuditLogExport)
			r.Post("/audit-log/purge", s.handlePurgeAuditLog)
		})
		r.Get("/admin/dataset-versions/{versionID}/mapping", s.handleMappingPage)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	for _, rl := range []*middleware.RateLimiter{s.publicLimiter, s.adminLimiter} {
		if rl != nil {
			rl.StartCleanup(ctx, time.Minute, 10*time.Minute)
		}
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// Admin pages use inline styles only.
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode error", "error", err)
	}
}

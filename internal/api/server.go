package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/underwrite/internal/domain"
	"github.com/opensource-finance/underwrite/internal/scoring"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server. repo, cache and bus may be nil.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *scoring.Scorer, version string) *Server {
	handler := NewHandler(repo, cache, bus, scorer, version, cfg.MaxUploadMB<<20)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Route("/api", func(r chi.Router) {
		// Scoring
		r.Post("/score", handler.Score)
		r.Post("/score/files", handler.ScoreFiles)
		r.Post("/score/async", handler.ScoreAsync)

		// History
		r.Get("/history", handler.ListHistory)
		r.Get("/history/{id}", handler.GetHistory)

		// Reports
		r.Post("/debits", handler.Debits)
		r.Post("/accounts/income", handler.AccountsIncome)
		r.Post("/patterns", handler.Patterns)

		// Ladder management
		r.Get("/ladders", handler.ListLadders)
		r.Put("/ladders/{id}", handler.UpdateLadder)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}

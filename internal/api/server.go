package api

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/randalmurphal/tasksync/internal/events"
	"github.com/randalmurphal/tasksync/internal/repository"
	"github.com/randalmurphal/tasksync/internal/source"
)

// Repository is the task repository served by the API.
type Repository interface {
	source.DataSource
	Stats() repository.CacheStats
}

// Server is the tasksync API server.
type Server struct {
	addr   string
	mux    *http.ServeMux
	logger *slog.Logger

	repo      Repository
	publisher events.Publisher
	wsHandler *WSHandler
}

// Config holds server configuration.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:   "localhost:8080",
		Logger: slog.Default(),
	}
}

// New creates an API server over repo. Events published by the
// repository to pub are streamed to WebSocket clients.
func New(repo Repository, pub events.Publisher, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = events.NewNopPublisher()
	}

	s := &Server{
		addr:      cfg.Addr,
		mux:       http.NewServeMux(),
		logger:    logger,
		repo:      repo,
		publisher: pub,
	}
	s.wsHandler = NewWSHandler(pub, repo, logger)

	s.registerRoutes()
	return s
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	// Preflight for every API route
	s.mux.HandleFunc("OPTIONS /api/", cors(func(w http.ResponseWriter, r *http.Request) {}))

	s.mux.HandleFunc("GET /api/health", cors(s.handleHealth))

	// Tasks
	s.mux.HandleFunc("GET /api/tasks", cors(s.handleListTasks))
	s.mux.HandleFunc("POST /api/tasks", cors(s.handleCreateTask))
	s.mux.HandleFunc("DELETE /api/tasks", cors(s.handleDeleteAllTasks))
	s.mux.HandleFunc("GET /api/tasks/{id}", cors(s.handleGetTask))
	s.mux.HandleFunc("DELETE /api/tasks/{id}", cors(s.handleDeleteTask))

	// Task state
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", cors(s.handleCompleteTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/activate", cors(s.handleActivateTask))

	// Bulk operations
	s.mux.HandleFunc("POST /api/tasks/clear-completed", cors(s.handleClearCompleted))
	s.mux.HandleFunc("POST /api/tasks/refresh", cors(s.handleRefresh))

	// WebSocket event stream
	s.mux.Handle("GET /api/ws", s.wsHandler)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.wsHandler.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", "error", err)
		}
	}()

	s.logger.Info("starting API server", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns server health and cache state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, map[string]any{
		"status":      "ok",
		"cache":       s.repo.Stats(),
		"connections": s.wsHandler.ConnectionCount(),
	})
}

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/uloaix/aicode/internal/crypto"
	"github.com/uloaix/aicode/internal/serverdb"
)

// Server is the HTTP API server for aicode.
type Server struct {
	config      Config
	http        *http.Server
	store       *serverdb.ServerDB
	metrics     *Metrics
	rateLimiter *RateLimiter
	cancel      context.CancelFunc
}

// NewServer creates a new Server with the given config and store. When the
// config names a bootstrap admin, that account is created or promoted.
func NewServer(cfg Config, store *serverdb.ServerDB) (*Server, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.RateLimitAuth <= 0 {
		cfg.RateLimitAuth = 20
	}

	s := &Server{
		config:      cfg,
		store:       store,
		metrics:     NewMetrics(),
		rateLimiter: NewRateLimiter(),
	}

	if cfg.AdminAccount != "" && cfg.AdminPassword != "" {
		hash, err := crypto.HashPassword(cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		created, err := store.EnsureAdmin(cfg.AdminAccount, hash)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		slog.Info("admin account ready", "account", cfg.AdminAccount, "created", created)
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.cleanupLoop(ctx, 5*time.Minute)

	return nil
}

// cleanupLoop periodically purges expired sessions, old auth events and
// stale rate limit buckets.
func (s *Server) cleanupLoop(ctx context.Context, every time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cleanup panic", "panic", r)
		}
	}()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *Server) runCleanup() {
	if n, err := s.store.CleanupExpiredSessions(); err != nil {
		slog.Error("cleanup expired sessions", "err", err)
	} else if n > 0 {
		slog.Info("cleaned up expired sessions", "count", n)
	}
	if n, err := s.store.CleanupAuthEvents(s.config.AuthEventRetention); err != nil {
		slog.Error("cleanup auth events", "err", err)
	} else if n > 0 {
		slog.Info("cleaned up auth events", "count", n)
	}
	s.rateLimiter.Cleanup()
}

// Handler returns the fully wrapped HTTP handler, for embedding in tests or
// other listeners.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.requireAdmin(s.handleMetrics))

	// Account (public + self)
	mux.HandleFunc("POST /user/register", s.handleRegister)
	mux.HandleFunc("POST /user/login", s.handleLogin)
	mux.HandleFunc("GET /user/get/login", s.requireLogin(s.handleGetLoginUser))
	mux.HandleFunc("POST /user/logout", s.requireLogin(s.handleLogout))
	mux.HandleFunc("POST /user/update/my", s.requireLogin(s.handleUpdateMy))

	// User management (admin)
	mux.HandleFunc("POST /user/add", s.requireAdmin(s.handleAddUser))
	mux.HandleFunc("GET /user/get", s.requireAdmin(s.handleGetUser))
	mux.HandleFunc("GET /user/get/vo", s.requireAdmin(s.handleGetUserVO))
	mux.HandleFunc("POST /user/delete", s.requireAdmin(s.handleDeleteUser))
	mux.HandleFunc("POST /user/update", s.requireAdmin(s.handleUpdateUser))
	mux.HandleFunc("POST /user/list/page/vo", s.requireAdmin(s.handleListUsers))
	mux.HandleFunc("GET /user/auth/events", s.requireAdmin(s.handleAuthEvents))

	// Apps
	mux.HandleFunc("POST /app/add", s.requireLogin(s.handleAddApp))
	mux.HandleFunc("POST /app/my/list/page/vo", s.requireLogin(s.handleListMyApps))
	mux.HandleFunc("GET /app/get/vo", s.requireLogin(s.handleGetAppVO))
	mux.HandleFunc("POST /app/update/status", s.requireAdmin(s.handleUpdateAppStatus))

	return chain(mux,
		recoveryMiddleware,
		requestIDMiddleware,
		loggerMiddleware,
		metricsMiddleware(s.metrics),
		loggingMiddleware,
		s.CORSMiddleware,
		maxBytesMiddleware(1<<20),
		authRateLimitMiddleware(s.rateLimiter, s.config.RateLimitAuth),
	)
}

// handleHealth reports liveness, pinging the server DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, BaseResponse{
			Code:    CodeSystemError,
			Data:    map[string]string{"status": "error", "detail": "db unreachable"},
			Message: "db unreachable",
		})
		return
	}
	writeOK(w, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeOK(w, s.metrics.Snapshot())
}

// Package http exposes the JSON API over the application services.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tally/internal/auth"
	"tally/internal/cache"
	"tally/internal/core"
	applog "tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/middleware/ratelimit"
	"tally/internal/middleware/security"
	"tally/internal/middleware/trace"
	"tally/internal/ocr"
	"tally/internal/services"
	"tally/internal/store"
)

// Options carries everything the server needs besides the listen address.
type Options struct {
	Stores        store.Stores
	Auth          *auth.Service
	Transactions  *services.TransactionService
	Analytics     *services.AnalyticsService
	Notifications *services.NotificationService
	Processor     *services.Processor
	Analyzer      ocr.Analyzer
	Metrics       *metrics.Registry
	Logger        *applog.Logger
	UploadDir     string
	MaxUploadSize int64
}

type Server struct {
	http.Server

	stores        store.Stores
	auth          *auth.Service
	transactions  *services.TransactionService
	analytics     *services.AnalyticsService
	notifications *services.NotificationService
	processor     *services.Processor
	analyzer      ocr.Analyzer
	metrics       *metrics.Registry
	uploadDir     string
	maxUploadSize int64

	dashCache    *cache.LRUCache[core.Dashboard]
	cacheManager *cache.Manager
	loginLimiter *ratelimit.Limiter
	detector     *security.Detector
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		stores:        opts.Stores,
		auth:          opts.Auth,
		transactions:  opts.Transactions,
		analytics:     opts.Analytics,
		notifications: opts.Notifications,
		processor:     opts.Processor,
		analyzer:      opts.Analyzer,
		metrics:       opts.Metrics,
		uploadDir:     opts.UploadDir,
		maxUploadSize: opts.MaxUploadSize,

		dashCache:    cache.NewLRUCache[core.Dashboard](100, 5*time.Minute),
		cacheManager: cache.NewManager(),
		loginLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10}),
		detector:     security.NewDetector(opts.Metrics),
	}

	s.cacheManager.Register(s.dashCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	mux.HandleFunc("POST /api/register", s.withLoginLimit(s.handleRegister))
	mux.HandleFunc("POST /api/login", s.withLoginLimit(s.handleLogin))
	mux.HandleFunc("POST /api/forgot-password", s.withLoginLimit(s.handleForgotPassword))
	mux.HandleFunc("POST /api/reset-password", s.withLoginLimit(s.handleResetPassword))
	mux.HandleFunc("GET /api/me", s.requireAuth(s.handleMe))
	mux.HandleFunc("POST /api/me/password", s.requireAuth(s.handleChangePassword))

	mux.HandleFunc("GET /api/transactions", s.requireAuth(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.requireAuth(s.handleCreateTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.requireAuth(s.handleGetTransaction))
	mux.HandleFunc("GET /api/transactions/{id}/splits", s.requireAuth(s.handleTransactionSplits))
	mux.HandleFunc("POST /api/receipts", s.requireAuth(s.handleUploadReceipt))
	mux.HandleFunc("GET /api/receipts/{filename}", s.requireAuth(s.handleGetReceipt))

	mux.HandleFunc("GET /api/recurring", s.requireAuth(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.requireAuth(s.handleCreateRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.requireAuth(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.requireAuth(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/{id}/toggle", s.requireAuth(s.handleToggleRecurring))
	mux.HandleFunc("POST /api/recurring/process", s.requireAuth(s.handleProcessRecurring))

	mux.HandleFunc("GET /api/budgets", s.requireAuth(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.requireAuth(s.handleCreateBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.requireAuth(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.requireAuth(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/groups", s.requireAuth(s.handleListGroups))
	mux.HandleFunc("POST /api/groups", s.requireAuth(s.handleCreateGroup))
	mux.HandleFunc("PUT /api/groups/{id}", s.requireAuth(s.handleUpdateGroup))
	mux.HandleFunc("DELETE /api/groups/{id}", s.requireAuth(s.handleDeleteGroup))

	mux.HandleFunc("GET /api/accounts", s.requireAuth(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.requireAuth(s.handleCreateAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.requireAuth(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))

	mux.HandleFunc("GET /api/notifications", s.requireAuth(s.handleListNotifications))
	mux.HandleFunc("GET /api/notifications/unread-count", s.requireAuth(s.handleUnreadCount))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.requireAuth(s.handleMarkRead))
	mux.HandleFunc("POST /api/notifications/read-all", s.requireAuth(s.handleMarkAllRead))

	mux.HandleFunc("GET /api/users", s.requireAuth(s.requireAdmin(s.handleListUsers)))
	mux.HandleFunc("PUT /api/users/{id}", s.requireAuth(s.requireAdmin(s.handleUpdateUser)))

	// Outer middleware: security headers, detection logging, tracing,
	// then a request-scoped logger for the handlers.
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	requestLogger := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	handler := applog.Middleware(logger.WithComponent(applog.ComponentHTTP))(requestLogger(mux))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, opts.Metrics)
	s.Server.Handler = headers.Middleware(s.detector.Middleware(tracer.Middleware(handler)))

	return s
}

// Shutdown stops background cleanup routines and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withLoginLimit rate limits credential endpoints per client IP.
func (s *Server) withLoginLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)
		if !s.loginLimiter.Allow(clientIP) {
			if s.metrics != nil {
				s.metrics.RateLimitHits.Inc()
			}
			slog.WarnContext(r.Context(), "Rate limit exceeded", "client_ip", clientIP, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
			return
		}
		next(w, r)
	}
}

// invalidateDashboards drops every cached dashboard after a write.
func (s *Server) invalidateDashboards() {
	s.dashCache.DeletePrefix("")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.stores.Users().All(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Package http exposes the JSON API: session endpoints, the ledger CRUD
// surface, and the aggregation reads backing the dashboard.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"budgetify/internal/auth"
	"budgetify/internal/backend"
	applog "budgetify/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

type Server struct {
	http.Server
	sessions *auth.Manager
	backend  *backend.Backend

	rateLimiter *rateLimiter
	metrics     securityMetrics
	structured  *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, sessions *auth.Manager, be *backend.Backend) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions:    sessions,
		backend:     be,
		rateLimiter: newRateLimiter(),
		structured: applog.NewStructuredLogger(applog.New(applog.Config{
			Component: applog.ComponentHTTP,
			Handler:   slog.Default().Handler(),
		})),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Session endpoints
	mux.HandleFunc("POST /api/auth/register", s.withSecurity(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.withSecurity(s.handleLogin))
	mux.HandleFunc("POST /api/auth/logout", s.withSecurity(s.handleLogout))
	mux.HandleFunc("POST /api/auth/reset-password", s.withSecurity(s.handlePasswordReset))
	mux.HandleFunc("GET /api/auth/me", s.withSecurity(s.withUser(s.handleMe)))

	// Ledger endpoints
	mux.HandleFunc("GET /api/transactions", s.withSecurity(s.withUser(s.handleListTransactions)))
	mux.HandleFunc("GET /api/transactions/recent", s.withSecurity(s.withUser(s.handleRecentTransactions)))
	mux.HandleFunc("POST /api/transactions", s.withSecurity(s.withUser(s.handleAddTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.withSecurity(s.withUser(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /api/categories", s.withSecurity(s.withUser(s.handleListCategories)))
	mux.HandleFunc("POST /api/categories", s.withSecurity(s.withUser(s.handleAddCategory)))
	mux.HandleFunc("PUT /api/categories/{id}", s.withSecurity(s.withUser(s.handleUpdateCategory)))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withSecurity(s.withUser(s.handleDeleteCategory)))

	// Aggregation endpoints
	mux.HandleFunc("GET /api/stats/dashboard", s.withSecurity(s.withUser(s.handleDashboardStats)))
	mux.HandleFunc("GET /api/stats/by-category", s.withSecurity(s.withUser(s.handleExpenseByCategory)))
	mux.HandleFunc("GET /api/stats/monthly", s.withSecurity(s.withUser(s.handleMonthlyExpenses)))

	return s
}

// withSecurity applies rate limiting, security headers and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r) {
			s.metrics.suspiciousRequests.Add(1)
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.metrics.rateLimitHits.Add(1)
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		s.structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

// withUser authenticates the Bearer token and stores the user ID in context.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		userID, err := s.sessions.VerifySession(token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

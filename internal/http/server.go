// Package http exposes the ledger over a compact JSON API: authentication,
// transaction CRUD, the monthly report, CSV export and the sync-state probe.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"khata/internal/auth"
	"khata/internal/log"
	"khata/internal/profile"
	"khata/internal/store"
	appsync "khata/internal/sync"
)

type Server struct {
	http.Server

	store    *store.Store
	auth     auth.Service
	profiles *profile.Service
	sync     *appsync.Coordinator
	logger   *log.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, s *store.Store, authSvc auth.Service, profiles *profile.Service, coordinator *appsync.Coordinator, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	srv := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		store:       s,
		auth:        authSvc,
		profiles:    profiles,
		sync:        coordinator,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /auth/sign-in", srv.withMiddleware(srv.handleSignIn))
	mux.HandleFunc("POST /auth/sign-out", srv.withMiddleware(srv.handleSignOut))
	mux.HandleFunc("POST /auth/password-reset", srv.withMiddleware(srv.handlePasswordReset))

	mux.HandleFunc("GET /transactions", srv.withMiddleware(srv.requireIdentity(srv.handleListTransactions)))
	mux.HandleFunc("POST /transactions", srv.withMiddleware(srv.requireIdentity(srv.handleCreateTransaction)))
	mux.HandleFunc("PUT /transactions/{id}", srv.withMiddleware(srv.requireIdentity(srv.handleEditTransaction)))
	mux.HandleFunc("DELETE /transactions/{id}", srv.withMiddleware(srv.requireIdentity(srv.handleDeleteTransaction)))

	mux.HandleFunc("GET /report", srv.withMiddleware(srv.requireIdentity(srv.handleReport)))
	mux.HandleFunc("PUT /period", srv.withMiddleware(srv.requireIdentity(srv.handleSetPeriod)))
	mux.HandleFunc("GET /export", srv.withMiddleware(srv.requireIdentity(srv.handleExport)))

	mux.HandleFunc("GET /sync", srv.withMiddleware(srv.handleSyncState))
	mux.HandleFunc("POST /sync/retry", srv.withMiddleware(srv.requireIdentity(srv.handleSyncRetry)))

	mux.HandleFunc("PUT /profile/username", srv.withMiddleware(srv.requireIdentity(srv.handleSetUsername)))

	return srv
}

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

// withMiddleware adds security headers, rate limiting on mutations and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.Warn("Rate limit exceeded",
				"client_ip", clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.Info("Request completed",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds())
	}
}

// requireIdentity rejects requests arriving while nobody is signed in.
func (s *Server) requireIdentity(next func(http.ResponseWriter, *http.Request, auth.Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.auth.CurrentIdentity()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Sign in first")
			return
		}
		next(w, r, id)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

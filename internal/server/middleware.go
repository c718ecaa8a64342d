package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/me/madrasa/pkg/model"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeySession   ctxKey = "session"
)

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// SessionFromContext extracts the authenticated session placed there by
// requireSession. Nil outside gated routes.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(ctxKeySession).(*model.Session)
	return sess
}

// requestIDMiddleware generates a request_id and stores it in context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs HTTP requests at INFO level (method, path, status, duration).
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
				"request_id", RequestIDFromContext(r.Context()),
			)
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requireSession rejects requests without a valid session with 401 JSON and
// stores the session in context for handlers.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			s.logger.Error("session lookup failed", "error", err)
			respondInternal(w, "Session lookup failed")
			return
		}
		if sess == nil {
			respondUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects non-admin sessions. Must run after requireSession.
// The status stays 401 for frontend compatibility; the FORBIDDEN code tells
// an authenticated caller the problem is the role, not the session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil || !sess.IsAdmin() {
			respondError(w, http.StatusUnauthorized, model.ErrForbidden, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCSRF enforces the double-submit check on state-changing methods.
// A failed check gets a fresh token so the client can retry.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if !s.csrf.Validate(r) {
			if _, err := s.csrf.Issue(w); err != nil {
				s.logger.Error("csrf token issue failed", "error", err)
			}
			respondError(w, http.StatusForbidden, model.ErrCSRF, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

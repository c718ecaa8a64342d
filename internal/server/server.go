// Package server is the HTTP layer: the JSON API, its middleware, and the
// wiring between auth, storage, uploads, and notifications.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/config"
	"github.com/me/madrasa/internal/files"
	"github.com/me/madrasa/internal/notify"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/internal/ui"
)

// Server is the course platform HTTP server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	auth      *auth.Authenticator
	sessions  *auth.SessionManager
	csrf      *auth.CSRFGuard
	files     files.Store
	notifier  notify.Notifier
	validate  *validator.Validate
	limiter   *rateLimiter
	ui        *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithNotifier sets the notifier for homework events. Defaults to a no-op.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Server) {
		s.notifier = n
	}
}

// New creates a new Server with all routes registered.
// fs may be nil if file uploads are not needed (e.g. in tests that never
// touch /api/homework/submit).
func New(cfg config.ServerConfig, st store.Store, fs files.Store, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		auth:      auth.NewAuthenticator(st, logger),
		sessions:  auth.NewSessionManager(st, cfg.SecureCookies),
		csrf:      auth.NewCSRFGuard(cfg.SecureCookies),
		files:     fs,
		notifier:  notify.Noop{},
		validate:  validator.New(),
	}
	if cfg.LoginRateLimit > 0 {
		s.limiter = newRateLimiter(cfg.LoginRateLimit, time.Minute)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ui = ui.New(st, s.sessions, s.auth, logger, ui.Config{Secure: cfg.SecureCookies})

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// HTML pages
	s.ui.RegisterRoutes(r)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Auth endpoints carry no session yet; login and register are
		// rate-limited instead of CSRF-checked.
		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimit).Post("/login", s.handleLogin)
			r.With(s.rateLimit).Post("/register", s.handleRegister)
			r.With(s.requireCSRF).Post("/logout", s.handleLogout)
			r.Get("/csrf", s.handleCSRFToken)
		})

		// Everything else needs a session, and mutations need a CSRF token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Use(s.requireCSRF)

			r.Route("/lessons", func(r chi.Router) {
				r.Get("/", s.handleListLessons)
				r.With(s.requireAdmin).Post("/", s.handleCreateLesson)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetLesson)
					r.With(s.requireAdmin).Put("/", s.handleUpdateLesson)
					r.With(s.requireAdmin).Delete("/", s.handleDeleteLesson)
				})
			})

			r.Route("/homework", func(r chi.Router) {
				r.Get("/", s.handleListHomework)
				r.Post("/", s.handleCreateHomework)
				r.Post("/submit", s.handleSubmitHomework)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetHomework)
					r.Put("/", s.handleUpdateHomework)
					r.With(s.requireAdmin).Delete("/", s.handleDeleteHomework)
					r.With(s.requireAdmin).Post("/feedback", s.handleHomeworkFeedback)
				})
			})

			r.Route("/students", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleListStudents)
				r.Post("/", s.handleCreateStudent)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetStudent)
					r.Put("/", s.handleUpdateStudent)
					r.Delete("/", s.handleDeleteStudent)
				})
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", s.handleGetProfile)
				r.Put("/profile", s.handleUpdateProfile)
				r.Put("/password", s.handleChangePassword)
				r.Get("/stats", s.handleUserStats)
			})
		})
	})
}

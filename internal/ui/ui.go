// Package ui serves the HTML pages: login, the student dashboard, and the
// admin panel. The JSON API lives in internal/server; these pages are the
// minimal browser surface on top of the same store and sessions.
package ui

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	store    store.Store
	sessions *auth.SessionManager
	auth     *auth.Authenticator
	logger   *slog.Logger
	secure   bool
}

// Config holds UI configuration.
type Config struct {
	Secure bool // Use secure cookies for HTTPS
}

// New creates a new UI handler.
func New(st store.Store, sessions *auth.SessionManager, authn *auth.Authenticator, logger *slog.Logger, cfg Config) *UI {
	return &UI{
		store:    st,
		sessions: sessions,
		auth:     authn,
		logger:   logger.With("component", "ui"),
		secure:   cfg.Secure,
	}
}

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext retrieves the session from the request context.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionContextKey).(*model.Session)
	return sess
}

// AuthMiddleware validates the session and adds it to the request context.
// Without a valid session the browser is sent to the login page.
func (ui *UI) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := ui.sessions.FromRequest(r)
		if err != nil {
			ui.logger.Error("session lookup failed", "error", err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if sess == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware sends non-admins back to the login page.
// Must be used after AuthMiddleware.
func (ui *UI) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil || !sess.IsAdmin() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleIndex routes the browser by session state.
func (ui *UI) HandleIndex(w http.ResponseWriter, r *http.Request) {
	sess, _ := ui.sessions.FromRequest(r)
	switch {
	case sess == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case sess.IsAdmin():
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

// HandleLogin renders the login page.
func (ui *UI) HandleLogin(w http.ResponseWriter, r *http.Request) {
	// Already logged in: straight to the right page.
	if sess, _ := ui.sessions.FromRequest(r); sess != nil {
		if sess.IsAdmin() {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
		} else {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		}
		return
	}

	ui.render(w, "login", map[string]any{
		"Title": "Вход",
		"Error": r.URL.Query().Get("error"),
	})
}

// HandleLoginPost processes the login form.
func (ui *UI) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.loginFailed(w, r, "Неверный формат запроса")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		ui.loginFailed(w, r, "Email и пароль обязательны для заполнения")
		return
	}

	user, err := ui.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		ui.logger.Error("authenticate failed", "error", err)
		ui.loginFailed(w, r, "Произошла ошибка при входе в систему")
		return
	}
	if user == nil {
		ui.loginFailed(w, r, "Неверный email или пароль")
		return
	}

	sess, err := ui.sessions.Create(r.Context(), user)
	if err != nil {
		ui.logger.Error("session create failed", "error", err)
		ui.loginFailed(w, r, "Произошла ошибка при входе в систему")
		return
	}
	ui.sessions.SetCookie(w, sess)

	if user.IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	} else {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func (ui *UI) loginFailed(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, "/login?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// HandleLogout kills the session server-side and clears the cookie.
func (ui *UI) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := ui.sessions.Delete(r.Context(), cookie.Value); err != nil {
			ui.logger.Warn("session delete failed", "error", err)
		}
	}
	ui.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleDashboard shows the student their lessons and submissions.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	lessons, err := ui.store.ListLessons(r.Context())
	if err != nil {
		ui.logger.Error("list lessons failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	now := time.Now()
	visible := make([]*model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.VisibleAt(now) {
			visible = append(visible, l)
		}
	}

	homework, err := ui.store.ListHomeworkByStudent(r.Context(), sess.UserID)
	if err != nil {
		ui.logger.Error("list homework failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ui.render(w, "dashboard", map[string]any{
		"Title":    "Личный кабинет",
		"Name":     sess.Name,
		"Lessons":  visible,
		"Homework": homework,
	})
}

// HandleAdmin shows course totals: roster size, lessons, unchecked homework.
func (ui *UI) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	students, err := ui.store.ListUsersByRole(r.Context(), model.RoleStudent)
	if err != nil {
		ui.logger.Error("list students failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	lessons, err := ui.store.ListLessons(r.Context())
	if err != nil {
		ui.logger.Error("list lessons failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	homework, err := ui.store.ListHomework(r.Context())
	if err != nil {
		ui.logger.Error("list homework failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pending := 0
	for _, hw := range homework {
		if hw.Status == model.HomeworkSubmitted {
			pending++
		}
	}

	ui.render(w, "admin", map[string]any{
		"Title":           "Административная панель",
		"Name":            sess.Name,
		"StudentCount":    len(students),
		"LessonCount":     len(lessons),
		"PendingHomework": pending,
	})
}

func (ui *UI) render(w http.ResponseWriter, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, name, data); err != nil {
		ui.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

package ui

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

func testUI(t *testing.T) (*UI, *auth.SessionManager, store.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st := store.NewJSONFileStore(t.TempDir(), logger)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.Seed(context.Background(), st, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sessions := auth.NewSessionManager(st, false)
	u := New(st, sessions, auth.NewAuthenticator(st, logger), logger, Config{})
	return u, sessions, st
}

func testRouter(u *UI) chi.Router {
	r := chi.NewRouter()
	u.RegisterRoutes(r)
	return r
}

func loginCookie(t *testing.T, r chi.Router, email, password string) *http.Cookie {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("login did not set a session cookie (status %d, location %q)",
		w.Code, w.Header().Get("Location"))
	return nil
}

func TestLoginPost_RedirectsByRole(t *testing.T) {
	u, _, _ := testUI(t)
	r := testRouter(u)

	tests := []struct {
		email string
		want  string
	}{
		{"asmajoe18@gmail.com", "/admin"},
		{"asmacheck@gmail.com", "/dashboard"},
	}
	for _, tt := range tests {
		form := url.Values{"email": {tt.email}, "password": {"123asma"}}
		req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusSeeOther {
			t.Errorf("%s: status = %d, want 303", tt.email, w.Code)
		}
		if got := w.Header().Get("Location"); got != tt.want {
			t.Errorf("%s: location = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestLoginPost_BadPassword(t *testing.T) {
	u, _, _ := testUI(t)
	r := testRouter(u)

	form := url.Values{"email": {"asmajoe18@gmail.com"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?error=") {
		t.Errorf("location = %q, want login with error", loc)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			t.Error("failed login must not set a session cookie")
		}
	}
}

func TestDashboard_RequiresSession(t *testing.T) {
	u, _, _ := testUI(t)
	r := testRouter(u)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Errorf("status = %d location = %q, want redirect to /login", w.Code, w.Header().Get("Location"))
	}
}

func TestAdmin_RejectsStudent(t *testing.T) {
	u, _, _ := testUI(t)
	r := testRouter(u)
	cookie := loginCookie(t, r, "asmacheck@gmail.com", "123asma")

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Errorf("status = %d location = %q, want redirect to /login", w.Code, w.Header().Get("Location"))
	}
}

func TestAdmin_RendersCounts(t *testing.T) {
	u, _, _ := testUI(t)
	r := testRouter(u)
	cookie := loginCookie(t, r, "asmajoe18@gmail.com", "123asma")

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Административная панель") {
		t.Errorf("admin page missing heading: %s", body)
	}
}

func TestDashboard_ShowsLessons(t *testing.T) {
	u, _, st := testUI(t)
	r := testRouter(u)

	lesson := &model.Lesson{Title: "Алфавит", Status: model.LessonPublished}
	if err := st.CreateLesson(context.Background(), lesson); err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	cookie := loginCookie(t, r, "asmacheck@gmail.com", "123asma")
	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Алфавит") {
		t.Errorf("dashboard missing published lesson")
	}
}

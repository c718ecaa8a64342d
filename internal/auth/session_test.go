package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    "admin-1",
		Email: "asmajoe18@gmail.com",
		Name:  "Асма",
		Role:  model.RoleAdmin,
	}
}

func newSessionManager(t *testing.T) (*SessionManager, store.Store) {
	t.Helper()
	st := store.NewJSONFileStore(t.TempDir(), testLogger())
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSessionManager(st, false), st
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(sess.ID, "sess_") || len(sess.ID) != len("sess_")+64 {
		t.Errorf("unexpected session id format: %q", sess.ID)
	}
	if got := sess.ExpiresAt.Sub(sess.CreatedAt); got != SessionDuration {
		t.Errorf("lifetime = %v, want %v", got, SessionDuration)
	}

	got, err := sm.Get(ctx, sess.ID)
	if err != nil || got == nil {
		t.Fatalf("get: %v, %+v", err, got)
	}
	if got.UserID != "admin-1" || !got.IsAdmin() {
		t.Errorf("session = %+v", got)
	}
}

func TestSessionExpiry(t *testing.T) {
	sm, st := newSessionManager(t)
	ctx := context.Background()

	// A well-formed but expired session reads as absent.
	expired := &model.Session{
		ID:        "sess_expired",
		UserID:    "student-1",
		Role:      model.RoleStudent,
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	if err := st.CreateSession(ctx, expired); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := sm.Get(ctx, "sess_expired")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expired session should read as nil, got %+v", got)
	}

	// And it was deleted on sight.
	raw, err := st.GetSession(ctx, "sess_expired")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if raw != nil {
		t.Error("expired session not removed from store")
	}
}

func TestSessionFromRequest(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := httptest.NewRequest("GET", "/api/lessons", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.ID})
	got, err := sm.FromRequest(r)
	if err != nil || got == nil {
		t.Fatalf("from request: %v, %+v", err, got)
	}

	// No cookie reads as unauthenticated, not an error.
	bare := httptest.NewRequest("GET", "/api/lessons", nil)
	got, err = sm.FromRequest(bare)
	if err != nil {
		t.Fatalf("from request: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil without cookie, got %+v", got)
	}

	// A forged cookie value grants nothing without a stored row.
	forged := httptest.NewRequest("GET", "/api/lessons", nil)
	forged.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess_" + strings.Repeat("ab", 32)})
	got, err = sm.FromRequest(forged)
	if err != nil {
		t.Fatalf("from request: %v", err)
	}
	if got != nil {
		t.Errorf("forged cookie should read as nil, got %+v", got)
	}
}

func TestSessionRevocation(t *testing.T) {
	sm, _ := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Create(ctx, testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sm.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Replaying the old cookie after logout grants nothing.
	got, err := sm.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("revoked session should read as nil, got %+v", got)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	sm, _ := newSessionManager(t)
	sess, err := sm.Create(context.Background(), testUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := httptest.NewRecorder()
	sm.SetCookie(w, sess)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != sess.ID {
		t.Errorf("cookie = %+v", c)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be httpOnly")
	}
	if c.MaxAge != int(SessionDuration.Seconds()) {
		t.Errorf("max-age = %d, want %d", c.MaxAge, int(SessionDuration.Seconds()))
	}
}

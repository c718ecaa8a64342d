package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

const (
	// SessionCookieName is the name of the session cookie. The value is an
	// opaque server-side session ID, never user claims.
	SessionCookieName = "session"
	// SessionDuration is the session lifetime.
	SessionDuration = 7 * 24 * time.Hour
)

// SessionManager handles session creation, lookup, and revocation.
type SessionManager struct {
	store  store.Store
	secure bool
}

// NewSessionManager creates a session manager. secure controls the Secure
// cookie attribute.
func NewSessionManager(st store.Store, secure bool) *SessionManager {
	return &SessionManager{store: st, secure: secure}
}

// Create starts a new session for an authenticated user and persists it.
func (sm *SessionManager) Create(ctx context.Context, user *model.User) (*model.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		ID:        id,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionDuration),
	}
	if err := sm.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by ID. Unknown and expired sessions both read as
// nil; expired rows are deleted on sight.
func (sm *SessionManager) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := sm.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	if sess.IsExpired() {
		_ = sm.store.DeleteSession(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// FromRequest extracts the session from the request cookie.
// No cookie, unknown ID, and expired session all read as (nil, nil).
func (sm *SessionManager) FromRequest(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, nil
	}
	return sm.Get(r.Context(), cookie.Value)
}

// Delete revokes a session server-side; replaying the old cookie grants
// nothing.
func (sm *SessionManager) Delete(ctx context.Context, id string) error {
	return sm.store.DeleteSession(ctx, id)
}

// DeleteExpired sweeps expired sessions from the store.
func (sm *SessionManager) DeleteExpired(ctx context.Context) (int64, error) {
	return sm.store.DeleteExpiredSessions(ctx)
}

// RevokeUser drops every session belonging to a user (password change,
// account removal).
func (sm *SessionManager) RevokeUser(ctx context.Context, userID string) (int64, error) {
	return sm.store.DeleteSessionsByUserID(ctx, userID)
}

// SetCookie sets the session cookie on the response.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionDuration.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateSessionID generates a cryptographically secure random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + hex.EncodeToString(b), nil
}

// Package auth implements credential checking, server-side sessions, and the
// double-submit CSRF guard.
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

// dummyHash is compared against when the email is unknown, so a lookup miss
// costs the same as a password mismatch and the two cases stay
// indistinguishable from the outside.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("madrasa-no-such-user"), bcrypt.DefaultCost)

// Authenticator checks credentials against the user store.
type Authenticator struct {
	store  store.Store
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator backed by the given store.
func NewAuthenticator(st store.Store, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:  st,
		logger: logger.With("component", "auth"),
	}
}

// Authenticate looks up the user by exact email and verifies the password
// against the stored bcrypt hash. Unknown email and wrong password both
// return (nil, nil).
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Warn("password mismatch", "user", user.ID)
		return nil, nil
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

package auth

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seededStore(t *testing.T) store.Store {
	t.Helper()
	st := store.NewJSONFileStore(t.TempDir(), testLogger())
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.Seed(context.Background(), st, testLogger()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st
}

func TestAuthenticate(t *testing.T) {
	st := seededStore(t)
	a := NewAuthenticator(st, testLogger())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantID   string
	}{
		{"admin", "asmajoe18@gmail.com", "123asma", "admin-1"},
		{"student", "asmacheck@gmail.com", "123asma", "student-1"},
		{"wrong password", "asmajoe18@gmail.com", "wrong", ""},
		{"unknown email", "nobody@example.com", "123asma", ""},
		{"empty password", "asmajoe18@gmail.com", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := a.Authenticate(ctx, tt.email, tt.password)
			if err != nil {
				t.Fatalf("authenticate: %v", err)
			}
			if tt.wantID == "" {
				if user != nil {
					t.Errorf("expected nil, got %+v", user)
				}
				return
			}
			if user == nil || user.ID != tt.wantID {
				t.Errorf("user = %+v, want id %q", user, tt.wantID)
			}
		})
	}
}

func TestAuthenticate_AdminRole(t *testing.T) {
	st := seededStore(t)
	a := NewAuthenticator(st, testLogger())

	user, err := a.Authenticate(context.Background(), "asmajoe18@gmail.com", "123asma")
	if err != nil || user == nil {
		t.Fatalf("authenticate: %v, %+v", err, user)
	}
	if user.Role != model.RoleAdmin || !user.IsAdmin() {
		t.Errorf("role = %q, want admin", user.Role)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "secret123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

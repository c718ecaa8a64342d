package cli

import (
	"context"
	"testing"
	"time"

	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/logging"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

func runCLI(t *testing.T, dataDir string, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(append(args, "--store", "jsonfile", "--data-dir", dataDir, "--log-level", "error"))
	return root.Execute()
}

func openTestStore(t *testing.T, dataDir string) *store.JSONFileStore {
	t.Helper()
	st := store.NewJSONFileStore(dataDir, logging.New(logging.ParseLevel("error"), "text"))
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestUsersAdd(t *testing.T) {
	dir := t.TempDir()

	err := runCLI(t, dir, "users", "add",
		"--name", "Amina", "--email", "amina@example.com",
		"--password", "secret123", "--telegram", "@amina")
	if err != nil {
		t.Fatalf("users add: %v", err)
	}

	st := openTestStore(t, dir)
	user, err := st.GetUserByEmail(context.Background(), "amina@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user == nil {
		t.Fatal("user not created")
	}
	if user.Role != model.RoleStudent {
		t.Errorf("role = %q, want student", user.Role)
	}
	if !auth.CheckPassword(user.PasswordHash, "secret123") {
		t.Error("stored hash does not match the password")
	}
}

func TestUsersAdd_MissingFlags(t *testing.T) {
	dir := t.TempDir()
	if err := runCLI(t, dir, "users", "add", "--name", "Amina"); err == nil {
		t.Fatal("expected error for missing --email and --password")
	}
}

func TestUsersResetPassword(t *testing.T) {
	dir := t.TempDir()
	if err := runCLI(t, dir, "users", "add",
		"--name", "Amina", "--email", "amina@example.com", "--password", "oldpass1"); err != nil {
		t.Fatalf("users add: %v", err)
	}

	st := openTestStore(t, dir)
	user, err := st.GetUserByEmail(context.Background(), "amina@example.com")
	if err != nil || user == nil {
		t.Fatalf("lookup: %v %v", user, err)
	}
	sess := &model.Session{
		ID:        "sess_test",
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := runCLI(t, dir, "users", "reset-password", "amina@example.com",
		"--password", "newpass1"); err != nil {
		t.Fatalf("reset-password: %v", err)
	}

	st = openTestStore(t, dir)
	user, err = st.GetUserByEmail(context.Background(), "amina@example.com")
	if err != nil || user == nil {
		t.Fatalf("lookup after reset: %v %v", user, err)
	}
	if !auth.CheckPassword(user.PasswordHash, "newpass1") {
		t.Error("new password not accepted after reset")
	}
	if auth.CheckPassword(user.PasswordHash, "oldpass1") {
		t.Error("old password still accepted after reset")
	}
	got, err := st.GetSession(context.Background(), "sess_test")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("session survived password reset")
	}
}

func TestSessionsCleanup(t *testing.T) {
	dir := t.TempDir()

	st := openTestStore(t, dir)
	expired := &model.Session{
		ID:        "sess_expired",
		UserID:    "admin-1",
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}
	live := &model.Session{
		ID:        "sess_live",
		UserID:    "admin-1",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	for _, s := range []*model.Session{expired, live} {
		if err := st.CreateSession(context.Background(), s); err != nil {
			t.Fatalf("create session %s: %v", s.ID, err)
		}
	}

	if err := runCLI(t, dir, "sessions", "cleanup"); err != nil {
		t.Fatalf("sessions cleanup: %v", err)
	}

	st = openTestStore(t, dir)
	if got, _ := st.GetSession(context.Background(), "sess_expired"); got != nil {
		t.Error("expired session not removed")
	}
	if got, _ := st.GetSession(context.Background(), "sess_live"); got == nil {
		t.Error("live session removed")
	}
}

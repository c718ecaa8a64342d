package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/me/madrasa/pkg/model"
)

// seedAccounts are the two fixed accounts every fresh installation starts
// with: the course admin and a test student used for manual checks.
var seedAccounts = []struct {
	id       string
	email    string
	name     string
	role     model.UserRole
	password string
}{
	{"admin-1", "asmajoe18@gmail.com", "Асма", model.RoleAdmin, "123asma"},
	{"student-1", "asmacheck@gmail.com", "Тестовая Ученица", model.RoleStudent, "123asma"},
}

// Seed creates the fixed accounts if the users collection is empty.
// Passwords are stored bcrypt-hashed, never in plaintext.
func Seed(ctx context.Context, st Store, logger *slog.Logger) error {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	now := time.Now()
	for _, acc := range seedAccounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		u := &model.User{
			ID:           acc.id,
			Email:        acc.email,
			Name:         acc.name,
			Role:         acc.role,
			PasswordHash: string(hash),
			Status:       model.UserActive,
			LastActive:   now,
			CreatedAt:    now,
		}
		if err := st.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", acc.email, err)
		}
		logger.Info("seeded account", "id", acc.id, "role", acc.role)
	}
	return nil
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		newUsersListCmd(),
		newUsersAddCmd(),
		newUsersResetPasswordCmd(),
	)
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Println("No accounts found.")
				return nil
			}

			fmt.Printf("%-12s  %-8s  %-28s  %-20s  %s\n", "ID", "ROLE", "EMAIL", "NAME", "STATUS")
			for _, u := range users {
				fmt.Printf("%-12s  %-8s  %-28s  %-20s  %s\n", u.ID, u.Role, u.Email, u.Name, u.Status)
			}
			return nil
		},
	}
}

func newUsersAddCmd() *cobra.Command {
	var (
		name     string
		email    string
		password string
		role     string
		telegram string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" || password == "" {
				return fmt.Errorf("--name, --email and --password are required")
			}
			if role != string(model.RoleAdmin) && role != string(model.RoleStudent) {
				return fmt.Errorf("role must be admin or student")
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			now := time.Now()
			user := &model.User{
				Name:             name,
				Email:            email,
				Role:             model.UserRole(role),
				PasswordHash:     hash,
				TelegramUsername: telegram,
				Status:           model.UserActive,
				LastActive:       now,
				CreatedAt:        now,
			}
			if err := st.CreateUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Printf("Created %s (%s)\n", user.ID, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", "student", "Role (admin, student)")
	cmd.Flags().StringVar(&telegram, "telegram", "", "Telegram username")
	return cmd
}

func newUsersResetPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Reset an account password and revoke its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.GetUserByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("lookup user: %w", err)
			}
			if user == nil {
				return fmt.Errorf("no account with email %s", args[0])
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if _, err := st.UpdateUser(cmd.Context(), user.ID, store.UserPatch{PasswordHash: &hash}); err != nil {
				return fmt.Errorf("update password: %w", err)
			}

			// An old password may be compromised; its sessions go with it.
			revoked, err := st.DeleteSessionsByUserID(cmd.Context(), user.ID)
			if err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			fmt.Printf("Password reset for %s (%d sessions revoked)\n", user.ID, revoked)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password")
	return cmd
}

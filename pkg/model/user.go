package model

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleAdmin runs the course: manages lessons, students, and homework review.
	RoleAdmin UserRole = "admin"
	// RoleStudent is an enrolled course participant.
	RoleStudent UserRole = "student"
)

// UserStatus marks whether a student account is active on the roster.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an account on the platform. Student accounts double as roster
// entries: the telegram/progress/last-active fields carry meaning only for
// them.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             UserRole   `json:"role"`
	PasswordHash     string     `json:"-"`
	TelegramUsername string     `json:"telegramUsername,omitempty"`
	Progress         int        `json:"progress"`
	LastActive       time.Time  `json:"lastActive"`
	Status           UserStatus `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicUser is the user view exposed over the API. PasswordHash is already
// json:"-", but auth responses return this struct so the contract does not
// hang on a single struct tag.
type PublicUser struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Role             UserRole `json:"role"`
	TelegramUsername string   `json:"telegramUsername,omitempty"`
}

// Public converts a User to its API representation.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		TelegramUsername: u.TelegramUsername,
	}
}

// Package store defines the persistence layer for the course platform and
// ships two implementations: a JSON-file store for small single-host
// deployments, and a SQLite store for installations that want a
// transactional datastore.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/me/madrasa/pkg/model"
)

// ErrEmailExists is returned by CreateUser when the email is already taken.
// Email uniqueness is a store invariant, not a handler courtesy.
var ErrEmailExists = errors.New("email already registered")

// Store is the persistence layer for platform entities.
//
// Lookups return (nil, nil) when the entity does not exist. Create methods
// assign IDs: integer max+1 for lessons and homework, "student-N" for users
// without a preset ID. Deletes report whether a row was removed.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	ListUsersByRole(ctx context.Context, role model.UserRole) ([]*model.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, id string) (bool, error)

	// Lessons
	CreateLesson(ctx context.Context, l *model.Lesson) error
	GetLesson(ctx context.Context, id int) (*model.Lesson, error)
	ListLessons(ctx context.Context) ([]*model.Lesson, error)
	UpdateLesson(ctx context.Context, id int, patch LessonPatch) (*model.Lesson, error)
	DeleteLesson(ctx context.Context, id int) (bool, error)

	// Homework
	CreateHomework(ctx context.Context, hw *model.Homework) error
	GetHomework(ctx context.Context, id int) (*model.Homework, error)
	ListHomework(ctx context.Context) ([]*model.Homework, error)
	ListHomeworkByStudent(ctx context.Context, studentID string) ([]*model.Homework, error)
	UpdateHomework(ctx context.Context, id int, patch HomeworkPatch) (*model.Homework, error)
	DeleteHomework(ctx context.Context, id int) (bool, error)

	// Sessions
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// UserPatch is a partial user update. Nil fields are left untouched.
type UserPatch struct {
	Email            *string
	Name             *string
	PasswordHash     *string
	TelegramUsername *string
	Progress         *int
	LastActive       *time.Time
	Status           *model.UserStatus
}

// LessonPatch is a partial lesson update. Nil fields are left untouched;
// UpdatedAt is always refreshed.
type LessonPatch struct {
	Title       *string
	Description *string
	VideoURL    *string
	HomeworkURL *string
	Status      *model.LessonStatus
	PublishDate *time.Time
}

// HomeworkPatch is a partial homework update. Nil fields are left untouched.
// Feedback can only be set, never cleared back to null.
type HomeworkPatch struct {
	SubmittedFile *string
	SubmittedDate *time.Time
	Feedback      *string
	Status        *model.HomeworkStatus
}

func (p UserPatch) apply(u *model.User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.TelegramUsername != nil {
		u.TelegramUsername = *p.TelegramUsername
	}
	if p.Progress != nil {
		u.Progress = *p.Progress
	}
	if p.LastActive != nil {
		u.LastActive = *p.LastActive
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
}

func (p LessonPatch) apply(l *model.Lesson, now time.Time) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.VideoURL != nil {
		l.VideoURL = *p.VideoURL
	}
	if p.HomeworkURL != nil {
		l.HomeworkURL = *p.HomeworkURL
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.PublishDate != nil {
		l.PublishDate = *p.PublishDate
	}
	l.UpdatedAt = now
}

func (p HomeworkPatch) apply(hw *model.Homework) {
	if p.SubmittedFile != nil {
		hw.SubmittedFile = *p.SubmittedFile
	}
	if p.SubmittedDate != nil {
		hw.SubmittedDate = *p.SubmittedDate
	}
	if p.Feedback != nil {
		fb := *p.Feedback
		hw.Feedback = &fb
	}
	if p.Status != nil {
		hw.Status = *p.Status
	}
}

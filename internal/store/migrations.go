package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all platform tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		email             TEXT NOT NULL,
		name              TEXT NOT NULL,
		role              TEXT NOT NULL DEFAULT 'student',
		password_hash     TEXT NOT NULL DEFAULT '',
		telegram_username TEXT NOT NULL DEFAULT '',
		progress          INTEGER NOT NULL DEFAULT 0,
		last_active       TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'active',
		created_at        TEXT NOT NULL
	)`,
	// Partial: roster-only students may be created without an email.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email) WHERE email != ''`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,

	`CREATE TABLE IF NOT EXISTS lessons (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		video_url    TEXT NOT NULL DEFAULT '',
		homework_url TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'draft',
		publish_date TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_lessons_status ON lessons(status)`,

	`CREATE TABLE IF NOT EXISTS homework (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id     TEXT NOT NULL,
		lesson_id      INTEGER NOT NULL,
		submitted_file TEXT NOT NULL DEFAULT '',
		submitted_date TEXT NOT NULL,
		feedback       TEXT,
		status         TEXT NOT NULL DEFAULT 'submitted'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_homework_student_id ON homework(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_homework_lesson_id ON homework(lesson_id)`,
	`CREATE INDEX IF NOT EXISTS idx_homework_status ON homework(status)`,

	// Server-side sessions; the cookie holds only the row ID.
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		email      TEXT NOT NULL,
		name       TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'student',
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

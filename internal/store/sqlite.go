package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/me/madrasa/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// A single connection keeps ":memory:" databases coherent and serializes
	// writers without SQLITE_BUSY handling.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- User operations ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	s.logger.Debug("sql", "op", "insert", "table", "users", "email", u.Email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if u.ID == "" {
		id, err := nextStudentID(ctx, tx)
		if err != nil {
			return fmt.Errorf("assign user id: %w", err)
		}
		u.ID = id
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.LastActive.IsZero() {
		u.LastActive = u.CreatedAt
	}
	if u.Status == "" {
		u.Status = model.UserActive
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, telegram_username, progress, last_active, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.TelegramUsername,
		u.Progress, u.LastActive.Format(time.RFC3339Nano), string(u.Status),
		u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_users_email") || strings.Contains(err.Error(), "users.email") {
			return ErrEmailExists
		}
		return err
	}
	return tx.Commit()
}

// nextStudentID assigns "student-N" with N one past the highest suffix seen.
func nextStudentID(ctx context.Context, tx *sql.Tx) (string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE id LIKE 'student-%'`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "student-")); err == nil && n > maxN {
			maxN = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("student-%d", maxN+1), nil
}

const userColumns = `id, email, name, role, password_hash, telegram_username, progress, last_active, status, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var role, status, lastActive, createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash,
		&u.TelegramUsername, &u.Progress, &lastActive, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.UserRole(role)
	u.Status = model.UserStatus(status)
	u.LastActive, _ = time.Parse(time.RFC3339Nano, lastActive)
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.logger.Debug("sql", "op", "select", "table", "users", "id", id)

	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.logger.Debug("sql", "op", "select_by_email", "table", "users")

	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.listUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
}

func (s *SQLiteStore) ListUsersByRole(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	return s.listUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at`, string(role))
}

func (s *SQLiteStore) listUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	s.logger.Debug("sql", "op", "list", "table", "users")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	s.logger.Debug("sql", "op", "update", "table", "users", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	patch.apply(u)

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, password_hash = ?, telegram_username = ?,
		 progress = ?, last_active = ?, status = ? WHERE id = ?`,
		u.Email, u.Name, u.PasswordHash, u.TelegramUsername,
		u.Progress, u.LastActive.Format(time.RFC3339Nano), string(u.Status), id,
	)
	if err != nil {
		if strings.Contains(err.Error(), "idx_users_email") || strings.Contains(err.Error(), "users.email") {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return u, tx.Commit()
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.logger.Debug("sql", "op", "delete", "table", "users", "id", id)

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Lesson operations ---

func (s *SQLiteStore) CreateLesson(ctx context.Context, l *model.Lesson) error {
	s.logger.Debug("sql", "op", "insert", "table", "lessons", "title", l.Title)

	now := time.Now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	if l.PublishDate.IsZero() {
		l.PublishDate = now
	}
	if l.Status == "" {
		l.Status = model.LessonDraft
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (title, description, video_url, homework_url, status, publish_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Title, l.Description, l.VideoURL, l.HomeworkURL, string(l.Status),
		l.PublishDate.Format(time.RFC3339Nano),
		l.CreatedAt.Format(time.RFC3339Nano), l.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = int(id)
	return nil
}

const lessonColumns = `id, title, description, video_url, homework_url, status, publish_date, created_at, updated_at`

func scanLesson(row interface{ Scan(...any) error }) (*model.Lesson, error) {
	var l model.Lesson
	var status, publishDate, createdAt, updatedAt string
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.VideoURL, &l.HomeworkURL,
		&status, &publishDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = model.LessonStatus(status)
	l.PublishDate, _ = time.Parse(time.RFC3339Nano, publishDate)
	l.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &l, nil
}

func (s *SQLiteStore) GetLesson(ctx context.Context, id int) (*model.Lesson, error) {
	s.logger.Debug("sql", "op", "select", "table", "lessons", "id", id)

	l, err := scanLesson(s.db.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (s *SQLiteStore) ListLessons(ctx context.Context) ([]*model.Lesson, error) {
	s.logger.Debug("sql", "op", "list", "table", "lessons")

	rows, err := s.db.QueryContext(ctx, `SELECT `+lessonColumns+` FROM lessons ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lessons []*model.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

func (s *SQLiteStore) UpdateLesson(ctx context.Context, id int, patch LessonPatch) (*model.Lesson, error) {
	s.logger.Debug("sql", "op", "update", "table", "lessons", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := scanLesson(tx.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	patch.apply(l, time.Now())

	_, err = tx.ExecContext(ctx,
		`UPDATE lessons SET title = ?, description = ?, video_url = ?, homework_url = ?,
		 status = ?, publish_date = ?, updated_at = ? WHERE id = ?`,
		l.Title, l.Description, l.VideoURL, l.HomeworkURL, string(l.Status),
		l.PublishDate.Format(time.RFC3339Nano), l.UpdatedAt.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return nil, err
	}
	return l, tx.Commit()
}

func (s *SQLiteStore) DeleteLesson(ctx context.Context, id int) (bool, error) {
	s.logger.Debug("sql", "op", "delete", "table", "lessons", "id", id)

	res, err := s.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Homework operations ---

func (s *SQLiteStore) CreateHomework(ctx context.Context, hw *model.Homework) error {
	s.logger.Debug("sql", "op", "insert", "table", "homework", "student", hw.StudentID, "lesson", hw.LessonID)

	if hw.SubmittedDate.IsZero() {
		hw.SubmittedDate = time.Now()
	}
	if hw.Status == "" {
		hw.Status = model.HomeworkSubmitted
	}

	var feedback sql.NullString
	if hw.Feedback != nil {
		feedback = sql.NullString{String: *hw.Feedback, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO homework (student_id, lesson_id, submitted_file, submitted_date, feedback, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		hw.StudentID, hw.LessonID, hw.SubmittedFile,
		hw.SubmittedDate.Format(time.RFC3339Nano), feedback, string(hw.Status),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	hw.ID = int(id)
	return nil
}

const homeworkColumns = `id, student_id, lesson_id, submitted_file, submitted_date, feedback, status`

func scanHomework(row interface{ Scan(...any) error }) (*model.Homework, error) {
	var hw model.Homework
	var submittedDate, status string
	var feedback sql.NullString
	err := row.Scan(&hw.ID, &hw.StudentID, &hw.LessonID, &hw.SubmittedFile,
		&submittedDate, &feedback, &status)
	if err != nil {
		return nil, err
	}
	hw.SubmittedDate, _ = time.Parse(time.RFC3339Nano, submittedDate)
	hw.Status = model.HomeworkStatus(status)
	if feedback.Valid {
		hw.Feedback = &feedback.String
	}
	return &hw, nil
}

func (s *SQLiteStore) GetHomework(ctx context.Context, id int) (*model.Homework, error) {
	s.logger.Debug("sql", "op", "select", "table", "homework", "id", id)

	hw, err := scanHomework(s.db.QueryRowContext(ctx,
		`SELECT `+homeworkColumns+` FROM homework WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return hw, err
}

func (s *SQLiteStore) ListHomework(ctx context.Context) ([]*model.Homework, error) {
	return s.listHomework(ctx, `SELECT `+homeworkColumns+` FROM homework ORDER BY id`)
}

func (s *SQLiteStore) ListHomeworkByStudent(ctx context.Context, studentID string) ([]*model.Homework, error) {
	return s.listHomework(ctx,
		`SELECT `+homeworkColumns+` FROM homework WHERE student_id = ? ORDER BY id`, studentID)
}

func (s *SQLiteStore) listHomework(ctx context.Context, query string, args ...any) ([]*model.Homework, error) {
	s.logger.Debug("sql", "op", "list", "table", "homework")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*model.Homework
	for rows.Next() {
		hw, err := scanHomework(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, hw)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) UpdateHomework(ctx context.Context, id int, patch HomeworkPatch) (*model.Homework, error) {
	s.logger.Debug("sql", "op", "update", "table", "homework", "id", id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	hw, err := scanHomework(tx.QueryRowContext(ctx,
		`SELECT `+homeworkColumns+` FROM homework WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	patch.apply(hw)

	var feedback sql.NullString
	if hw.Feedback != nil {
		feedback = sql.NullString{String: *hw.Feedback, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE homework SET submitted_file = ?, submitted_date = ?, feedback = ?, status = ? WHERE id = ?`,
		hw.SubmittedFile, hw.SubmittedDate.Format(time.RFC3339Nano), feedback, string(hw.Status), id,
	)
	if err != nil {
		return nil, err
	}
	return hw, tx.Commit()
}

func (s *SQLiteStore) DeleteHomework(ctx context.Context, id int) (bool, error) {
	s.logger.Debug("sql", "op", "delete", "table", "homework", "id", id)

	res, err := s.db.ExecContext(ctx, `DELETE FROM homework WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// --- Session operations ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "user", sess.UserID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, name, role, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Email, sess.Name, string(sess.Role),
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions")

	var sess model.Session
	var role string
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, email, name, role, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.UserID, &sess.Email, &sess.Name, &role, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.Role = model.UserRole(role)
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "sessions")

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "delete_expired", "table", "sessions")

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	s.logger.Debug("sql", "op", "delete_by_user", "table", "sessions", "user", userID)

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

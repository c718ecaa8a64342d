package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/me/madrasa/pkg/model"
)

// JSONFileStore implements Store over four JSON array files, one per
// collection, rewritten wholesale on every mutation. A per-collection mutex
// serializes read-modify-write cycles so concurrent mutations cannot clobber
// each other, and writes go through a temp file + rename so a crash mid-write
// cannot corrupt the collection.
//
// Sessions live in sessions.json like the other collections, so logins
// survive restarts and the maintenance CLI sees the same session state as
// the server.
type JSONFileStore struct {
	dir    string
	logger *slog.Logger

	usersMu    sync.RWMutex
	lessonsMu  sync.RWMutex
	homeworkMu sync.RWMutex
	sessMu     sync.RWMutex
}

// NewJSONFileStore creates a store rooted at dir. Migrate creates the
// directory and seeds empty collection files.
func NewJSONFileStore(dir string, logger *slog.Logger) *JSONFileStore {
	return &JSONFileStore{
		dir:    dir,
		logger: logger.With("component", "store"),
	}
}

// Close is a no-op; every mutation is flushed before its call returns.
func (s *JSONFileStore) Close() error {
	return nil
}

// Migrate creates the data directory and empty collection files.
func (s *JSONFileStore) Migrate(ctx context.Context) error {
	s.logger.Debug("json", "op", "migrate", "dir", s.dir)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", s.dir, err)
	}
	for _, name := range []string{"users.json", "lessons.json", "homework.json", "sessions.json"} {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeFileAtomic(path, []byte("[]\n")); err != nil {
				return fmt.Errorf("init %s: %w", name, err)
			}
		}
	}
	return nil
}

func (s *JSONFileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readCollection loads a full collection file. A missing file reads as an
// empty collection.
func readCollection[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return items, nil
}

// writeCollection rewrites a full collection file atomically.
func writeCollection[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes via a temp file in the same directory and renames
// it over the target, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// --- User operations ---

// storedUser is the on-disk user record. model.User hides PasswordHash from
// its JSON form (`json:"-"`), which is right for API responses but would
// drop the hash on persistence; the wrapper carries it explicitly.
type storedUser struct {
	*model.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

// readUsers loads users.json. Callers hold usersMu.
func (s *JSONFileStore) readUsers() ([]*model.User, error) {
	stored, err := readCollection[storedUser](s.path("users.json"))
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(stored))
	for _, su := range stored {
		u := su.User
		if u == nil {
			u = &model.User{}
		}
		u.PasswordHash = su.PasswordHash
		users = append(users, u)
	}
	return users, nil
}

// writeUsers rewrites users.json. Callers hold usersMu.
func (s *JSONFileStore) writeUsers(users []*model.User) error {
	stored := make([]storedUser, len(users))
	for i, u := range users {
		stored[i] = storedUser{User: u, PasswordHash: u.PasswordHash}
	}
	return writeCollection(s.path("users.json"), stored)
}

func (s *JSONFileStore) CreateUser(ctx context.Context, u *model.User) error {
	s.logger.Debug("json", "op", "add", "collection", "users", "email", u.Email)

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}

	// Roster-only students may have no email; uniqueness applies to real ones.
	if u.Email != "" {
		for _, existing := range users {
			if existing.Email == u.Email {
				return ErrEmailExists
			}
		}
	}

	if u.ID == "" {
		maxN := 0
		for _, existing := range users {
			if n, err := strconv.Atoi(strings.TrimPrefix(existing.ID, "student-")); err == nil && n > maxN {
				maxN = n
			}
		}
		u.ID = fmt.Sprintf("student-%d", maxN+1)
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

	users = append(users, u)
	return s.writeUsers(users)
}

func (s *JSONFileStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	return s.readUsers()
}

func (s *JSONFileStore) ListUsersByRole(ctx context.Context, role model.UserRole) ([]*model.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	var filtered []*model.User
	for _, u := range users {
		if u.Role == role {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

func (s *JSONFileStore) UpdateUser(ctx context.Context, id string, patch UserPatch) (*model.User, error) {
	s.logger.Debug("json", "op", "update", "collection", "users", "id", id)

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID != id {
			continue
		}
		if patch.Email != nil && *patch.Email != "" && *patch.Email != u.Email {
			for _, other := range users {
				if other.ID != id && other.Email == *patch.Email {
					return nil, ErrEmailExists
				}
			}
		}
		patch.apply(u)
		if err := s.writeUsers(users); err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, nil
}

func (s *JSONFileStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	s.logger.Debug("json", "op", "delete", "collection", "users", "id", id)

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return false, err
	}
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return false, nil
	}
	return true, s.writeUsers(kept)
}

// --- Lesson operations ---

func (s *JSONFileStore) CreateLesson(ctx context.Context, l *model.Lesson) error {
	s.logger.Debug("json", "op", "add", "collection", "lessons", "title", l.Title)

	s.lessonsMu.Lock()
	defer s.lessonsMu.Unlock()

	lessons, err := readCollection[*model.Lesson](s.path("lessons.json"))
	if err != nil {
		return err
	}

	// Next integer ID: max existing + 1, or 1 when empty.
	maxID := 0
	for _, existing := range lessons {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	l.ID = maxID + 1

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

	lessons = append(lessons, l)
	return writeCollection(s.path("lessons.json"), lessons)
}

func (s *JSONFileStore) GetLesson(ctx context.Context, id int) (*model.Lesson, error) {
	s.lessonsMu.RLock()
	defer s.lessonsMu.RUnlock()

	lessons, err := readCollection[*model.Lesson](s.path("lessons.json"))
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) ListLessons(ctx context.Context) ([]*model.Lesson, error) {
	s.lessonsMu.RLock()
	defer s.lessonsMu.RUnlock()
	return readCollection[*model.Lesson](s.path("lessons.json"))
}

func (s *JSONFileStore) UpdateLesson(ctx context.Context, id int, patch LessonPatch) (*model.Lesson, error) {
	s.logger.Debug("json", "op", "update", "collection", "lessons", "id", id)

	s.lessonsMu.Lock()
	defer s.lessonsMu.Unlock()

	lessons, err := readCollection[*model.Lesson](s.path("lessons.json"))
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		if l.ID != id {
			continue
		}
		patch.apply(l, time.Now())
		if err := writeCollection(s.path("lessons.json"), lessons); err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, nil
}

func (s *JSONFileStore) DeleteLesson(ctx context.Context, id int) (bool, error) {
	s.logger.Debug("json", "op", "delete", "collection", "lessons", "id", id)

	s.lessonsMu.Lock()
	defer s.lessonsMu.Unlock()

	lessons, err := readCollection[*model.Lesson](s.path("lessons.json"))
	if err != nil {
		return false, err
	}
	kept := lessons[:0]
	for _, l := range lessons {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lessons) {
		return false, nil
	}
	return true, writeCollection(s.path("lessons.json"), kept)
}

// --- Homework operations ---

func (s *JSONFileStore) CreateHomework(ctx context.Context, hw *model.Homework) error {
	s.logger.Debug("json", "op", "add", "collection", "homework", "student", hw.StudentID, "lesson", hw.LessonID)

	s.homeworkMu.Lock()
	defer s.homeworkMu.Unlock()

	items, err := readCollection[*model.Homework](s.path("homework.json"))
	if err != nil {
		return err
	}

	maxID := 0
	for _, existing := range items {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	hw.ID = maxID + 1

	if hw.SubmittedDate.IsZero() {
		hw.SubmittedDate = time.Now()
	}
	if hw.Status == "" {
		hw.Status = model.HomeworkSubmitted
	}

	items = append(items, hw)
	return writeCollection(s.path("homework.json"), items)
}

func (s *JSONFileStore) GetHomework(ctx context.Context, id int) (*model.Homework, error) {
	s.homeworkMu.RLock()
	defer s.homeworkMu.RUnlock()

	items, err := readCollection[*model.Homework](s.path("homework.json"))
	if err != nil {
		return nil, err
	}
	for _, hw := range items {
		if hw.ID == id {
			return hw, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) ListHomework(ctx context.Context) ([]*model.Homework, error) {
	s.homeworkMu.RLock()
	defer s.homeworkMu.RUnlock()
	return readCollection[*model.Homework](s.path("homework.json"))
}

func (s *JSONFileStore) ListHomeworkByStudent(ctx context.Context, studentID string) ([]*model.Homework, error) {
	s.homeworkMu.RLock()
	defer s.homeworkMu.RUnlock()

	items, err := readCollection[*model.Homework](s.path("homework.json"))
	if err != nil {
		return nil, err
	}
	var filtered []*model.Homework
	for _, hw := range items {
		if hw.StudentID == studentID {
			filtered = append(filtered, hw)
		}
	}
	return filtered, nil
}

func (s *JSONFileStore) UpdateHomework(ctx context.Context, id int, patch HomeworkPatch) (*model.Homework, error) {
	s.logger.Debug("json", "op", "update", "collection", "homework", "id", id)

	s.homeworkMu.Lock()
	defer s.homeworkMu.Unlock()

	items, err := readCollection[*model.Homework](s.path("homework.json"))
	if err != nil {
		return nil, err
	}
	for _, hw := range items {
		if hw.ID != id {
			continue
		}
		patch.apply(hw)
		if err := writeCollection(s.path("homework.json"), items); err != nil {
			return nil, err
		}
		return hw, nil
	}
	return nil, nil
}

func (s *JSONFileStore) DeleteHomework(ctx context.Context, id int) (bool, error) {
	s.logger.Debug("json", "op", "delete", "collection", "homework", "id", id)

	s.homeworkMu.Lock()
	defer s.homeworkMu.Unlock()

	items, err := readCollection[*model.Homework](s.path("homework.json"))
	if err != nil {
		return false, err
	}
	kept := items[:0]
	for _, hw := range items {
		if hw.ID != id {
			kept = append(kept, hw)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	return true, writeCollection(s.path("homework.json"), kept)
}

// --- Session operations ---

func (s *JSONFileStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	items, err := readCollection[*model.Session](s.path("sessions.json"))
	if err != nil {
		return err
	}
	copied := *sess
	items = append(items, &copied)
	return writeCollection(s.path("sessions.json"), items)
}

func (s *JSONFileStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.sessMu.RLock()
	defer s.sessMu.RUnlock()

	items, err := readCollection[*model.Session](s.path("sessions.json"))
	if err != nil {
		return nil, err
	}
	for _, sess := range items {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, nil
}

func (s *JSONFileStore) DeleteSession(ctx context.Context, id string) error {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	items, err := readCollection[*model.Session](s.path("sessions.json"))
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, sess := range items {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return writeCollection(s.path("sessions.json"), kept)
}

func (s *JSONFileStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	items, err := readCollection[*model.Session](s.path("sessions.json"))
	if err != nil {
		return 0, err
	}
	now := time.Now()
	kept := items[:0]
	for _, sess := range items {
		if !now.After(sess.ExpiresAt) {
			kept = append(kept, sess)
		}
	}
	removed := int64(len(items) - len(kept))
	if removed == 0 {
		return 0, nil
	}
	return removed, writeCollection(s.path("sessions.json"), kept)
}

func (s *JSONFileStore) DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	items, err := readCollection[*model.Session](s.path("sessions.json"))
	if err != nil {
		return 0, err
	}
	kept := items[:0]
	for _, sess := range items {
		if sess.UserID != userID {
			kept = append(kept, sess)
		}
	}
	removed := int64(len(items) - len(kept))
	if removed == 0 {
		return 0, nil
	}
	return removed, writeCollection(s.path("sessions.json"), kept)
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

// lessonIDParam parses the {id} route parameter. Returns -1 and responds
// with 400 when it is not a positive integer.
func lessonIDParam(w http.ResponseWriter, r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid lesson id")
		return -1
	}
	return id
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	lessons, err := s.store.ListLessons(r.Context())
	if err != nil {
		s.logger.Error("list lessons failed", "error", err)
		respondInternal(w, "Ошибка при получении списка уроков")
		return
	}

	// Students only see published lessons and scheduled lessons whose date
	// has come.
	if !sess.IsAdmin() {
		now := time.Now()
		visible := make([]*model.Lesson, 0, len(lessons))
		for _, l := range lessons {
			if l.VisibleAt(now) {
				visible = append(visible, l)
			}
		}
		respondJSON(w, http.StatusOK, visible)
		return
	}

	if lessons == nil {
		lessons = []*model.Lesson{}
	}
	respondJSON(w, http.StatusOK, lessons)
}

type createLessonRequest struct {
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description"`
	VideoURL    string             `json:"videoUrl"`
	HomeworkURL string             `json:"homeworkUrl"`
	Status      model.LessonStatus `json:"status" validate:"omitempty,oneof=draft published scheduled"`
	PublishDate time.Time          `json:"publishDate"`
}

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req createLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Название урока обязательно")
		return
	}

	lesson := &model.Lesson{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		HomeworkURL: req.HomeworkURL,
		Status:      req.Status,
		PublishDate: req.PublishDate,
	}
	if err := s.store.CreateLesson(r.Context(), lesson); err != nil {
		s.logger.Error("lesson create failed", "error", err)
		respondInternal(w, "Ошибка при создании урока")
		return
	}
	respondJSON(w, http.StatusCreated, lesson)
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	id := lessonIDParam(w, r)
	if id < 0 {
		return
	}

	lesson, err := s.store.GetLesson(r.Context(), id)
	if err != nil {
		s.logger.Error("lesson get failed", "id", id, "error", err)
		respondInternal(w, "Failed to fetch lesson")
		return
	}
	if lesson == nil {
		respondNotFound(w, "Lesson")
		return
	}

	// Drafts and future-dated lessons stay invisible to students.
	sess := SessionFromContext(r.Context())
	if !sess.IsAdmin() && !lesson.VisibleAt(time.Now()) {
		respondNotFound(w, "Lesson")
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

type updateLessonRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	VideoURL    *string             `json:"videoUrl"`
	HomeworkURL *string             `json:"homeworkUrl"`
	Status      *model.LessonStatus `json:"status" validate:"omitempty,oneof=draft published scheduled"`
	PublishDate *time.Time          `json:"publishDate"`
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	id := lessonIDParam(w, r)
	if id < 0 {
		return
	}

	var req updateLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid lesson status")
		return
	}

	lesson, err := s.store.UpdateLesson(r.Context(), id, store.LessonPatch{
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    req.VideoURL,
		HomeworkURL: req.HomeworkURL,
		Status:      req.Status,
		PublishDate: req.PublishDate,
	})
	if err != nil {
		s.logger.Error("lesson update failed", "id", id, "error", err)
		respondInternal(w, "Failed to update lesson")
		return
	}
	if lesson == nil {
		respondNotFound(w, "Lesson")
		return
	}
	respondJSON(w, http.StatusOK, lesson)
}

func (s *Server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	id := lessonIDParam(w, r)
	if id < 0 {
		return
	}

	ok, err := s.store.DeleteLesson(r.Context(), id)
	if err != nil {
		s.logger.Error("lesson delete failed", "id", id, "error", err)
		respondInternal(w, "Failed to delete lesson")
		return
	}
	if !ok {
		respondNotFound(w, "Lesson")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

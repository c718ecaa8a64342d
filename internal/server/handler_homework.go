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

func homeworkIDParam(w http.ResponseWriter, r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid homework id")
		return -1
	}
	return id
}

func (s *Server) handleListHomework(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	// Admin sees everything, optionally narrowed to unchecked submissions;
	// a student only ever sees their own.
	if sess.IsAdmin() {
		items, err := s.store.ListHomework(r.Context())
		if err != nil {
			s.logger.Error("list homework failed", "error", err)
			respondInternal(w, "Ошибка при получении домашних заданий")
			return
		}
		if r.URL.Query().Get("pending") == "true" {
			pending := make([]*model.Homework, 0, len(items))
			for _, hw := range items {
				if hw.Status == model.HomeworkSubmitted {
					pending = append(pending, hw)
				}
			}
			respondJSON(w, http.StatusOK, pending)
			return
		}
		if items == nil {
			items = []*model.Homework{}
		}
		respondJSON(w, http.StatusOK, items)
		return
	}

	items, err := s.store.ListHomeworkByStudent(r.Context(), sess.UserID)
	if err != nil {
		s.logger.Error("list homework failed", "student", sess.UserID, "error", err)
		respondInternal(w, "Ошибка при получении домашних заданий")
		return
	}
	if items == nil {
		items = []*model.Homework{}
	}
	respondJSON(w, http.StatusOK, items)
}

type createHomeworkRequest struct {
	LessonID      int    `json:"lessonId" validate:"required"`
	SubmittedFile string `json:"submittedFile" validate:"required"`
}

// handleCreateHomework records a submission by reference (the file is
// already hosted elsewhere). File uploads go through handleSubmitHomework.
func (s *Server) handleCreateHomework(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	var req createHomeworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "ID урока и файл обязательны")
		return
	}

	hw := &model.Homework{
		StudentID:     sess.UserID,
		LessonID:      req.LessonID,
		SubmittedFile: req.SubmittedFile,
		SubmittedDate: time.Now(),
		Status:        model.HomeworkSubmitted,
	}
	if err := s.store.CreateHomework(r.Context(), hw); err != nil {
		s.logger.Error("homework create failed", "error", err)
		respondInternal(w, "Failed to save homework")
		return
	}
	respondJSON(w, http.StatusCreated, hw)
}

// handleSubmitHomework accepts a multipart upload (fields: file, lessonId),
// stores the file, records the submission, and notifies the admin.
func (s *Server) handleSubmitHomework(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "File and lessonId are required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "File and lessonId are required")
		return
	}
	defer file.Close()

	lessonID, err := strconv.Atoi(r.FormValue("lessonId"))
	if err != nil || lessonID <= 0 {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "File and lessonId are required")
		return
	}

	lesson, err := s.store.GetLesson(r.Context(), lessonID)
	if err != nil {
		s.logger.Error("lesson get failed", "id", lessonID, "error", err)
		respondInternal(w, "Failed to submit homework")
		return
	}
	if lesson == nil {
		respondNotFound(w, "Lesson")
		return
	}

	if s.files == nil {
		s.logger.Error("file storage not configured")
		respondInternal(w, "Failed to submit homework")
		return
	}
	storedName, err := s.files.Save(r.Context(), header.Filename, file)
	if err != nil {
		s.logger.Error("upload save failed", "file", header.Filename, "error", err)
		respondInternal(w, "Failed to submit homework")
		return
	}

	hw := &model.Homework{
		StudentID:     sess.UserID,
		LessonID:      lessonID,
		SubmittedFile: storedName,
		SubmittedDate: time.Now(),
		Status:        model.HomeworkSubmitted,
	}
	if err := s.store.CreateHomework(r.Context(), hw); err != nil {
		s.logger.Error("homework create failed", "error", err)
		respondInternal(w, "Failed to submit homework")
		return
	}

	if err := s.notifier.HomeworkSubmitted(r.Context(), sess.Name, lesson.Title, header.Filename); err != nil {
		s.logger.Warn("submission notification failed", "error", err)
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"homework": hw,
	})
}

func (s *Server) handleGetHomework(w http.ResponseWriter, r *http.Request) {
	id := homeworkIDParam(w, r)
	if id < 0 {
		return
	}
	sess := SessionFromContext(r.Context())

	hw, err := s.store.GetHomework(r.Context(), id)
	if err != nil {
		s.logger.Error("homework get failed", "id", id, "error", err)
		respondInternal(w, "Failed to fetch homework")
		return
	}
	if hw == nil {
		respondNotFound(w, "Homework")
		return
	}
	if !sess.IsAdmin() && hw.StudentID != sess.UserID {
		respondUnauthorized(w)
		return
	}
	respondJSON(w, http.StatusOK, hw)
}

type updateHomeworkRequest struct {
	// Admin fields
	Feedback *string               `json:"feedback"`
	Status   *model.HomeworkStatus `json:"status" validate:"omitempty,oneof=submitted checked"`
	// Student field
	SubmittedFile *string `json:"submittedFile"`
}

func (s *Server) handleUpdateHomework(w http.ResponseWriter, r *http.Request) {
	id := homeworkIDParam(w, r)
	if id < 0 {
		return
	}
	sess := SessionFromContext(r.Context())

	hw, err := s.store.GetHomework(r.Context(), id)
	if err != nil {
		s.logger.Error("homework get failed", "id", id, "error", err)
		respondInternal(w, "Failed to update homework")
		return
	}
	if hw == nil {
		respondNotFound(w, "Homework")
		return
	}
	if !sess.IsAdmin() && hw.StudentID != sess.UserID {
		respondUnauthorized(w)
		return
	}

	var req updateHomeworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid homework status")
		return
	}

	var patch store.HomeworkPatch
	if sess.IsAdmin() {
		patch.Feedback = req.Feedback
		patch.Status = req.Status
	} else {
		// A student can only replace the file, which puts the submission
		// back into review.
		if req.SubmittedFile == nil {
			respondError(w, http.StatusBadRequest, model.ErrValidation, "submittedFile is required")
			return
		}
		now := time.Now()
		status := model.HomeworkSubmitted
		patch.SubmittedFile = req.SubmittedFile
		patch.SubmittedDate = &now
		patch.Status = &status
	}

	updated, err := s.store.UpdateHomework(r.Context(), id, patch)
	if err != nil {
		s.logger.Error("homework update failed", "id", id, "error", err)
		respondInternal(w, "Failed to update homework")
		return
	}
	if updated == nil {
		respondNotFound(w, "Homework")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteHomework(w http.ResponseWriter, r *http.Request) {
	id := homeworkIDParam(w, r)
	if id < 0 {
		return
	}

	ok, err := s.store.DeleteHomework(r.Context(), id)
	if err != nil {
		s.logger.Error("homework delete failed", "id", id, "error", err)
		respondInternal(w, "Failed to delete homework")
		return
	}
	if !ok {
		respondNotFound(w, "Homework")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type feedbackRequest struct {
	Feedback string `json:"feedback" validate:"required"`
}

// handleHomeworkFeedback reviews a submission: feedback plus status checked,
// then a Telegram ping to the student.
func (s *Server) handleHomeworkFeedback(w http.ResponseWriter, r *http.Request) {
	id := homeworkIDParam(w, r)
	if id < 0 {
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Feedback is required")
		return
	}

	hw, err := s.store.GetHomework(r.Context(), id)
	if err != nil {
		s.logger.Error("homework get failed", "id", id, "error", err)
		respondInternal(w, "Failed to send feedback")
		return
	}
	if hw == nil {
		respondNotFound(w, "Homework")
		return
	}

	status := model.HomeworkChecked
	updated, err := s.store.UpdateHomework(r.Context(), id, store.HomeworkPatch{
		Feedback: &req.Feedback,
		Status:   &status,
	})
	if err != nil {
		s.logger.Error("homework update failed", "id", id, "error", err)
		respondInternal(w, "Failed to send feedback")
		return
	}

	s.notifyFeedback(r, hw, req.Feedback)

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"homework": updated,
	})
}

// notifyFeedback looks up the student and lesson and fires the review
// notification. Best-effort only.
func (s *Server) notifyFeedback(r *http.Request, hw *model.Homework, feedback string) {
	student, err := s.store.GetUser(r.Context(), hw.StudentID)
	if err != nil || student == nil || student.TelegramUsername == "" {
		return
	}
	lessonTitle := ""
	if lesson, err := s.store.GetLesson(r.Context(), hw.LessonID); err == nil && lesson != nil {
		lessonTitle = lesson.Title
	}
	if err := s.notifier.FeedbackSent(r.Context(), student.TelegramUsername, lessonTitle, feedback); err != nil {
		s.logger.Warn("feedback notification failed", "homework", hw.ID, "error", err)
	}
}

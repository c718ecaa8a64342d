package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

// The students API is the admin's roster view over users with role student.

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListUsersByRole(r.Context(), model.RoleStudent)
	if err != nil {
		s.logger.Error("list students failed", "error", err)
		respondInternal(w, "Failed to fetch students")
		return
	}
	if students == nil {
		students = []*model.User{}
	}
	respondJSON(w, http.StatusOK, students)
}

type createStudentRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"omitempty,email"`
	TelegramUsername string `json:"telegramUsername" validate:"required"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Имя и Telegram обязательны")
		return
	}

	now := time.Now()
	student := &model.User{
		Name:             req.Name,
		Email:            req.Email,
		Role:             model.RoleStudent,
		TelegramUsername: req.TelegramUsername,
		Progress:         0,
		LastActive:       now,
		Status:           model.UserActive,
		CreatedAt:        now,
	}
	if err := s.store.CreateUser(r.Context(), student); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			respondError(w, http.StatusBadRequest, model.ErrConflict, "User with this email already exists")
			return
		}
		s.logger.Error("student create failed", "error", err)
		respondInternal(w, "Ошибка при создании ученицы")
		return
	}
	respondJSON(w, http.StatusCreated, student)
}

// studentByID loads a role=student user or responds 404.
func (s *Server) studentByID(w http.ResponseWriter, r *http.Request) *model.User {
	id := chi.URLParam(r, "id")
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.logger.Error("student get failed", "id", id, "error", err)
		respondInternal(w, "Failed to fetch student")
		return nil
	}
	if user == nil || user.Role != model.RoleStudent {
		respondNotFound(w, "Student")
		return nil
	}
	return user
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	student := s.studentByID(w, r)
	if student == nil {
		return
	}
	respondJSON(w, http.StatusOK, student)
}

type updateStudentRequest struct {
	Name             *string           `json:"name"`
	Email            *string           `json:"email" validate:"omitempty,email"`
	TelegramUsername *string           `json:"telegramUsername"`
	Progress         *int              `json:"progress" validate:"omitempty,gte=0,lte=100"`
	Status           *model.UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	student := s.studentByID(w, r)
	if student == nil {
		return
	}

	var req updateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid student fields")
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), student.ID, store.UserPatch{
		Name:             req.Name,
		Email:            req.Email,
		TelegramUsername: req.TelegramUsername,
		Progress:         req.Progress,
		Status:           req.Status,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			respondError(w, http.StatusBadRequest, model.ErrConflict, "User with this email already exists")
			return
		}
		s.logger.Error("student update failed", "id", student.ID, "error", err)
		respondInternal(w, "Failed to update student")
		return
	}
	if updated == nil {
		respondNotFound(w, "Student")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	student := s.studentByID(w, r)
	if student == nil {
		return
	}

	ok, err := s.store.DeleteUser(r.Context(), student.ID)
	if err != nil {
		s.logger.Error("student delete failed", "id", student.ID, "error", err)
		respondInternal(w, "Failed to delete student")
		return
	}
	if !ok {
		respondNotFound(w, "Student")
		return
	}
	// A deleted account's sessions die with it.
	if _, err := s.sessions.RevokeUser(r.Context(), student.ID); err != nil {
		s.logger.Warn("session revoke failed", "user", student.ID, "error", err)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

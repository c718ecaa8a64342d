package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/me/madrasa/internal/auth"
	"github.com/me/madrasa/internal/store"
	"github.com/me/madrasa/pkg/model"
)

// currentUser resolves the session to its user row. A session whose account
// vanished reads as unauthenticated.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) *model.User {
	sess := SessionFromContext(r.Context())
	user, err := s.store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		s.logger.Error("user get failed", "id", sess.UserID, "error", err)
		respondInternal(w, "Failed to fetch user profile")
		return nil
	}
	if user == nil {
		respondUnauthorized(w)
		return nil
	}
	return user
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}
	respondJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid profile fields")
		return
	}

	updated, err := s.store.UpdateUser(r.Context(), user.ID, store.UserPatch{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			respondError(w, http.StatusBadRequest, model.ErrConflict, "User with this email already exists")
			return
		}
		s.logger.Error("profile update failed", "id", user.ID, "error", err)
		respondInternal(w, "Failed to update user profile")
		return
	}
	if updated == nil {
		respondUnauthorized(w)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(w, r)
	if user == nil {
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Current and new password are required")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Неверный текущий пароль")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		respondInternal(w, "Failed to update password")
		return
	}
	if _, err := s.store.UpdateUser(r.Context(), user.ID, store.UserPatch{PasswordHash: &hash}); err != nil {
		s.logger.Error("password update failed", "id", user.ID, "error", err)
		respondInternal(w, "Failed to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type userStatsResponse struct {
	TotalLessons      int `json:"totalLessons"`
	CompletedLessons  int `json:"completedLessons"`
	SubmittedHomework int `json:"submittedHomework"`
	Progress          int `json:"progress"`
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	lessons, err := s.store.ListLessons(r.Context())
	if err != nil {
		s.logger.Error("list lessons failed", "error", err)
		respondInternal(w, "Failed to fetch user stats")
		return
	}
	now := time.Now()
	total := 0
	for _, l := range lessons {
		if l.VisibleAt(now) {
			total++
		}
	}

	homework, err := s.store.ListHomeworkByStudent(r.Context(), sess.UserID)
	if err != nil {
		s.logger.Error("list homework failed", "student", sess.UserID, "error", err)
		respondInternal(w, "Failed to fetch user stats")
		return
	}

	progress := 0
	if total > 0 {
		progress = (len(homework)*100 + total/2) / total
	}
	respondJSON(w, http.StatusOK, userStatsResponse{
		TotalLessons:      total,
		CompletedLessons:  len(homework),
		SubmittedHomework: len(homework),
		Progress:          progress,
	})
}

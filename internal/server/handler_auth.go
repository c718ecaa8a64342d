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

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Success    bool             `json:"success"`
	User       model.PublicUser `json:"user"`
	RedirectTo string           `json:"redirectTo"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Email и пароль обязательны для заполнения")
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Error("authenticate failed", "error", err)
		respondInternal(w, "Произошла ошибка при входе в систему")
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, model.ErrUnauthorized, "Неверный email или пароль")
		return
	}

	sess, err := s.sessions.Create(r.Context(), user)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		respondInternal(w, "Произошла ошибка при входе в систему")
		return
	}
	s.sessions.SetCookie(w, sess)

	// Best-effort; a failed roster touch should not break login.
	now := time.Now()
	if _, err := s.store.UpdateUser(r.Context(), user.ID, store.UserPatch{LastActive: &now}); err != nil {
		s.logger.Warn("last-active update failed", "user", user.ID, "error", err)
	}

	redirectTo := "/dashboard"
	if user.IsAdmin() {
		redirectTo = "/admin"
	}
	respondJSON(w, http.StatusOK, loginResponse{
		Success:    true,
		User:       user.Public(),
		RedirectTo: redirectTo,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("session delete failed", "error", err)
		}
	}
	s.sessions.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type registerRequest struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	TelegramUsername string `json:"telegramUsername"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Invalid request format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, model.ErrValidation, "Name, email and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		respondInternal(w, "Error during registration")
		return
	}

	now := time.Now()
	user := &model.User{
		Email:            req.Email,
		Name:             req.Name,
		Role:             model.RoleStudent,
		PasswordHash:     hash,
		TelegramUsername: req.TelegramUsername,
		Status:           model.UserActive,
		LastActive:       now,
		CreatedAt:        now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			respondError(w, http.StatusBadRequest, model.ErrConflict, "User with this email already exists")
			return
		}
		s.logger.Error("user create failed", "error", err)
		respondInternal(w, "Error during registration")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.csrf.Issue(w)
	if err != nil {
		s.logger.Error("csrf token issue failed", "error", err)
		respondInternal(w, "Failed to issue CSRF token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"csrfToken": token,
		"success":   true,
	})
}

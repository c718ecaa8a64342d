package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/me/madrasa/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondJSON writes a plain JSON body. The API exposes entities and arrays
// directly, no envelope.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError writes `{"error": message}` plus an optional machine code.
func respondError(w http.ResponseWriter, status int, code model.ErrorCode, message string) {
	respondJSON(w, status, &model.APIError{Code: code, Message: message})
}

func respondUnauthorized(w http.ResponseWriter) {
	respondError(w, http.StatusUnauthorized, model.ErrUnauthorized, "Unauthorized")
}

func respondNotFound(w http.ResponseWriter, resource string) {
	respondJSON(w, http.StatusNotFound, model.NewNotFoundError(resource))
}

func respondInternal(w http.ResponseWriter, message string) {
	respondError(w, http.StatusInternalServerError, model.ErrInternal, message)
}

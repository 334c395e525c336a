package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

// envelope is the uniform success/error response shape of the pull surface.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data})
}

// respondError maps the failure taxonomy to HTTP codes. Internal error detail
// never crosses the boundary; the client sees the envelope message only.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, domain.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrConflict):
		status, message = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrPersistence):
		status, message = http.StatusServiceUnavailable, "temporarily unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/middleware"
)

// NotificationHandler exposes the persisted notifications as the offline
// fallback for recipients that missed the socket push.
type NotificationHandler struct {
	log           *slog.Logger
	notifications *services.NotificationService
}

func NewNotificationHandler(log *slog.Logger, notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{log: log, notifications: notifications}
}

type notificationResponse struct {
	ID         uuid.UUID      `json:"id"`
	RecordType string         `json:"record_type"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Read       bool           `json:"read"`
	CreatedAt  time.Time      `json:"created_at"`
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	notifs, reads, err := h.notifications.ListForUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	readByID := make(map[uuid.UUID]bool, len(reads))
	for _, rec := range reads {
		readByID[rec.NotificationID] = rec.Read
	}
	out := make([]notificationResponse, 0, len(notifs))
	for _, n := range notifs {
		out = append(out, notificationResponse{
			ID:         n.ID,
			RecordType: n.RecordType,
			Title:      n.Title,
			Body:       n.Body,
			Metadata:   n.Metadata,
			Read:       readByID[n.ID],
			CreatedAt:  n.CreatedAt,
		})
	}
	respondOK(w, http.StatusOK, "notifications", out)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, domain.ErrValidation)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), id, userID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, "marked read", nil)
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/middleware"
)

// ChatHandler is the REST pull surface: history, offline fallback and the
// multipart-free message send path.
type ChatHandler struct {
	log      *slog.Logger
	messages *services.MessageService
}

func NewChatHandler(log *slog.Logger, messages *services.MessageService) *ChatHandler {
	return &ChatHandler{log: log, messages: messages}
}

type sendMessageRequest struct {
	Content string             `json:"content"`
	FileID  *string            `json:"file_id,omitempty"`
	Type    domain.MessageType `json:"type"`
}

type messageResponse struct {
	ID             uuid.UUID          `json:"id"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Content        string             `json:"content"`
	FileID         *string            `json:"file_id,omitempty"`
	Type           domain.MessageType `json:"type"`
	CreatedAt      time.Time          `json:"created_at"`
}

type conversationResponse struct {
	ID            uuid.UUID            `json:"id"`
	Participants  []string             `json:"participants"`
	LastMessage   *messageResponse     `json:"last_message,omitempty"`
	OwnStatus     domain.DeliveryState `json:"own_status,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
	LastMessageID *uuid.UUID           `json:"last_message_id,omitempty"`
}

// SendMessage handles POST /api/conversations/{userId}/messages. The target
// is the other user; the conversation is found or created on first contact.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	recipientID := chi.URLParam(r, "userId")
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.ErrValidation)
		return
	}
	// A message needs content or a file; shape errors stop at the boundary.
	if req.Content == "" && req.FileID == nil {
		respondError(w, domain.ErrValidation)
		return
	}
	conv, err := h.messages.FindOrCreateConversation(r.Context(), senderID, recipientID)
	if err != nil {
		respondError(w, err)
		return
	}
	msg, err := h.messages.SendMessage(r.Context(), conv.ID, senderID, req.Content, req.FileID, req.Type)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusCreated, "message sent", toMessageResponse(msg))
}

// ListConversations handles GET /api/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	summaries, err := h.messages.ListConversations(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]conversationResponse, 0, len(summaries))
	for _, s := range summaries {
		item := conversationResponse{
			ID:            s.Conversation.ID,
			Participants:  s.Conversation.ParticipantIDs,
			UpdatedAt:     s.Conversation.UpdatedAt,
			LastMessageID: s.Conversation.LastMessageID,
			OwnStatus:     s.OwnStatus,
		}
		if s.LastMessage != nil {
			item.LastMessage = toMessageResponse(s.LastMessage)
		}
		out = append(out, item)
	}
	respondOK(w, http.StatusOK, "conversations", out)
}

// ListMessages handles GET /api/conversations/{id}/messages?limit&cursor.
// Pages are returned oldest-first; cursor is the oldest already-held message.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, domain.ErrValidation)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	var cursor *uuid.UUID
	if v := r.URL.Query().Get("cursor"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, domain.ErrValidation)
			return
		}
		cursor = &id
	}
	msgs, err := h.messages.ListMessages(r.Context(), convID, userID, limit, cursor)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]*messageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageResponse(&msgs[i]))
	}
	respondOK(w, http.StatusOK, "messages", out)
}

// MarkRead handles POST /api/messages/{id}/read.
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(string)
	if !ok {
		respondError(w, domain.ErrUnauthenticated)
		return
	}
	msgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, domain.ErrValidation)
		return
	}
	if err := h.messages.MarkRead(r.Context(), msgID, userID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, "marked read", nil)
}

// DeleteConversation handles DELETE /api/conversations/{id}. Irreversible;
// cascades to messages and statuses, so only admins get it.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	role, _ := r.Context().Value(middleware.RoleKey).(string)
	if role != string(domain.RoleAdmin) {
		respondError(w, domain.ErrForbidden)
		return
	}
	convID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, domain.ErrValidation)
		return
	}
	if err := h.messages.DeleteConversation(r.Context(), convID); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, http.StatusOK, "conversation deleted", nil)
}

func toMessageResponse(m *domain.Message) *messageResponse {
	return &messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		FileID:         m.FileID,
		Type:           m.Type,
		CreatedAt:      m.CreatedAt,
	}
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/middleware"
)

type stubConvRepo struct {
	deleted []uuid.UUID
}

func (r *stubConvRepo) GetConversationByID(context.Context, uuid.UUID) (*domain.Conversation, error) {
	return nil, domain.ErrNotFound
}

func (r *stubConvRepo) GetConversationByPairKey(context.Context, string) (*domain.Conversation, error) {
	return nil, domain.ErrNotFound
}

func (r *stubConvRepo) CreateConversation(context.Context, *domain.Conversation) error {
	return nil
}

func (r *stubConvRepo) UpdateLastMessage(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

func (r *stubConvRepo) ListConversationsByParticipant(context.Context, string) ([]domain.ConversationSummary, error) {
	return nil, nil
}

func (r *stubConvRepo) DeleteConversation(_ context.Context, convID uuid.UUID) error {
	r.deleted = append(r.deleted, convID)
	return nil
}

func deleteRequest(convID uuid.UUID, userID, role string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/api/conversations/"+convID.String(), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", convID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.RoleKey, role)
	return req.WithContext(ctx)
}

func TestDeleteConversationRequiresAdmin(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubConvRepo{}
	svc := services.NewMessageService(log, repo, nil, nil, nil, nil, nil, nil)
	h := NewChatHandler(log, svc)
	convID := uuid.New()

	for _, role := range []string{"", string(domain.RoleMember)} {
		rec := httptest.NewRecorder()
		h.DeleteConversation(rec, deleteRequest(convID, "mallory", role))
		if rec.Code != http.StatusForbidden {
			t.Errorf("role %q: status = %d, want 403", role, rec.Code)
		}
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("non-admin delete must not reach the store, deleted %v", repo.deleted)
	}

	rec := httptest.NewRecorder()
	h.DeleteConversation(rec, deleteRequest(convID, "root", string(domain.RoleAdmin)))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d, want 200", rec.Code)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != convID {
		t.Errorf("expected one delete of %s, got %v", convID, repo.deleted)
	}
}

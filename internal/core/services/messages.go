package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

var msgTracer = otel.Tracer("message-service")

// MessageService is the delivery engine: it persists messages through the
// conversation store and pushes live events through the event pusher, which
// reaches recipients on any instance and no-ops for ones with no socket.
// Local presence only decides the SENT/DELIVERED status row at send time;
// offline recipients discover messages on the next pull.
type MessageService struct {
	log      *slog.Logger
	conv     domain.ConversationRepository
	messages domain.MessageRepository
	statuses domain.DeliveryStatusRepository
	users    domain.UserRepository
	presence contracts.OnlineChecker
	pusher   contracts.EventPusher
	tx       contracts.Transactor
}

func NewMessageService(
	log *slog.Logger,
	conv domain.ConversationRepository,
	messages domain.MessageRepository,
	statuses domain.DeliveryStatusRepository,
	users domain.UserRepository,
	presence contracts.OnlineChecker,
	pusher contracts.EventPusher,
	tx contracts.Transactor,
) *MessageService {
	return &MessageService{
		log:      log,
		conv:     conv,
		messages: messages,
		statuses: statuses,
		users:    users,
		presence: presence,
		pusher:   pusher,
		tx:       tx,
	}
}

// FindOrCreateConversation canonicalizes the pair and looks the conversation
// up by its pair key. On a lost creation race the unique constraint surfaces
// as ErrConflict and the winner's row is re-fetched, so N concurrent
// first-contact sends always converge on one conversation.
func (s *MessageService) FindOrCreateConversation(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.FindOrCreateConversation")
	defer span.End()
	if userA == "" || userB == "" {
		return nil, domain.ErrValidation
	}
	if userA == userB {
		return nil, domain.ErrSelfConversation
	}
	key := domain.PairKey(userA, userB)
	conv, err := s.conv.GetConversationByPairKey(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return nil, domain.Fail("messages.FindOrCreateConversation", domain.ErrPersistence, err)
	}
	now := time.Now()
	pair := []string{userA, userB}
	conv = &domain.Conversation{
		ID:             uuid.New(),
		PairKey:        key,
		ParticipantIDs: pair,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.conv.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Lost the race; the other sender's conversation wins.
			conv, err = s.conv.GetConversationByPairKey(ctx, key)
			if err != nil {
				span.RecordError(err)
				return nil, domain.Fail("messages.FindOrCreateConversation", domain.ErrPersistence, err)
			}
			return conv, nil
		}
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - find or create - create failed", "pair_key", key, "err", err)
		return nil, domain.Fail("messages.FindOrCreateConversation", domain.ErrPersistence, err)
	}
	s.log.InfoContext(ctx, "messages - find or create - conversation created", "conversation_id", conv.ID.String())
	return conv, nil
}

// SendMessage persists the message, the last-message pointer and all delivery
// status rows in one transaction, then pushes message.new to every recipient
// through the pusher. Statuses: sender READ, locally-online recipients
// DELIVERED, others SENT.
func (s *MessageService) SendMessage(
	ctx context.Context,
	convID uuid.UUID,
	senderID string,
	content string,
	fileID *string,
	msgType domain.MessageType,
) (*domain.Message, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.SendMessage", trace.WithAttributes(
		attribute.String("conversation_id", convID.String()),
		attribute.String("sender_id", senderID),
	))
	defer span.End()

	conv, err := s.conv.GetConversationByID(ctx, convID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		span.RecordError(err)
		return nil, domain.Fail("messages.SendMessage", domain.ErrPersistence, err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, domain.ErrForbidden
	}
	if msgType == "" {
		msgType = domain.MessageText
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		FileID:         fileID,
		Type:           msgType,
		CreatedAt:      time.Now(),
	}

	// Delivery state per recipient is decided from presence at send time.
	states := make(map[string]domain.DeliveryState)
	states[senderID] = domain.DeliveryRead
	for _, pid := range conv.ParticipantIDs {
		if pid == senderID {
			continue
		}
		if s.presence.Online(pid) {
			states[pid] = domain.DeliveryDelivered
		} else {
			states[pid] = domain.DeliverySent
		}
	}

	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.CreateMessage(txCtx, msg); err != nil {
			return err
		}
		if err := s.conv.UpdateLastMessage(txCtx, convID, msg.ID, msg.CreatedAt); err != nil {
			return err
		}
		for uid, state := range states {
			if err := s.statuses.UpsertStatus(txCtx, msg.ID, uid, state); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.log.ErrorContext(ctx, "messages - send message - persist failed", "conversation_id", convID.String(), "err", err)
		return nil, domain.Fail("messages.SendMessage", domain.ErrPersistence, err)
	}
	s.log.InfoContext(ctx, "messages - send message - persisted", "conversation_id", convID.String(), "message_id", msg.ID.String())

	senderName := ""
	if sender, err := s.users.GetUserByID(ctx, senderID); err == nil {
		senderName = sender.Name
	}
	// Every recipient gets the push; a socket on another instance is reached
	// through the bridge, and the registry drops pushes for absent users.
	for uid, state := range states {
		if uid == senderID {
			continue
		}
		s.pusher.PushToUser(ctx, uid, domain.Event{
			Event: domain.EventNewMessage,
			Data: domain.NewMessagePayload{
				MessageID:      msg.ID,
				ConversationID: msg.ConversationID,
				SenderID:       msg.SenderID,
				SenderName:     senderName,
				Content:        msg.Content,
				FileID:         msg.FileID,
				Type:           msg.Type,
				Status:         state,
				CreatedAt:      msg.CreatedAt,
			},
		})
	}
	return msg, nil
}

// ListConversations returns conversations sorted by most recent activity,
// annotated with the last message and the requester's own delivery status.
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.ListConversations")
	defer span.End()
	summaries, err := s.conv.ListConversationsByParticipant(ctx, userID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - list conversations - query failed", "user_id", userID, "err", err)
		return nil, domain.Fail("messages.ListConversations", domain.ErrPersistence, err)
	}
	return summaries, nil
}

// ListMessages paginates a conversation's history. The repo fetches the page
// newest-first; the page is reversed before returning so every page reads
// chronologically and successive cursor pages stitch into one scrollable
// history.
func (s *MessageService) ListMessages(
	ctx context.Context,
	convID uuid.UUID,
	userID string,
	limit int,
	cursor *uuid.UUID,
) ([]domain.Message, error) {
	ctx, span := msgTracer.Start(ctx, "MessageService.ListMessages", trace.WithAttributes(
		attribute.String("conversation_id", convID.String()),
	))
	defer span.End()
	conv, err := s.conv.GetConversationByID(ctx, convID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		span.RecordError(err)
		return nil, domain.Fail("messages.ListMessages", domain.ErrPersistence, err)
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 {
		limit = 50
	}
	page, err := s.messages.ListMessagesBefore(ctx, convID, limit, cursor)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - list messages - query failed", "conversation_id", convID.String(), "err", err)
		return nil, domain.Fail("messages.ListMessages", domain.ErrPersistence, err)
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	span.SetAttributes(attribute.Int("message_count", len(page)))
	return page, nil
}

// MarkRead flips the caller's delivery-status row to READ. Idempotent and
// monotonic: a second call, or a racing row, never errors. Callers that are
// not participants of the message's conversation get ErrForbidden.
func (s *MessageService) MarkRead(ctx context.Context, messageID uuid.UUID, userID string) error {
	ctx, span := msgTracer.Start(ctx, "MessageService.MarkRead", trace.WithAttributes(
		attribute.String("message_id", messageID.String()),
		attribute.String("user_id", userID),
	))
	defer span.End()
	msg, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrMessageNotFound
		}
		span.RecordError(err)
		return domain.Fail("messages.MarkRead", domain.ErrPersistence, err)
	}
	conv, err := s.conv.GetConversationByID(ctx, msg.ConversationID)
	if err != nil {
		span.RecordError(err)
		return domain.Fail("messages.MarkRead", domain.ErrPersistence, err)
	}
	if !conv.HasParticipant(userID) {
		return domain.ErrForbidden
	}
	if err := s.statuses.UpsertStatus(ctx, messageID, userID, domain.DeliveryRead); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - mark read - upsert failed", "message_id", messageID.String(), "err", err)
		return domain.Fail("messages.MarkRead", domain.ErrPersistence, err)
	}
	// Let the sender's open devices update their ticks.
	s.pusher.PushToUser(ctx, msg.SenderID, domain.Event{
		Event: domain.EventMessageStatus,
		Data: domain.MessageStatusPayload{
			MessageID: messageID,
			UserID:    userID,
			Status:    domain.DeliveryRead,
		},
	})
	return nil
}

// DeleteConversation cascades to messages and statuses. Admin-only; the
// authorization decision is made at the boundary.
func (s *MessageService) DeleteConversation(ctx context.Context, convID uuid.UUID) error {
	ctx, span := msgTracer.Start(ctx, "MessageService.DeleteConversation", trace.WithAttributes(
		attribute.String("conversation_id", convID.String()),
	))
	defer span.End()
	if err := s.conv.DeleteConversation(ctx, convID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrConversationNotFound
		}
		span.RecordError(err)
		s.log.ErrorContext(ctx, "messages - delete conversation - delete failed", "conversation_id", convID.String(), "err", err)
		return domain.Fail("messages.DeleteConversation", domain.ErrPersistence, err)
	}
	s.log.InfoContext(ctx, "messages - delete conversation - deleted", "conversation_id", convID.String())
	return nil
}

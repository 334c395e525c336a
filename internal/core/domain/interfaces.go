package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository resolves external identities and reminder audiences.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListReminderUsers(ctx context.Context) ([]User, error)
}

// ConversationRepository handles conversation lifecycle. CreateConversation
// must return ErrDuplicateRecord when the canonical pair key already exists;
// the service treats that as "someone else just created it" and re-fetches.
type ConversationRepository interface {
	GetConversationByID(ctx context.Context, convID uuid.UUID) (*Conversation, error)
	GetConversationByPairKey(ctx context.Context, pairKey string) (*Conversation, error)
	CreateConversation(ctx context.Context, conv *Conversation) error
	UpdateLastMessage(ctx context.Context, convID, messageID uuid.UUID, at time.Time) error
	ListConversationsByParticipant(ctx context.Context, userID string) ([]ConversationSummary, error)
	DeleteConversation(ctx context.Context, convID uuid.UUID) error
}

// MessageRepository persists immutable messages. ListMessagesBefore returns
// up to limit messages newest-first, strictly older than the cursor message
// when a cursor is given.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessagesBefore(ctx context.Context, convID uuid.UUID, limit int, cursor *uuid.UUID) ([]Message, error)
}

// DeliveryStatusRepository keeps one row per (message, recipient). Upsert
// must be forward-only: a transition to a lower-ranked state is a no-op.
type DeliveryStatusRepository interface {
	UpsertStatus(ctx context.Context, messageID uuid.UUID, userID string, state DeliveryState) error
	GetStatus(ctx context.Context, messageID uuid.UUID, userID string) (DeliveryState, error)
}

// CallRepository persists calls and per-participant status rows.
// UpdateParticipant is last-write-wins on (callID, userID).
type CallRepository interface {
	CreateCall(ctx context.Context, call *Call, participantIDs []string) error
	GetCallByID(ctx context.Context, callID uuid.UUID) (*Call, error)
	GetParticipant(ctx context.Context, callID uuid.UUID, userID string) (*CallParticipant, error)
	ListParticipants(ctx context.Context, callID uuid.UUID) ([]CallParticipant, error)
	UpdateParticipant(ctx context.Context, p *CallParticipant) error
	UpdateCallStatus(ctx context.Context, callID uuid.UUID, status CallStatus, endedAt *time.Time) error
}

// NotificationRepository persists fan-out records. CreateNotification must
// return ErrDuplicateRecord for an existing (record type, record id) so that
// job redelivery cannot create duplicates.
type NotificationRepository interface {
	GetByRecord(ctx context.Context, recordType, recordID string) (*Notification, error)
	CreateNotification(ctx context.Context, n *Notification, recipientIDs []string) error
	ListByRecipient(ctx context.Context, userID string) ([]Notification, []NotificationRecipient, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) error
}

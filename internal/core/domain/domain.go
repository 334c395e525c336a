package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the external identity the realtime core needs to reach: id,
// contact points for the email/sms channels, timezone for reminders.
// Lifecycle is owned by the auth collaborator.
type User struct {
	ID            string
	Name          string
	Email         string
	Phone         string
	Timezone      string
	Status        UserStatus
	DailyReminder bool
	CreatedAt     time.Time
}

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
)

// Role is carried in the access token. The realtime core only distinguishes
// admins, for destructive operations.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Conversation is a persistent chat between a canonical pair of users.
// PairKey is the sorted participant pair, unique per unordered pair.
type Conversation struct {
	ID             uuid.UUID
	PairKey        string
	ParticipantIDs []string
	LastMessageID  *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PairKey canonicalizes an unordered user pair so both orderings map to the
// same conversation.
func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageVideo MessageType = "VIDEO"
	MessageAudio MessageType = "AUDIO"
	MessageFile  MessageType = "FILE"
)

// Message is immutable after creation; read state lives in DeliveryStatus.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Content        string
	FileID         *string
	Type           MessageType
	CreatedAt      time.Time
}

// DeliveryState transitions only forward: SENT -> DELIVERED -> READ.
type DeliveryState string

const (
	DeliverySent      DeliveryState = "SENT"
	DeliveryDelivered DeliveryState = "DELIVERED"
	DeliveryRead      DeliveryState = "READ"
)

// Rank orders delivery states for the forward-only transition guard.
func (s DeliveryState) Rank() int {
	switch s {
	case DeliverySent:
		return 1
	case DeliveryDelivered:
		return 2
	case DeliveryRead:
		return 3
	}
	return 0
}

// DeliveryStatus is the per (message, recipient) read-state side record.
type DeliveryStatus struct {
	MessageID uuid.UUID
	UserID    string
	State     DeliveryState
	UpdatedAt time.Time
}

// ConversationSummary annotates a conversation for list views with its last
// message and the requesting user's own delivery status for that message.
type ConversationSummary struct {
	Conversation Conversation
	LastMessage  *Message
	OwnStatus    DeliveryState
}

type CallType string

const (
	CallAudio CallType = "AUDIO"
	CallVideo CallType = "VIDEO"
)

type CallStatus string

const (
	CallInitiated CallStatus = "INITIATED"
	CallOngoing   CallStatus = "ONGOING"
	CallEnded     CallStatus = "ENDED"
)

type Call struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	InitiatorID    string
	Type           CallType
	Status         CallStatus
	CreatedAt      time.Time
	EndedAt        *time.Time
}

// ParticipantStatus is per-participant within a call. MISSED is the default
// and absorbs both explicit declines and timeouts; JOINED may move to LEFT,
// never backward, and a LEFT participant cannot re-enter the same call.
type ParticipantStatus string

const (
	ParticipantMissed ParticipantStatus = "MISSED"
	ParticipantJoined ParticipantStatus = "JOINED"
	ParticipantLeft   ParticipantStatus = "LEFT"
)

// Rank orders participant statuses for the forward-only transition guard.
func (s ParticipantStatus) Rank() int {
	switch s {
	case ParticipantMissed:
		return 1
	case ParticipantJoined:
		return 2
	case ParticipantLeft:
		return 3
	}
	return 0
}

type CallParticipant struct {
	CallID   uuid.UUID
	UserID   string
	Status   ParticipantStatus
	JoinedAt *time.Time
	LeftAt   *time.Time
}

type Notification struct {
	ID         uuid.UUID
	RecordType string
	RecordID   string
	Title      string
	Body       string
	Metadata   map[string]any
	CreatedAt  time.Time
}

type NotificationRecipient struct {
	NotificationID uuid.UUID
	UserID         string
	Read           bool
	ReadAt         *time.Time
}

// Channel is one outbound delivery path for a notification event.
type Channel string

const (
	ChannelSocket Channel = "socket"
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
)

// NotificationEvent is the typed fan-out input. The job key derived from
// (RecordType, RecordID, ContextID) deduplicates re-emitted logical events.
type NotificationEvent struct {
	RecordType   string         `json:"record_type"`
	RecordID     string         `json:"record_id"`
	ContextID    string         `json:"context_id,omitempty"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	RecipientIDs []string       `json:"recipient_ids"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Channels     []Channel      `json:"channels"`
}

// JobKey is deterministic per logical event.
func (e NotificationEvent) JobKey() string {
	return "notify:" + e.RecordType + ":" + e.RecordID + ":" + e.ContextID
}

func (e NotificationEvent) HasChannel(ch Channel) bool {
	for _, c := range e.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Notification record types produced by the platform.
const (
	RecordAnnouncement  = "announcement"
	RecordShift         = "shift"
	RecordTimeOff       = "time-off"
	RecordDailyExercise = "daily-exercise"
	RecordGeneric       = "generic"
)

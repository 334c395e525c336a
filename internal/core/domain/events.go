package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Live event names pushed to connected clients. Stable per category.
const (
	EventConnected     = "connected"
	EventError         = "error"
	EventNewMessage    = "message.new"
	EventMessageStatus = "message.status"
	EventCallInitiate  = "call.initiate"
	EventCallAccept    = "call.accept"
	EventCallReject    = "call.reject"
	EventCallJoin      = "call.join"
	EventCallLeave     = "call.leave"
	EventCallEnd       = "call.end"
	EventOffer         = "webrtc.offer"
	EventAnswer        = "webrtc.answer"
	EventIceCandidate  = "webrtc.ice-candidate"
	EventNotification  = "notification"
)

// Event is the wire envelope for every pushed live event.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// ConnectedPayload acknowledges a successful connection handshake.
type ConnectedPayload struct {
	UserID string `json:"user_id"`
}

// ErrorPayload is the WS-safe error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewMessagePayload carries the full message including sender info and the
// receiving user's delivery status.
type NewMessagePayload struct {
	MessageID      uuid.UUID     `json:"message_id"`
	ConversationID uuid.UUID     `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	SenderName     string        `json:"sender_name,omitempty"`
	Content        string        `json:"content"`
	FileID         *string       `json:"file_id,omitempty"`
	Type           MessageType   `json:"type"`
	Status         DeliveryState `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// MessageStatusPayload announces a delivery-status transition.
type MessageStatusPayload struct {
	MessageID uuid.UUID     `json:"message_id"`
	UserID    string        `json:"user_id"`
	Status    DeliveryState `json:"status"`
}

// CallPayload is shared by every call lifecycle event.
type CallPayload struct {
	CallID         uuid.UUID  `json:"call_id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	InitiatorID    string     `json:"initiator_id"`
	Type           CallType   `json:"type"`
	Status         CallStatus `json:"status"`
	ActorID        string     `json:"actor_id,omitempty"`
}

// SignalPayload is relayed verbatim between call peers; the core attaches
// the sender's id and never inspects SDP/ICE content.
type SignalPayload struct {
	CallID uuid.UUID       `json:"call_id"`
	FromID string          `json:"from_id"`
	Data   json.RawMessage `json:"data"`
}

// NotificationPayload is the socket channel of the fan-out engine.
type NotificationPayload struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	RecordType     string         `json:"record_type"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Inbound socket commands share the same {event, data} envelope.
type Command struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	CommandSendMessage = "message.send"
	CommandMarkRead    = "message.read"
	CommandCallInit    = "call.initiate"
	CommandCallAccept  = "call.accept"
	CommandCallReject  = "call.reject"
	CommandCallJoin    = "call.join"
	CommandCallLeave   = "call.leave"
	CommandCallEnd     = "call.end"
	CommandOffer       = "webrtc.offer"
	CommandAnswer      = "webrtc.answer"
	CommandIce         = "webrtc.ice-candidate"
)

type SendMessageCommand struct {
	RecipientID string      `json:"recipient_id"`
	Content     string      `json:"content"`
	FileID      *string     `json:"file_id,omitempty"`
	Type        MessageType `json:"type"`
}

type MarkReadCommand struct {
	MessageID uuid.UUID `json:"message_id"`
}

type CallInitiateCommand struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Type           CallType  `json:"type"`
	ParticipantIDs []string  `json:"participant_ids"`
}

type CallActionCommand struct {
	CallID uuid.UUID `json:"call_id"`
}

type SignalCommand struct {
	CallID       uuid.UUID       `json:"call_id"`
	TargetUserID string          `json:"target_user_id"`
	Data         json.RawMessage `json:"data"`
}

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/registry"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/app/server/ws"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/services"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/logging"
)

// WSHandler is the socket gateway: it authenticates the handshake, registers
// the connection in presence, and dispatches inbound commands to the engines.
type WSHandler struct {
	log      *slog.Logger
	hub      *registry.Registry
	auth     *services.AuthService
	messages *services.MessageService
	calls    *services.CallService
}

func NewWSHandler(
	log *slog.Logger,
	hub *registry.Registry,
	auth *services.AuthService,
	messages *services.MessageService,
	calls *services.CallService,
) *WSHandler {
	return &WSHandler{
		log:      log,
		hub:      hub,
		auth:     auth,
		messages: messages,
		calls:    calls,
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // tighten later
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", "err", err)
		return
	}

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	socket := ws.NewWebSocket(ctx, conn)

	// Authenticate before anything touches presence. A failure means one
	// error event and a closed connection, never a half-registered client.
	user, err := s.auth.Authenticate(ctx, bearerToken(r))
	if err != nil {
		log.WarnContext(r.Context(), "ws handler - authenticate - rejected", "err", err)
		writeEvent(socket, domain.Event{Event: domain.EventError, Data: domain.ErrorPayload{Message: "authentication failed"}})
		socket.Close()
		cancel()
		return
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	conn.SetCloseHandler(func(code int, text string) error {
		log.Info("ws handler - ws closed", "user_id", user.ID)
		cancel()
		return nil
	})

	client := ws.NewClient(ctx, socket, uuid.NewString(), user.ID)
	s.hub.Register(client)
	defer s.hub.Unregister(client)
	defer client.Close()

	writeEvent(socket, domain.Event{Event: domain.EventConnected, Data: domain.ConnectedPayload{UserID: user.ID}})
	log.InfoContext(r.Context(), "ws handler - ws connection established", "user_id", user.ID, "conn_id", client.ID())

	socket.ReadLoop(func(data []byte) {
		go s.dispatch(ctx, client, user.ID, data)
	})
}

// dispatch routes one inbound command to its engine. Failures are echoed to
// the acting connection only.
func (s *WSHandler) dispatch(ctx context.Context, client *ws.RuntimeClient, userID string, raw []byte) {
	var cmd domain.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.sendError(ctx, client, "malformed command")
		return
	}
	var err error
	switch cmd.Event {
	case domain.CommandSendMessage:
		err = s.handleSend(ctx, userID, cmd.Data)
	case domain.CommandMarkRead:
		var in domain.MarkReadCommand
		if err = json.Unmarshal(cmd.Data, &in); err == nil {
			err = s.messages.MarkRead(ctx, in.MessageID, userID)
		}
	case domain.CommandCallInit:
		var in domain.CallInitiateCommand
		if err = json.Unmarshal(cmd.Data, &in); err == nil {
			_, err = s.calls.Initiate(ctx, in.ConversationID, userID, in.Type, in.ParticipantIDs)
		}
	case domain.CommandCallAccept:
		err = s.callAction(ctx, userID, cmd.Data, s.calls.Accept)
	case domain.CommandCallReject:
		err = s.callAction(ctx, userID, cmd.Data, s.calls.Reject)
	case domain.CommandCallJoin:
		err = s.callAction(ctx, userID, cmd.Data, s.calls.Join)
	case domain.CommandCallLeave:
		err = s.callAction(ctx, userID, cmd.Data, s.calls.Leave)
	case domain.CommandCallEnd:
		err = s.callAction(ctx, userID, cmd.Data, s.calls.End)
	case domain.CommandOffer:
		err = s.signal(ctx, userID, "offer", cmd.Data)
	case domain.CommandAnswer:
		err = s.signal(ctx, userID, "answer", cmd.Data)
	case domain.CommandIce:
		err = s.signal(ctx, userID, "iceCandidate", cmd.Data)
	default:
		err = domain.ErrValidation
	}
	if err != nil {
		s.log.WarnContext(ctx, "ws handler - dispatch - command failed", "event", cmd.Event, "user_id", userID, "err", err)
		s.sendError(ctx, client, "command failed")
	}
}

func (s *WSHandler) handleSend(ctx context.Context, userID string, data json.RawMessage) error {
	var in domain.SendMessageCommand
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.ErrValidation
	}
	if in.Content == "" && in.FileID == nil {
		return domain.ErrValidation
	}
	conv, err := s.messages.FindOrCreateConversation(ctx, userID, in.RecipientID)
	if err != nil {
		return err
	}
	_, err = s.messages.SendMessage(ctx, conv.ID, userID, in.Content, in.FileID, in.Type)
	return err
}

func (s *WSHandler) callAction(
	ctx context.Context,
	userID string,
	data json.RawMessage,
	fn func(ctx context.Context, callID uuid.UUID, userID string) error,
) error {
	var in domain.CallActionCommand
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.ErrValidation
	}
	return fn(ctx, in.CallID, userID)
}

func (s *WSHandler) signal(ctx context.Context, userID, kind string, data json.RawMessage) error {
	var in domain.SignalCommand
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.ErrValidation
	}
	return s.calls.RelaySignal(ctx, kind, in.CallID, userID, in.TargetUserID, in.Data)
}

func (s *WSHandler) sendError(ctx context.Context, client *ws.RuntimeClient, message string) {
	data, _ := json.Marshal(domain.Event{Event: domain.EventError, Data: domain.ErrorPayload{Message: message}})
	_ = client.Send(ctx, data)
}

func writeEvent(socket *ws.WebSocket, ev domain.Event) {
	data, _ := json.Marshal(ev)
	_ = socket.WriteMessage(data)
}

// bearerToken pulls the credential from the Authorization header or, for
// browser clients that cannot set headers on websocket handshakes, the
// "token" query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		// A present but non-bearer header is passed through so it fails as
		// malformed, not missing.
		return h
	}
	return r.URL.Query().Get("token")
}

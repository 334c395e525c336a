package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

var callTracer = otel.Tracer("call-service")

// CallService drives the per-call state machine and relays WebRTC signaling
// between live peers. All pushes go through the event pusher, which no-ops
// for sockets it cannot reach; a persistence failure surfaces to the caller
// only.
type CallService struct {
	log    *slog.Logger
	calls  domain.CallRepository
	conv   domain.ConversationRepository
	pusher contracts.EventPusher
}

func NewCallService(
	log *slog.Logger,
	calls domain.CallRepository,
	conv domain.ConversationRepository,
	pusher contracts.EventPusher,
) *CallService {
	return &CallService{
		log:    log,
		calls:  calls,
		conv:   conv,
		pusher: pusher,
	}
}

// Initiate creates the call with one MISSED participant row per target and
// rings every target's online connections.
func (s *CallService) Initiate(
	ctx context.Context,
	convID uuid.UUID,
	initiatorID string,
	callType domain.CallType,
	participantIDs []string,
) (*domain.Call, error) {
	ctx, span := callTracer.Start(ctx, "CallService.Initiate", trace.WithAttributes(
		attribute.String("conversation_id", convID.String()),
		attribute.String("initiator_id", initiatorID),
	))
	defer span.End()

	conv, err := s.conv.GetConversationByID(ctx, convID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		span.RecordError(err)
		return nil, domain.Fail("calls.Initiate", domain.ErrPersistence, err)
	}
	if !conv.HasParticipant(initiatorID) {
		return nil, domain.ErrForbidden
	}
	if callType != domain.CallAudio && callType != domain.CallVideo {
		return nil, domain.ErrValidation
	}
	if len(participantIDs) == 0 {
		return nil, domain.ErrValidation
	}

	call := &domain.Call{
		ID:             uuid.New(),
		ConversationID: convID,
		InitiatorID:    initiatorID,
		Type:           callType,
		Status:         domain.CallInitiated,
		CreatedAt:      time.Now(),
	}
	if err := s.calls.CreateCall(ctx, call, participantIDs); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "calls - initiate - create failed", "conversation_id", convID.String(), "err", err)
		return nil, domain.Fail("calls.Initiate", domain.ErrPersistence, err)
	}
	s.log.InfoContext(ctx, "calls - initiate - call created", "call_id", call.ID.String(), "type", string(callType))

	payload := callPayload(call, initiatorID)
	for _, pid := range participantIDs {
		if pid == initiatorID {
			continue
		}
		s.pusher.PushToUser(ctx, pid, domain.Event{Event: domain.EventCallInitiate, Data: payload})
	}
	return call, nil
}

// Accept moves the acting participant to JOINED and notifies the initiator.
func (s *CallService) Accept(ctx context.Context, callID uuid.UUID, userID string) error {
	return s.transition(ctx, callID, userID, domain.ParticipantJoined, domain.EventCallAccept, notifyInitiator)
}

// Reject keeps the participant MISSED (explicit decline and timeout-miss are
// the same terminal value) and notifies the initiator.
func (s *CallService) Reject(ctx context.Context, callID uuid.UUID, userID string) error {
	return s.transition(ctx, callID, userID, domain.ParticipantMissed, domain.EventCallReject, notifyInitiator)
}

// Join is accept for in-progress calls; the event echoes to the actor's own
// connections rather than the counterpart.
func (s *CallService) Join(ctx context.Context, callID uuid.UUID, userID string) error {
	return s.transition(ctx, callID, userID, domain.ParticipantJoined, domain.EventCallJoin, notifyActor)
}

// Leave marks the participant LEFT; echoes to the actor.
func (s *CallService) Leave(ctx context.Context, callID uuid.UUID, userID string) error {
	return s.transition(ctx, callID, userID, domain.ParticipantLeft, domain.EventCallLeave, notifyActor)
}

type notifyTarget int

const (
	notifyInitiator notifyTarget = iota
	notifyActor
)

func (s *CallService) transition(
	ctx context.Context,
	callID uuid.UUID,
	userID string,
	status domain.ParticipantStatus,
	event string,
	target notifyTarget,
) error {
	ctx, span := callTracer.Start(ctx, "CallService.transition", trace.WithAttributes(
		attribute.String("call_id", callID.String()),
		attribute.String("user_id", userID),
		attribute.String("status", string(status)),
	))
	defer span.End()

	call, err := s.calls.GetCallByID(ctx, callID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrCallNotFound
		}
		span.RecordError(err)
		return domain.Fail("calls.transition", domain.ErrPersistence, err)
	}
	// A terminal call accepts no further participant transitions.
	if call.Status == domain.CallEnded {
		return domain.ErrCallEnded
	}
	p, err := s.calls.GetParticipant(ctx, callID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		span.RecordError(err)
		return domain.Fail("calls.transition", domain.ErrPersistence, err)
	}
	// Forward-only: a LEFT participant never re-enters, a JOINED one never
	// regresses to MISSED.
	if status.Rank() < p.Status.Rank() {
		return domain.ErrConflict
	}

	now := time.Now()
	p.Status = status
	switch status {
	case domain.ParticipantJoined:
		p.JoinedAt = &now
	case domain.ParticipantLeft:
		p.LeftAt = &now
	}
	if err := s.calls.UpdateParticipant(ctx, p); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "calls - transition - update participant failed", "call_id", callID.String(), "user_id", userID, "err", err)
		return domain.Fail("calls.transition", domain.ErrPersistence, err)
	}
	if status == domain.ParticipantJoined && call.Status == domain.CallInitiated {
		call.Status = domain.CallOngoing
		if err := s.calls.UpdateCallStatus(ctx, callID, domain.CallOngoing, nil); err != nil {
			s.log.ErrorContext(ctx, "calls - transition - update call status failed", "call_id", callID.String(), "err", err)
		}
	}
	s.log.InfoContext(ctx, "calls - transition - participant updated", "call_id", callID.String(), "user_id", userID, "status", string(status))

	payload := callPayload(call, userID)
	switch target {
	case notifyInitiator:
		s.pusher.PushToUser(ctx, call.InitiatorID, domain.Event{Event: event, Data: payload})
	case notifyActor:
		s.pusher.PushToUser(ctx, userID, domain.Event{Event: event, Data: payload})
	}
	if status == domain.ParticipantLeft && call.Status == domain.CallOngoing {
		s.endIfAbandoned(ctx, call, userID)
	}
	return nil
}

// endIfAbandoned ends the call once no participant remains JOINED, so a call
// everyone walked out of does not stay ONGOING forever.
func (s *CallService) endIfAbandoned(ctx context.Context, call *domain.Call, actorID string) {
	participants, err := s.calls.ListParticipants(ctx, call.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "calls - transition - list participants failed", "call_id", call.ID.String(), "err", err)
		return
	}
	for _, p := range participants {
		if p.Status == domain.ParticipantJoined {
			return
		}
	}
	now := time.Now()
	if err := s.calls.UpdateCallStatus(ctx, call.ID, domain.CallEnded, &now); err != nil {
		s.log.ErrorContext(ctx, "calls - transition - end abandoned call failed", "call_id", call.ID.String(), "err", err)
		return
	}
	call.Status = domain.CallEnded
	call.EndedAt = &now
	s.log.InfoContext(ctx, "calls - transition - all participants left, call ended", "call_id", call.ID.String())
	s.pusher.PushToUser(ctx, call.InitiatorID, domain.Event{Event: domain.EventCallEnd, Data: callPayload(call, actorID)})
}

// End sets the call ENDED (terminal) and echoes the event to the ender.
func (s *CallService) End(ctx context.Context, callID uuid.UUID, userID string) error {
	ctx, span := callTracer.Start(ctx, "CallService.End", trace.WithAttributes(
		attribute.String("call_id", callID.String()),
	))
	defer span.End()

	call, err := s.calls.GetCallByID(ctx, callID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrCallNotFound
		}
		span.RecordError(err)
		return domain.Fail("calls.End", domain.ErrPersistence, err)
	}
	if call.Status == domain.CallEnded {
		return domain.ErrCallEnded
	}
	if call.InitiatorID != userID {
		if _, err := s.calls.GetParticipant(ctx, callID, userID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrForbidden
			}
			span.RecordError(err)
			return domain.Fail("calls.End", domain.ErrPersistence, err)
		}
	}
	now := time.Now()
	if err := s.calls.UpdateCallStatus(ctx, callID, domain.CallEnded, &now); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "calls - end - update failed", "call_id", callID.String(), "err", err)
		return domain.Fail("calls.End", domain.ErrPersistence, err)
	}
	call.Status = domain.CallEnded
	call.EndedAt = &now
	s.log.InfoContext(ctx, "calls - end - call ended", "call_id", callID.String(), "user_id", userID)
	s.pusher.PushToUser(ctx, userID, domain.Event{Event: domain.EventCallEnd, Data: callPayload(call, userID)})
	return nil
}

// RelaySignal forwards an offer/answer/ice-candidate payload verbatim to the
// target's live connections with the sender attached. Nothing is persisted;
// the pusher reaches the target wherever it is connected and no-ops when it
// is not, so an unreachable target means the signal is dropped.
func (s *CallService) RelaySignal(
	ctx context.Context,
	kind string,
	callID uuid.UUID,
	fromUserID string,
	targetUserID string,
	payload json.RawMessage,
) error {
	var event string
	switch kind {
	case "offer":
		event = domain.EventOffer
	case "answer":
		event = domain.EventAnswer
	case "iceCandidate", "ice-candidate":
		event = domain.EventIceCandidate
	default:
		return domain.ErrValidation
	}
	s.pusher.PushToUser(ctx, targetUserID, domain.Event{
		Event: event,
		Data: domain.SignalPayload{
			CallID: callID,
			FromID: fromUserID,
			Data:   payload,
		},
	})
	return nil
}

func callPayload(call *domain.Call, actorID string) domain.CallPayload {
	return domain.CallPayload{
		CallID:         call.ID,
		ConversationID: call.ConversationID,
		InitiatorID:    call.InitiatorID,
		Type:           call.Type,
		Status:         call.Status,
		ActorID:        actorID,
	}
}

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
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/platform/metrics"
)

var notifTracer = otel.Tracer("notification-service")

// NotificationService is the fan-out engine. Producers call Publish, which
// enqueues a durable job keyed by the logical event; the worker invokes
// Process, which persists exactly one notification record and attempts each
// enabled channel independently.
type NotificationService struct {
	log    *slog.Logger
	repo   domain.NotificationRepository
	users  domain.UserRepository
	queue  contracts.JobQueue
	pusher contracts.EventPusher
	email  contracts.EmailSender
	sms    contracts.SMSSender
}

func NewNotificationService(
	log *slog.Logger,
	repo domain.NotificationRepository,
	users domain.UserRepository,
	queue contracts.JobQueue,
	pusher contracts.EventPusher,
	email contracts.EmailSender,
	sms contracts.SMSSender,
) *NotificationService {
	return &NotificationService{
		log:    log,
		repo:   repo,
		users:  users,
		queue:  queue,
		pusher: pusher,
		email:  email,
		sms:    sms,
	}
}

// Publish enqueues the event. Re-emitting the same logical event within the
// dedup window is dropped at the queue, not double-queued.
func (s *NotificationService) Publish(ctx context.Context, ev domain.NotificationEvent) error {
	ctx, span := notifTracer.Start(ctx, "NotificationService.Publish", trace.WithAttributes(
		attribute.String("record_type", ev.RecordType),
		attribute.String("record_id", ev.RecordID),
	))
	defer span.End()
	if ev.RecordType == "" || ev.RecordID == "" || len(ev.RecipientIDs) == 0 {
		return domain.ErrValidation
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return domain.Fail("notifications.Publish", domain.ErrValidation, err)
	}
	if err := s.queue.Enqueue(ctx, ev.JobKey(), payload); err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "notifications - publish - enqueue failed", "job_key", ev.JobKey(), "err", err)
		return domain.Fail("notifications.Publish", domain.ErrPersistence, err)
	}
	s.log.InfoContext(ctx, "notifications - publish - enqueued", "job_key", ev.JobKey())
	return nil
}

// Process handles one delivered job. The notification record is created
// check-before-create on (record type, record id), so queue redelivery after
// a crash cannot create duplicates. Channel failures are logged and never
// re-raised; only a persistence failure fails the whole job and reaches the
// queue's retry envelope.
func (s *NotificationService) Process(ctx context.Context, payload []byte) error {
	start := time.Now()
	ctx, span := notifTracer.Start(ctx, "NotificationService.Process")
	defer span.End()

	var ev domain.NotificationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.log.ErrorContext(ctx, "notifications - process - malformed payload", "err", err)
		// Malformed payloads can never succeed; surface as validation so the
		// worker buries instead of retrying.
		return domain.Fail("notifications.Process", domain.ErrValidation, err)
	}
	span.SetAttributes(
		attribute.String("record_type", ev.RecordType),
		attribute.String("record_id", ev.RecordID),
		attribute.Int("recipients", len(ev.RecipientIDs)),
	)

	n, err := s.repo.GetByRecord(ctx, ev.RecordType, ev.RecordID)
	switch {
	case err == nil:
		s.log.InfoContext(ctx, "notifications - process - record exists, skipping create", "notification_id", n.ID.String())
	case errors.Is(err, domain.ErrNotFound):
		n = &domain.Notification{
			ID:         uuid.New(),
			RecordType: ev.RecordType,
			RecordID:   ev.RecordID,
			Title:      ev.Title,
			Body:       ev.Body,
			Metadata:   ev.Metadata,
			CreatedAt:  time.Now(),
		}
		if err := s.repo.CreateNotification(ctx, n, ev.RecipientIDs); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Concurrent redelivery won the create; reuse its row.
				if n, err = s.repo.GetByRecord(ctx, ev.RecordType, ev.RecordID); err != nil {
					span.RecordError(err)
					metrics.NotificationJobDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
					return domain.Fail("notifications.Process", domain.ErrPersistence, err)
				}
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, "create failed")
				s.log.ErrorContext(ctx, "notifications - process - create failed", "record_id", ev.RecordID, "err", err)
				metrics.NotificationJobDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
				return domain.Fail("notifications.Process", domain.ErrPersistence, err)
			}
		}
	default:
		span.RecordError(err)
		metrics.NotificationJobDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return domain.Fail("notifications.Process", domain.ErrPersistence, err)
	}

	for _, uid := range ev.RecipientIDs {
		s.deliver(ctx, ev, n, uid)
	}
	metrics.NotificationJobDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return nil
}

// deliver attempts every enabled channel for one recipient. Each channel is
// independent: a failing provider is logged and the rest still run.
func (s *NotificationService) deliver(ctx context.Context, ev domain.NotificationEvent, n *domain.Notification, userID string) {
	if ev.HasChannel(domain.ChannelSocket) {
		s.pusher.PushToUser(ctx, userID, domain.Event{
			Event: domain.EventNotification,
			Data: domain.NotificationPayload{
				NotificationID: n.ID,
				RecordType:     n.RecordType,
				Title:          n.Title,
				Body:           n.Body,
				Metadata:       n.Metadata,
				CreatedAt:      n.CreatedAt,
			},
		})
	}

	needsContact := ev.HasChannel(domain.ChannelEmail) || ev.HasChannel(domain.ChannelSMS)
	if !needsContact {
		return
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "notifications - deliver - user lookup failed", "user_id", userID, "err", err)
		return
	}
	if ev.HasChannel(domain.ChannelEmail) && user.Email != "" {
		if err := s.email.SendEmail(ctx, user.Email, n.Title, n.Body); err != nil {
			metrics.ChannelFailuresTotal.WithLabelValues(string(domain.ChannelEmail)).Inc()
			s.log.ErrorContext(ctx, "notifications - deliver - email failed", "user_id", userID, "err", err)
		}
	}
	if ev.HasChannel(domain.ChannelSMS) && user.Phone != "" {
		if err := s.sms.SendSMS(ctx, user.Phone, n.Title+": "+n.Body); err != nil {
			metrics.ChannelFailuresTotal.WithLabelValues(string(domain.ChannelSMS)).Inc()
			s.log.ErrorContext(ctx, "notifications - deliver - sms failed", "user_id", userID, "err", err)
		}
	}
}

// ListForUser returns the persisted notifications for the offline-fallback
// pull surface, newest first, with the caller's read flag.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]domain.Notification, []domain.NotificationRecipient, error) {
	notifs, reads, err := s.repo.ListByRecipient(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "notifications - list - query failed", "user_id", userID, "err", err)
		return nil, nil, domain.Fail("notifications.ListForUser", domain.ErrPersistence, err)
	}
	return notifs, reads, nil
}

// MarkRead flips the caller's own join row. Idempotent.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	if err := s.repo.MarkRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotificationNotFound
		}
		s.log.ErrorContext(ctx, "notifications - mark read - update failed", "notification_id", notificationID.String(), "err", err)
		return domain.Fail("notifications.MarkRead", domain.ErrPersistence, err)
	}
	return nil
}

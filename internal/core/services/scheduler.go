package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

// Publisher is what the scheduler needs from the fan-out engine.
type Publisher interface {
	Publish(ctx context.Context, ev domain.NotificationEvent) error
}

// ReminderScheduler fires at a coarse interval and emits one daily-exercise
// event per user whose local time falls in the reminder window. The firing is
// not idempotent by itself; the job key (user id + UTC date) dedups
// overlapping firings at the queue.
type ReminderScheduler struct {
	log          *slog.Logger
	users        domain.UserRepository
	publisher    Publisher
	interval     time.Duration
	reminderHour int
	now          func() time.Time
}

func NewReminderScheduler(
	log *slog.Logger,
	users domain.UserRepository,
	publisher Publisher,
	interval time.Duration,
	reminderHour int,
) *ReminderScheduler {
	return &ReminderScheduler{
		log:          log,
		users:        users,
		publisher:    publisher,
		interval:     interval,
		reminderHour: reminderHour,
		now:          time.Now,
	}
}

// Run blocks until ctx is done, firing once per interval.
func (s *ReminderScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler - run - stopped")
			return
		case <-ticker.C:
			if err := s.Fire(ctx); err != nil {
				s.log.ErrorContext(ctx, "scheduler - run - firing failed", "err", err)
			}
		}
	}
}

// Fire scans reminder-enabled users and publishes one event per user in the
// target local-hour window.
func (s *ReminderScheduler) Fire(ctx context.Context) error {
	users, err := s.users.ListReminderUsers(ctx)
	if err != nil {
		return domain.Fail("scheduler.Fire", domain.ErrPersistence, err)
	}
	now := s.now()
	fired := 0
	for _, u := range users {
		loc, err := time.LoadLocation(u.Timezone)
		if err != nil {
			s.log.WarnContext(ctx, "scheduler - fire - bad timezone", "user_id", u.ID, "timezone", u.Timezone)
			continue
		}
		local := now.In(loc)
		if local.Hour() != s.reminderHour {
			continue
		}
		ev := domain.NotificationEvent{
			RecordType:   domain.RecordDailyExercise,
			RecordID:     u.ID,
			ContextID:    local.Format("2006-01-02"),
			Title:        "Daily exercise reminder",
			Body:         "Your scheduled exercises for today are waiting.",
			RecipientIDs: []string{u.ID},
			Channels:     []domain.Channel{domain.ChannelSocket, domain.ChannelEmail},
		}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.ErrorContext(ctx, "scheduler - fire - publish failed", "user_id", u.ID, "err", err)
			continue
		}
		fired++
	}
	if fired > 0 {
		s.log.InfoContext(ctx, "scheduler - fire - reminders published", "count", fired)
	}
	return nil
}

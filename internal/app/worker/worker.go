package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/platform/metrics"
)

// Processor is the fan-out engine's job handler.
type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

// NotificationWorker drains the durable queue and drives the fan-out engine.
// Whole-job failures are retried with exponential backoff; exhausted jobs go
// to the dead set, never silently dropped.
type NotificationWorker struct {
	log         *slog.Logger
	queue       contracts.JobQueue
	processor   Processor
	group       string
	maxAttempts int
	backoffBase time.Duration
}

func NewNotificationWorker(
	log *slog.Logger,
	queue contracts.JobQueue,
	processor Processor,
	group string,
	maxAttempts int,
	backoffBase time.Duration,
) *NotificationWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &NotificationWorker{
		log:         log,
		queue:       queue,
		processor:   processor,
		group:       group,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
	}
}

// Run starts the consumer loop. Blocks until the queue subscription returns.
func (w *NotificationWorker) Run(ctx context.Context) error {
	if err := w.queue.Subscribe(ctx, w.group, w.handle); err != nil {
		return err
	}
	w.log.InfoContext(ctx, "worker - run - subscribed", "group", w.group)
	return nil
}

func (w *NotificationWorker) handle(ctx context.Context, jobID string, payload []byte) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		lastErr = w.processor.Process(ctx, payload)
		if lastErr == nil {
			if err := w.queue.Acknowledge(ctx, w.group, jobID); err != nil {
				w.log.ErrorContext(ctx, "worker - handle - ack failed", "job_id", jobID, "err", err)
			}
			return nil
		}
		// A job that can never succeed is buried immediately.
		if errors.Is(lastErr, domain.ErrValidation) {
			break
		}
		if attempt < w.maxAttempts {
			metrics.JobRetriesTotal.Inc()
			w.log.WarnContext(ctx, "worker - handle - job failed, retrying",
				"job_id", jobID, "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.backoffBase * (1 << (attempt - 1))):
			}
		}
	}
	w.log.ErrorContext(ctx, "worker - handle - job exhausted, burying", "job_id", jobID, "err", lastErr)
	if err := w.queue.Bury(ctx, jobID, payload); err != nil {
		w.log.ErrorContext(ctx, "worker - handle - bury failed", "job_id", jobID, "err", err)
		return lastErr
	}
	if err := w.queue.Acknowledge(ctx, w.group, jobID); err != nil {
		w.log.ErrorContext(ctx, "worker - handle - ack after bury failed", "job_id", jobID, "err", err)
	}
	return nil
}

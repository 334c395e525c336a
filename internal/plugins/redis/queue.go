package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/logging"
)

const (
	jobStream  = "jobs:notifications"
	deadStream = "jobs:notifications:dead"

	// Pending entries idle longer than this were abandoned by a dead
	// consumer and are reclaimed for redelivery.
	pendingMinIdle = time.Minute
	claimInterval  = time.Minute
)

// RedisJobQueue is a stream-backed queue with enqueue-side deduplication:
// a SET NX marker per job key drops repeat publishes of the same logical
// event while the marker's TTL holds.
type RedisJobQueue struct {
	rdb      *redis.Client
	log      *slog.Logger
	dedupTTL time.Duration
}

func NewRedisJobQueue(rdb *redis.Client, log *slog.Logger, dedupTTL time.Duration) *RedisJobQueue {
	return &RedisJobQueue{rdb: rdb, log: log, dedupTTL: dedupTTL}
}

func dedupKey(jobKey string) string {
	return "dedup:" + jobKey
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, jobKey string, payload []byte) error {
	set, err := q.rdb.SetNX(ctx, dedupKey(jobKey), 1, q.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	if !set {
		q.log.DebugContext(ctx, "queue - enqueue - duplicate dropped", logging.JobKey(jobKey))
		return nil
	}
	err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"job_key": jobKey, "data": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Subscribe starts the consumer-group read loop. Entries left pending by a
// crashed consumer are reclaimed once they sit idle past the threshold and
// routed through the same handler; redelivery is safe because handlers are
// idempotent per job.
func (q *RedisJobQueue) Subscribe(
	ctx context.Context,
	group string,
	handler func(ctx context.Context, jobID string, payload []byte) error,
) error {
	err := q.rdb.XGroupCreateMkStream(ctx, jobStream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue subscribe: %w", err)
	}
	consumerName := uuid.NewString()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    group,
					Consumer: consumerName,
					Streams:  []string{jobStream, ">"},
					Count:    10,
					Block:    2 * time.Second,
				}).Result()
				if err != nil {
					if err != redis.Nil && ctx.Err() == nil {
						q.log.ErrorContext(ctx, "queue - read - failed", logging.Err(err))
					}
					continue
				}
				for _, stream := range res {
					q.deliver(ctx, group, stream.Messages, handler)
				}
			}
		}
	}()
	go func() {
		q.claimPending(ctx, group, consumerName, handler)
		ticker := time.NewTicker(claimInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.claimPending(ctx, group, consumerName, handler)
			}
		}
	}()
	return nil
}

// deliver routes one batch of stream entries to the handler. Handler failures
// leave the entry pending for the claim loop; only garbage is acked away.
func (q *RedisJobQueue) deliver(
	ctx context.Context,
	group string,
	msgs []redis.XMessage,
	handler func(ctx context.Context, jobID string, payload []byte) error,
) {
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			// Garbage entry: ack so it never redelivers.
			_ = q.rdb.XAck(ctx, jobStream, group, msg.ID).Err()
			continue
		}
		if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
			q.log.ErrorContext(ctx, "queue - handle - failed",
				slog.String("jobId", msg.ID), logging.Err(err))
		}
	}
}

// claimPending takes over entries whose consumer stopped acknowledging them
// and pushes them through the normal delivery path.
func (q *RedisJobQueue) claimPending(
	ctx context.Context,
	group, consumer string,
	handler func(ctx context.Context, jobID string, payload []byte) error,
) {
	start := "0-0"
	for {
		msgs, next, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   jobStream,
			Group:    group,
			Consumer: consumer,
			MinIdle:  pendingMinIdle,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				q.log.ErrorContext(ctx, "queue - claim - failed", logging.Err(err))
			}
			return
		}
		if len(msgs) > 0 {
			q.log.InfoContext(ctx, "queue - claim - reclaimed stale jobs", slog.Int("count", len(msgs)))
			q.deliver(ctx, group, msgs, handler)
		}
		if len(msgs) == 0 || next == "0-0" {
			return
		}
		start = next
	}
}

func (q *RedisJobQueue) Acknowledge(ctx context.Context, group, jobID string) error {
	if err := q.rdb.XAck(ctx, jobStream, group, jobID).Err(); err != nil {
		return fmt.Errorf("queue acknowledge: %w", err)
	}
	return q.rdb.XDel(ctx, jobStream, jobID).Err()
}

func (q *RedisJobQueue) Bury(ctx context.Context, jobID string, payload []byte) error {
	err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: deadStream,
		ID:     "*",
		Values: map[string]interface{}{"origin_id": jobID, "data": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("queue bury: %w", err)
	}
	return nil
}

package contracts

import "context"

// JobQueue is the durable queue behind the notification fan-out engine.
type JobQueue interface {
	// Enqueue publishes a job. Jobs sharing a key are deduplicated: a second
	// enqueue for a key still within the dedup window is silently dropped.
	Enqueue(ctx context.Context, jobKey string, payload []byte) error
	// Subscribe starts the consumer loop for the given group. The handler is
	// invoked once per delivered job; a nil return acknowledges it.
	Subscribe(ctx context.Context, group string, handler func(ctx context.Context, jobID string, payload []byte) error) error
	// Acknowledge removes a processed job from the pending set.
	Acknowledge(ctx context.Context, group, jobID string) error
	// Bury moves an exhausted job to the dead set for manual inspection.
	Bury(ctx context.Context, jobID string, payload []byte) error
}

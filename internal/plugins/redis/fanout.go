package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/contracts"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/pkg/logging"
)

const userChannelPrefix = "user:"

// EventBridge fans live events out across instances. PushToUser publishes to
// the recipient's pub/sub channel; every instance runs a subscriber that
// forwards received events into its own in-process registry, so a user's
// sockets are reached no matter which instance they landed on. Delivery is
// pub/sub only, never direct: the publishing instance hears its own publish
// back and delivers locally through the same path as everyone else.
type EventBridge struct {
	rdb   *redis.Client
	local contracts.EventPusher
	log   *slog.Logger
}

func NewEventBridge(rdb *redis.Client, local contracts.EventPusher, log *slog.Logger) *EventBridge {
	return &EventBridge{rdb: rdb, local: local, log: log}
}

func (b *EventBridge) PushToUser(ctx context.Context, userID string, event domain.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		b.log.ErrorContext(ctx, "fanout - publish - marshal failed",
			logging.User(userID), logging.Err(err))
		return
	}
	if err := b.rdb.Publish(ctx, userChannelPrefix+userID, raw).Err(); err != nil {
		b.log.ErrorContext(ctx, "fanout - publish - failed",
			logging.User(userID), logging.Err(err))
	}
}

// Run blocks consuming the bridge subscription until ctx is cancelled.
func (b *EventBridge) Run(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := strings.TrimPrefix(msg.Channel, userChannelPrefix)
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.ErrorContext(ctx, "fanout - receive - malformed event",
					logging.User(userID), logging.Err(err))
				continue
			}
			b.local.PushToUser(ctx, userID, event)
		}
	}
}

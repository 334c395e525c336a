package contracts

import (
	"context"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

// EventPusher is the narrow push-to-user capability injected into the
// engines. The connection layer implements it; engines never hold a
// back-reference to the full gateway. Pushing to an offline user is a no-op.
type EventPusher interface {
	PushToUser(ctx context.Context, userID string, event domain.Event)
}

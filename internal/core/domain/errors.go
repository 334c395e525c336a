package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Services tag raw failures with exactly one of these at
// their boundary; the transport layers map them to envelope codes.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrChannelFailure  = errors.New("channel delivery failed")
	ErrPersistence     = errors.New("persistence unavailable")
)

// Connection-authentication failures. All surface identically to the client
// (error event + close) but stay distinguishable in logs and tests.
var (
	ErrMissingCredential   = fmt.Errorf("%w: missing credential", ErrUnauthenticated)
	ErrMalformedCredential = fmt.Errorf("%w: malformed credential", ErrUnauthenticated)
	ErrInvalidCredential   = fmt.Errorf("%w: expired or invalid signature", ErrUnauthenticated)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrUnauthenticated)
	ErrUserInactive        = fmt.Errorf("%w: user inactive", ErrUnauthenticated)
)

var (
	ErrConversationNotFound = fmt.Errorf("%w: conversation", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("%w: message", ErrNotFound)
	ErrCallNotFound         = fmt.Errorf("%w: call", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)
	ErrCallEnded            = fmt.Errorf("%w: call already ended", ErrConflict)
	ErrSelfConversation     = fmt.Errorf("%w: conversation with oneself", ErrConflict)
	ErrDuplicateRecord      = fmt.Errorf("%w: record already exists", ErrConflict)
)

// Fail tags err with a taxonomy sentinel and the failing operation. It is the
// explicit replacement for annotation-style error wrapping: every engine
// boundary calls it instead of returning raw driver errors.
func Fail(op string, kind error, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

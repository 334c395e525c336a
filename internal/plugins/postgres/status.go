package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type DeliveryStatusRepo struct {
	db *sql.DB
}

func NewDeliveryStatusRepo(db *sql.DB) *DeliveryStatusRepo {
	return &DeliveryStatusRepo{db: db}
}

/*
	CREATE TABLE message_delivery_statuses (
		message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		state      TEXT NOT NULL,
		rank       SMALLINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (message_id, user_id)
	);
*/

// UpsertStatus writes the state only when it outranks the stored one, which
// keeps transitions forward-only (SENT -> DELIVERED -> READ) and makes
// repeated mark-read calls no-ops instead of errors.
func (r *DeliveryStatusRepo) UpsertStatus(
	ctx context.Context,
	messageID uuid.UUID,
	userID string,
	state domain.DeliveryState,
) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO message_delivery_statuses (message_id, user_id, state, rank, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (message_id, user_id) DO UPDATE
		SET state = EXCLUDED.state, rank = EXCLUDED.rank, updated_at = now()
		WHERE message_delivery_statuses.rank < EXCLUDED.rank`,
		messageID, userID, state, state.Rank(),
	)
	return err
}

func (r *DeliveryStatusRepo) GetStatus(
	ctx context.Context,
	messageID uuid.UUID,
	userID string,
) (domain.DeliveryState, error) {
	exec := GetExecutor(ctx, r.db)
	var state domain.DeliveryState
	err := exec.QueryRowContext(ctx, `
		SELECT state FROM message_delivery_statuses
		WHERE message_id = $1 AND user_id = $2`,
		messageID, userID,
	).Scan(&state)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return state, nil
}

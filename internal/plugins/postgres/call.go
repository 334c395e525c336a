package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type CallRepo struct {
	db *sql.DB
}

func NewCallRepo(db *sql.DB) *CallRepo {
	return &CallRepo{db: db}
}

/*
	CREATE TABLE calls (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		initiator_id    TEXT NOT NULL,
		type            TEXT NOT NULL,
		status          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		ended_at        TIMESTAMPTZ
	);
	CREATE TABLE call_participants (
		call_id   UUID NOT NULL REFERENCES calls(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL,
		status    TEXT NOT NULL,
		joined_at TIMESTAMPTZ,
		left_at   TIMESTAMPTZ,
		PRIMARY KEY (call_id, user_id)
	);
*/

func (r *CallRepo) CreateCall(ctx context.Context, call *domain.Call, participantIDs []string) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO calls (id, conversation_id, initiator_id, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		call.ID, call.ConversationID, call.InitiatorID, call.Type, call.Status, call.CreatedAt,
	)
	if err != nil {
		return err
	}
	for _, pid := range participantIDs {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO call_participants (call_id, user_id, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (call_id, user_id) DO NOTHING`,
			call.ID, pid, domain.ParticipantMissed,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *CallRepo) GetCallByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	exec := GetExecutor(ctx, r.db)
	var (
		call    domain.Call
		endedAt sql.NullTime
	)
	err := exec.QueryRowContext(ctx, `
		SELECT id, conversation_id, initiator_id, type, status, created_at, ended_at
		FROM calls WHERE id = $1`, callID,
	).Scan(&call.ID, &call.ConversationID, &call.InitiatorID, &call.Type, &call.Status, &call.CreatedAt, &endedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if endedAt.Valid {
		call.EndedAt = &endedAt.Time
	}
	return &call, nil
}

func (r *CallRepo) GetParticipant(ctx context.Context, callID uuid.UUID, userID string) (*domain.CallParticipant, error) {
	exec := GetExecutor(ctx, r.db)
	var (
		p        domain.CallParticipant
		joinedAt sql.NullTime
		leftAt   sql.NullTime
	)
	err := exec.QueryRowContext(ctx, `
		SELECT call_id, user_id, status, joined_at, left_at
		FROM call_participants WHERE call_id = $1 AND user_id = $2`,
		callID, userID,
	).Scan(&p.CallID, &p.UserID, &p.Status, &joinedAt, &leftAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if joinedAt.Valid {
		p.JoinedAt = &joinedAt.Time
	}
	if leftAt.Valid {
		p.LeftAt = &leftAt.Time
	}
	return &p, nil
}

func (r *CallRepo) ListParticipants(ctx context.Context, callID uuid.UUID) ([]domain.CallParticipant, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT call_id, user_id, status, joined_at, left_at
		FROM call_participants WHERE call_id = $1`, callID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CallParticipant
	for rows.Next() {
		var (
			p        domain.CallParticipant
			joinedAt sql.NullTime
			leftAt   sql.NullTime
		)
		if err := rows.Scan(&p.CallID, &p.UserID, &p.Status, &joinedAt, &leftAt); err != nil {
			return nil, err
		}
		if joinedAt.Valid {
			p.JoinedAt = &joinedAt.Time
		}
		if leftAt.Valid {
			p.LeftAt = &leftAt.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateParticipant is last-write-wins on (call_id, user_id).
func (r *CallRepo) UpdateParticipant(ctx context.Context, p *domain.CallParticipant) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE call_participants SET status = $3, joined_at = $4, left_at = $5
		WHERE call_id = $1 AND user_id = $2`,
		p.CallID, p.UserID, p.Status, p.JoinedAt, p.LeftAt,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CallRepo) UpdateCallStatus(ctx context.Context, callID uuid.UUID, status domain.CallStatus, endedAt *time.Time) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE calls SET status = $2, ended_at = $3 WHERE id = $1`,
		callID, status, endedAt,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

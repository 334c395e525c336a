package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

/*
	-- Conversations; pair_key is the sorted participant pair, unique per
	-- unordered pair so a racing find-or-create can only insert one row.
	CREATE TABLE conversations (
		id              UUID PRIMARY KEY,
		pair_key        TEXT NOT NULL UNIQUE,
		user_a          TEXT NOT NULL,
		user_b          TEXT NOT NULL,
		last_message_id UUID REFERENCES messages(id) DEFERRABLE INITIALLY DEFERRED,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);
*/

func (r *ConversationRepo) GetConversationByID(ctx context.Context, convID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT id, pair_key, user_a, user_b, last_message_id, created_at, updated_at
		FROM conversations WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	return scanConversation(exec.QueryRowContext(ctx, query, convID))
}

func (r *ConversationRepo) GetConversationByPairKey(ctx context.Context, pairKey string) (*domain.Conversation, error) {
	query := `SELECT id, pair_key, user_a, user_b, last_message_id, created_at, updated_at
		FROM conversations WHERE pair_key = $1`
	exec := GetExecutor(ctx, r.db)
	return scanConversation(exec.QueryRowContext(ctx, query, pairKey))
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	query := `INSERT INTO conversations (id, pair_key, user_a, user_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		conv.ID, conv.PairKey, conv.ParticipantIDs[0], conv.ParticipantIDs[1],
		conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRecord
		}
		return err
	}
	return nil
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, convID, messageID uuid.UUID, at time.Time) error {
	query := `UPDATE conversations SET last_message_id = $2, updated_at = $3 WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID, messageID, at)
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

// ListConversationsByParticipant returns the user's conversations sorted by
// most recent activity, each joined with its last message and the user's own
// delivery status for that message.
func (r *ConversationRepo) ListConversationsByParticipant(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	query := `SELECT c.id, c.pair_key, c.user_a, c.user_b, c.last_message_id, c.created_at, c.updated_at,
			m.id, m.conversation_id, m.sender_id, m.content, m.file_id, m.type, m.created_at,
			ds.state
		FROM conversations c
		LEFT JOIN messages m ON m.id = c.last_message_id
		LEFT JOIN message_delivery_statuses ds ON ds.message_id = m.id AND ds.user_id = $1
		WHERE c.user_a = $1 OR c.user_b = $1
		ORDER BY c.updated_at DESC`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ConversationSummary
	for rows.Next() {
		var (
			conv         domain.Conversation
			userA, userB string
			lastMsgID    sql.NullString
			mID          sql.NullString
			mConvID      sql.NullString
			mSender      sql.NullString
			mContent     sql.NullString
			mFileID      sql.NullString
			mType        sql.NullString
			mCreatedAt   sql.NullTime
			state        sql.NullString
		)
		if err := rows.Scan(
			&conv.ID, &conv.PairKey, &userA, &userB, &lastMsgID, &conv.CreatedAt, &conv.UpdatedAt,
			&mID, &mConvID, &mSender, &mContent, &mFileID, &mType, &mCreatedAt,
			&state,
		); err != nil {
			return nil, err
		}
		conv.ParticipantIDs = []string{userA, userB}
		if lastMsgID.Valid {
			id := uuid.MustParse(lastMsgID.String)
			conv.LastMessageID = &id
		}
		summary := domain.ConversationSummary{Conversation: conv}
		if mID.Valid {
			msg := domain.Message{
				ID:             uuid.MustParse(mID.String),
				ConversationID: uuid.MustParse(mConvID.String),
				SenderID:       mSender.String,
				Content:        mContent.String,
				Type:           domain.MessageType(mType.String),
				CreatedAt:      mCreatedAt.Time,
			}
			if mFileID.Valid {
				f := mFileID.String
				msg.FileID = &f
			}
			summary.LastMessage = &msg
		}
		if state.Valid {
			summary.OwnStatus = domain.DeliveryState(state.String)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) DeleteConversation(ctx context.Context, convID uuid.UUID) error {
	// Messages and statuses cascade via foreign keys.
	query := `DELETE FROM conversations WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID)
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

func scanConversation(row *sql.Row) (*domain.Conversation, error) {
	var (
		conv         domain.Conversation
		userA, userB string
		lastMsgID    sql.NullString
	)
	if err := row.Scan(&conv.ID, &conv.PairKey, &userA, &userB, &lastMsgID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	conv.ParticipantIDs = []string{userA, userB}
	if lastMsgID.Valid {
		id := uuid.MustParse(lastMsgID.String)
		conv.LastMessageID = &id
	}
	return &conv, nil
}

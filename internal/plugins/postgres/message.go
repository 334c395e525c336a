package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

/*
	CREATE TABLE messages (
		id              UUID PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id       TEXT NOT NULL,
		content         TEXT NOT NULL DEFAULT '',
		file_id         TEXT,
		type            TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX messages_conversation_created_idx ON messages (conversation_id, created_at DESC);
*/

func (r *MessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	if msg.ConversationID == uuid.Nil {
		return domain.ErrValidation
	}
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, file_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, msg.FileID, msg.Type, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, content, file_id, type, created_at
		FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

// ListMessagesBefore returns up to limit messages newest-first. With a cursor
// the page holds only messages strictly older than the cursor message;
// ordering ties on created_at break on id so pages never overlap.
func (r *MessageRepo) ListMessagesBefore(
	ctx context.Context,
	convID uuid.UUID,
	limit int,
	cursor *uuid.UUID,
) ([]domain.Message, error) {
	exec := GetExecutor(ctx, r.db)
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == nil {
		rows, err = exec.QueryContext(ctx, `
			SELECT id, conversation_id, sender_id, content, file_id, type, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, convID, limit)
	} else {
		rows, err = exec.QueryContext(ctx, `
			SELECT id, conversation_id, sender_id, content, file_id, type, created_at
			FROM messages
			WHERE conversation_id = $1
			AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, convID, *cursor, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []domain.Message
	for rows.Next() {
		var (
			m      domain.Message
			fileID sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &fileID, &m.Type, &m.CreatedAt); err != nil {
			return nil, err
		}
		if fileID.Valid {
			f := fileID.String
			m.FileID = &f
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanMessage(row *sql.Row) (*domain.Message, error) {
	var (
		m      domain.Message
		fileID sql.NullString
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &fileID, &m.Type, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if fileID.Valid {
		f := fileID.String
		m.FileID = &f
	}
	return &m, nil
}

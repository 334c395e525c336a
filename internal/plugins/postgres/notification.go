package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

/*
	-- One row per logical event: the unique (record_type, record_id) pair is
	-- what makes job redelivery idempotent at the storage layer.
	CREATE TABLE notifications (
		id          UUID PRIMARY KEY,
		record_type TEXT NOT NULL,
		record_id   TEXT NOT NULL,
		title       TEXT NOT NULL,
		body        TEXT NOT NULL,
		metadata    JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (record_type, record_id)
	);
	CREATE TABLE notification_recipients (
		notification_id UUID NOT NULL REFERENCES notifications(id) ON DELETE CASCADE,
		user_id         TEXT NOT NULL,
		read            BOOLEAN NOT NULL DEFAULT FALSE,
		read_at         TIMESTAMPTZ,
		PRIMARY KEY (notification_id, user_id)
	);
*/

func (r *NotificationRepo) GetByRecord(ctx context.Context, recordType, recordID string) (*domain.Notification, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, record_type, record_id, title, body, metadata, created_at
		FROM notifications WHERE record_type = $1 AND record_id = $2`,
		recordType, recordID)
	return scanNotification(row)
}

func (r *NotificationRepo) CreateNotification(ctx context.Context, n *domain.Notification, recipientIDs []string) error {
	exec := GetExecutor(ctx, r.db)
	var metadata []byte
	if n.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(n.Metadata); err != nil {
			return err
		}
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO notifications (id, record_type, record_id, title, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecordType, n.RecordID, n.Title, n.Body, metadata, n.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateRecord
		}
		return err
	}
	for _, uid := range recipientIDs {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO notification_recipients (notification_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (notification_id, user_id) DO NOTHING`,
			n.ID, uid,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepo) ListByRecipient(ctx context.Context, userID string) ([]domain.Notification, []domain.NotificationRecipient, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT n.id, n.record_type, n.record_id, n.title, n.body, n.metadata, n.created_at,
			nr.read, nr.read_at
		FROM notifications n
		JOIN notification_recipients nr ON nr.notification_id = n.id
		WHERE nr.user_id = $1
		ORDER BY n.created_at DESC`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var (
		notifs []domain.Notification
		reads  []domain.NotificationRecipient
	)
	for rows.Next() {
		var (
			n        domain.Notification
			metadata []byte
			read     bool
			readAt   sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.RecordType, &n.RecordID, &n.Title, &n.Body, &metadata, &n.CreatedAt, &read, &readAt); err != nil {
			return nil, nil, err
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &n.Metadata)
		}
		rec := domain.NotificationRecipient{NotificationID: n.ID, UserID: userID, Read: read}
		if readAt.Valid {
			rec.ReadAt = &readAt.Time
		}
		notifs = append(notifs, n)
		reads = append(reads, rec)
	}
	return notifs, reads, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID uuid.UUID, userID string) error {
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE notification_recipients SET read = TRUE, read_at = now()
		WHERE notification_id = $1 AND user_id = $2`,
		notificationID, userID,
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

func scanNotification(row *sql.Row) (*domain.Notification, error) {
	var (
		n        domain.Notification
		metadata []byte
	)
	if err := row.Scan(&n.ID, &n.RecordType, &n.RecordID, &n.Title, &n.Body, &metadata, &n.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &n.Metadata)
	}
	return &n, nil
}

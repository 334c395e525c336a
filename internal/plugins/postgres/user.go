package postgres

import (
	"context"
	"database/sql"

	"github.com/Softvence-Omega-Dev-Ninjas/grayson-wescott-backend-sub000/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

/*
	-- Users are owned by the account service; this table is a read model kept
	-- in sync out of band. Only the columns the realtime core needs live here.
	CREATE TABLE users (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL DEFAULT '',
		timezone       TEXT NOT NULL DEFAULT 'UTC',
		status         TEXT NOT NULL DEFAULT 'ACTIVE',
		daily_reminder BOOLEAN NOT NULL DEFAULT FALSE
	);
*/

func (r *UserRepo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `
		SELECT id, name, email, phone, timezone, status, daily_reminder
		FROM users WHERE id = $1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Timezone, &u.Status, &u.DailyReminder); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ListReminderUsers(ctx context.Context) ([]domain.User, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
		SELECT id, name, email, phone, timezone, status, daily_reminder
		FROM users WHERE daily_reminder = TRUE AND status = 'ACTIVE'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Timezone, &u.Status, &u.DailyReminder); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

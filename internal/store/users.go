package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

type userRow struct {
	UserID               int64  `db:"user_id"`
	Username             string `db:"username"`
	Timezone             string `db:"timezone"`
	LanguageCode         string `db:"language_code"`
	Active               bool   `db:"active"`
	NotificationsEnabled bool   `db:"notifications_enabled"`
	CreatedAt            int64  `db:"created_at"`
	LastActive           int64  `db:"last_active"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{
		ID:                   r.UserID,
		Username:             r.Username,
		Timezone:             r.Timezone,
		LanguageCode:         r.LanguageCode,
		Active:               r.Active,
		NotificationsEnabled: r.NotificationsEnabled,
		CreatedAt:            time.Unix(r.CreatedAt, 0).UTC(),
		LastActive:           time.Unix(r.LastActive, 0).UTC(),
	}
}

// UpsertUser inserts or updates a user row keyed by user_id. last_active
// is bumped on every call.
func (db *DB) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	now := time.Now().UTC().Unix()

	_, err := db.ExecContext(ctx, `
		INSERT INTO users (
			user_id, username, timezone, language_code,
			active, notifications_enabled, created_at, last_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username              = excluded.username,
			timezone              = excluded.timezone,
			language_code         = excluded.language_code,
			active                = excluded.active,
			notifications_enabled = excluded.notifications_enabled,
			last_active           = excluded.last_active`,
		u.ID, u.Username, u.Timezone, u.LanguageCode,
		boolToInt(u.Active), boolToInt(u.NotificationsEnabled),
		unixOrNow(u.CreatedAt), now,
	)
	return err
}

// GetUser returns a user by ID or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	query, args, err := db.builder.
		Select("*").
		From("users").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row userRow
	if err := db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// SetTimezone updates only the timezone column.
func (db *DB) SetTimezone(ctx context.Context, userID int64, tz string) error {
	return db.updateUser(ctx, userID, map[string]any{"timezone": tz})
}

// SetNotificationsEnabled updates only the notifications flag.
func (db *DB) SetNotificationsEnabled(ctx context.Context, userID int64, enabled bool) error {
	return db.updateUser(ctx, userID, map[string]any{"notifications_enabled": boolToInt(enabled)})
}

func (db *DB) updateUser(ctx context.Context, userID int64, set map[string]any) error {
	set["last_active"] = time.Now().UTC().Unix()
	query, args, err := db.builder.
		Update("users").
		SetMap(set).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return nil
}

// ListActiveUsers returns all active users, the population the daily
// expiry sweep walks. Muted users are included; the sweep still marks
// their cases and only withholds the notice.
func (db *DB) ListActiveUsers(ctx context.Context) ([]domain.User, error) {
	query, args, err := db.builder.
		Select("*").
		From("users").
		Where(squirrel.Eq{"active": 1}).
		OrderBy("user_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var row userRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		users = append(users, *row.toDomain())
	}
	return users, rows.Err()
}

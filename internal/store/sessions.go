package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

type sessionRow struct {
	UserID    int64  `db:"user_id"`
	Step      string `db:"step"`
	Data      string `db:"data"`
	ExpiresAt int64  `db:"expires_at"`
}

// GetSession returns the stored dialogue cursor for a user, or
// ErrNotFound when none exists yet. Expiry handling and lazy creation
// are the dialogue manager's concern.
func (db *DB) GetSession(ctx context.Context, userID int64) (*domain.Session, error) {
	query, args, err := db.builder.
		Select("*").
		From("sessions").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row sessionRow
	if err := db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("session %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}

	data := map[string]string{}
	if row.Data != "" {
		// Unreadable data degrades to an empty map; the dialogue falls
		// back to idle rather than wedging the user.
		_ = json.Unmarshal([]byte(row.Data), &data)
	}

	return &domain.Session{
		UserID:    row.UserID,
		Step:      domain.ParseStep(row.Step),
		Data:      data,
		ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC(),
	}, nil
}

// SaveSession upserts the dialogue cursor, one row per user.
func (db *DB) SaveSession(ctx context.Context, s *domain.Session) error {
	data := s.Data
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, step, data, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			step       = excluded.step,
			data       = excluded.data,
			expires_at = excluded.expires_at`,
		s.UserID, string(s.Step), string(raw), s.ExpiresAt.UTC().Unix(),
	)
	return err
}

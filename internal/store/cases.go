package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

type caseRow struct {
	ID          string `db:"id"`
	OwnerID     int64  `db:"owner_id"`
	FileNumber  string `db:"file_number"`
	Accuser     string `db:"accuser"`
	Defendant   string `db:"defendant"`
	PaymentDate string `db:"payment_date"`
	Deadline    string `db:"deadline"`
	Status      string `db:"status"`
	Notified30  bool   `db:"notified_30"`
	Notified7   bool   `db:"notified_7"`
	Notified1   bool   `db:"notified_1"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r caseRow) toDomain() domain.Case {
	return domain.Case{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		FileNumber:  r.FileNumber,
		Accuser:     r.Accuser,
		Defendant:   r.Defendant,
		PaymentDate: r.PaymentDate,
		Deadline:    r.Deadline,
		Status:      domain.Status(r.Status),
		Notified30:  r.Notified30,
		Notified7:   r.Notified7,
		Notified1:   r.Notified1,
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

// CreateCase inserts a new case. A second case with the same
// (owner_id, file_number) fails with ErrDuplicate; the unique index is
// the arbiter, so concurrent commits race safely.
func (db *DB) CreateCase(ctx context.Context, c *domain.Case) error {
	if c == nil {
		return errors.New("nil case")
	}
	now := time.Now().UTC().Unix()

	query, args, err := db.builder.
		Insert("cases").
		Columns("id", "owner_id", "file_number", "accuser", "defendant",
			"payment_date", "deadline", "status",
			"notified_30", "notified_7", "notified_1",
			"created_at", "updated_at").
		Values(c.ID, c.OwnerID, c.FileNumber, c.Accuser, c.Defendant,
			c.PaymentDate, c.Deadline, string(c.Status),
			boolToInt(c.Notified30), boolToInt(c.Notified7), boolToInt(c.Notified1),
			now, now).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("case %q: %w", c.FileNumber, ErrDuplicate)
		}
		return err
	}
	return nil
}

// GetCase returns a case by ID or ErrNotFound.
func (db *DB) GetCase(ctx context.Context, id string) (*domain.Case, error) {
	query, args, err := db.builder.
		Select("*").
		From("cases").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row caseRow
	if err := db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

// ListCasesByOwner returns one owner's cases with the given status.
func (db *DB) ListCasesByOwner(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Case, error) {
	return db.listCases(ctx, squirrel.Eq{"owner_id": ownerID, "status": string(status)})
}

// ListCasesNotExpired returns every case the hourly sweep must evaluate.
// The status filter is what makes expiry notices one-time: an expired
// case never enters a later sweep.
func (db *DB) ListCasesNotExpired(ctx context.Context) ([]domain.Case, error) {
	return db.listCases(ctx, squirrel.NotEq{"status": string(domain.StatusExpired)})
}

func (db *DB) listCases(ctx context.Context, where any) ([]domain.Case, error) {
	query, args, err := db.builder.
		Select("*").
		From("cases").
		Where(where).
		OrderBy("created_at ASC, id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		var row caseRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		cases = append(cases, row.toDomain())
	}
	return cases, rows.Err()
}

// ReplaceDeadline rewrites payment date, deadline, status and all three
// reminder flags in one statement, so a partially applied edit can never
// be observed.
func (db *DB) ReplaceDeadline(ctx context.Context, id, paymentDate, deadline string) error {
	return db.updateCase(ctx, id, map[string]any{
		"payment_date": paymentDate,
		"deadline":     deadline,
		"status":       string(domain.StatusActive),
		"notified_30":  0,
		"notified_7":   0,
		"notified_1":   0,
	})
}

// SetCaseStatus updates only the status column.
func (db *DB) SetCaseStatus(ctx context.Context, id string, status domain.Status) error {
	return db.updateCase(ctx, id, map[string]any{"status": string(status)})
}

// MarkCasesExpired bulk-marks the given cases expired and returns how
// many rows actually changed.
func (db *DB) MarkCasesExpired(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := db.builder.
		Update("cases").
		SetMap(map[string]any{
			"status":     string(domain.StatusExpired),
			"updated_at": time.Now().UTC().Unix(),
		}).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetReminderNotified flips a single reminder flag without touching the
// other two, so one threshold firing cannot clobber a concurrent update.
func (db *DB) SetReminderNotified(ctx context.Context, id string, threshold int) error {
	var col string
	switch threshold {
	case domain.Threshold30:
		col = "notified_30"
	case domain.Threshold7:
		col = "notified_7"
	case domain.Threshold1:
		col = "notified_1"
	default:
		return fmt.Errorf("unknown reminder threshold %d", threshold)
	}
	return db.updateCase(ctx, id, map[string]any{col: 1})
}

// DeleteCase removes a case. Deleting an absent case is not an error;
// the operation is idempotent.
func (db *DB) DeleteCase(ctx context.Context, id string) error {
	query, args, err := db.builder.
		Delete("cases").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

func (db *DB) updateCase(ctx context.Context, id string, set map[string]any) error {
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC().Unix()
	}
	query, args, err := db.builder.
		Update("cases").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	return nil
}

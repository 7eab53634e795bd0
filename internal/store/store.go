package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// Registers the "sqlite" driver (pure Go).
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Repo defines storage operations for users, cases and dialogue sessions.
type Repo interface {
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	SetTimezone(ctx context.Context, userID int64, tz string) error
	SetNotificationsEnabled(ctx context.Context, userID int64, enabled bool) error
	ListActiveUsers(ctx context.Context) ([]domain.User, error)

	CreateCase(ctx context.Context, c *domain.Case) error
	GetCase(ctx context.Context, id string) (*domain.Case, error)
	ListCasesByOwner(ctx context.Context, ownerID int64, status domain.Status) ([]domain.Case, error)
	ListCasesNotExpired(ctx context.Context) ([]domain.Case, error)
	ReplaceDeadline(ctx context.Context, id, paymentdate, deadline string) error
	SetCaseStatus(ctx context.Context, id string, status domain.Status) error
	MarkCasesExpired(ctx context.Context, ids []string) (int64, error)
	SetReminderNotified(ctx context.Context, id string, threshold int) error
	DeleteCase(ctx context.Context, id string) error

	GetSession(ctx context.Context, userID int64) (*domain.Session, error)
	SaveSession(ctx context.Context, s *domain.Session) error

	Close() error
}

// DB implements Repo on an embedded SQLite database.
type DB struct {
	*sqlx.DB
	builder squirrel.StatementBuilderType
}

// Open opens (or creates) the SQLite database at path, applies PRAGMAs,
// runs embedded migrations and returns the repository.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := runMigrations(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &DB{
		DB:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

func applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the underlying database resources.
func (db *DB) Close() error { return db.DB.Close() }

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// failure. Uniqueness of (owner_id, file_number) is enforced by the
// schema, not re-derived here; a losing concurrent writer surfaces as
// this error.
func IsUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UTC().Unix()
	}
	return t.UTC().Unix()
}

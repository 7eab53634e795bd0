package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCase(owner int64, fileNumber string) *domain.Case {
	return &domain.Case{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		FileNumber:  fileNumber,
		Accuser:     "A",
		Defendant:   "B",
		PaymentDate: "2023-06-01",
		Deadline:    "2025-06-01",
		Status:      domain.StatusActive,
	}
}

func TestUserRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	u := &domain.User{
		ID: 42, Username: "alice", Timezone: "Asia/Tokyo",
		LanguageCode: "ja", Active: true, NotificationsEnabled: true,
	}
	if err := db.UpsertUser(ctx, u); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := db.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Timezone != "Asia/Tokyo" || !got.Active || !got.NotificationsEnabled {
		t.Fatalf("unexpected user: %+v", got)
	}

	if err := db.SetTimezone(ctx, 42, "Europe/Paris"); err != nil {
		t.Fatalf("set timezone: %v", err)
	}
	if err := db.SetNotificationsEnabled(ctx, 42, false); err != nil {
		t.Fatalf("set notifications: %v", err)
	}
	got, _ = db.GetUser(ctx, 42)
	if got.Timezone != "Europe/Paris" || got.NotificationsEnabled {
		t.Fatalf("partial updates not applied: %+v", got)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetUser(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateCase_DuplicateFileNumber(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := testCase(1, "F-001")
	if err := db.CreateCase(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := testCase(1, "F-001")
	dup.Accuser = "someone else"
	err := db.CreateCase(ctx, dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	// The losing writer must not have mutated the first case.
	got, err := db.GetCase(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Accuser != "A" {
		t.Fatalf("first case mutated by duplicate insert: %+v", got)
	}

	// The same file number under a different owner is fine.
	if err := db.CreateCase(ctx, testCase(2, "F-001")); err != nil {
		t.Fatalf("different owner, same file number: %v", err)
	}
}

func TestSetReminderNotified_SingleFlag(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := testCase(1, "F-010")
	if err := db.CreateCase(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.SetReminderNotified(ctx, c.ID, domain.Threshold7); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, _ := db.GetCase(ctx, c.ID)
	if got.Notified30 || !got.Notified7 || got.Notified1 {
		t.Fatalf("want only notified_7 set, got %+v", got)
	}

	if err := db.SetReminderNotified(ctx, c.ID, 99); err == nil {
		t.Fatal("unknown threshold must error")
	}
}

func TestReplaceDeadline_ResetsFlagsAndStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := testCase(1, "F-020")
	if err := db.CreateCase(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = db.SetReminderNotified(ctx, c.ID, domain.Threshold30)
	_ = db.SetCaseStatus(ctx, c.ID, domain.StatusExpired)

	if err := db.ReplaceDeadline(ctx, c.ID, "2024-01-01", "2026-01-01"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, _ := db.GetCase(ctx, c.ID)
	if got.PaymentDate != "2024-01-01" || got.Deadline != "2026-01-01" {
		t.Fatalf("dates not rewritten: %+v", got)
	}
	if got.Status != domain.StatusActive || got.Notified30 || got.Notified7 || got.Notified1 {
		t.Fatalf("status/flags not reset: %+v", got)
	}
}

func TestMarkCasesExpired(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, b := testCase(1, "F-030"), testCase(1, "F-031")
	_ = db.CreateCase(ctx, a)
	_ = db.CreateCase(ctx, b)

	n, err := db.MarkCasesExpired(ctx, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 rows, got %d", n)
	}

	left, err := db.ListCasesNotExpired(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expired cases still listed: %d", len(left))
	}

	if n, err := db.MarkCasesExpired(ctx, nil); err != nil || n != 0 {
		t.Fatalf("empty id list: n=%d err=%v", n, err)
	}
}

func TestDeleteCase_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	c := testCase(1, "F-040")
	_ = db.CreateCase(ctx, c)

	if err := db.DeleteCase(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.DeleteCase(ctx, c.ID); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
	if _, err := db.GetCase(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSession(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for fresh user, got %v", err)
	}

	s := &domain.Session{
		UserID:    5,
		Step:      domain.StepAccuser,
		Data:      map[string]string{"file_number": "F-001"},
		ExpiresAt: time.Now().Add(domain.SessionTTL),
	}
	if err := db.SaveSession(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetSession(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Step != domain.StepAccuser || got.Data["file_number"] != "F-001" {
		t.Fatalf("unexpected session: %+v", got)
	}

	// Upsert replaces, never duplicates.
	s.Step = domain.StepNone
	s.Data = nil
	if err := db.SaveSession(ctx, s); err != nil {
		t.Fatalf("save idle: %v", err)
	}
	got, _ = db.GetSession(ctx, 5)
	if !got.Idle() || len(got.Data) != 0 {
		t.Fatalf("session not reset: %+v", got)
	}
}

package domain

import "time"

// Status is the lifecycle state of a tracked case.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCompleted Status = "completed"
)

// Reminder thresholds in days before the deadline. Each one fires at most
// once per case.
const (
	Threshold30 = 30
	Threshold7  = 7
	Threshold1  = 1
)

// Case is a tracked legal matter. PaymentDate and Deadline are civil dates
// stored as YYYY-MM-DD strings; they carry no timezone of their own, and
// all day arithmetic happens in the owner's zone.
type Case struct {
	ID          string    `db:"id"`
	OwnerID     int64     `db:"owner_id"`
	FileNumber  string    `db:"file_number"`
	Accuser     string    `db:"accuser"`
	Defendant   string    `db:"defendant"`
	PaymentDate string    `db:"payment_date"`
	Deadline    string    `db:"deadline"`
	Status      Status    `db:"status"`
	Notified30  bool      `db:"notified_30"`
	Notified7   bool      `db:"notified_7"`
	Notified1   bool      `db:"notified_1"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// User is one chat participant. Timezone is always a resolvable IANA name;
// UTC when detection failed.
type User struct {
	ID                   int64     `db:"user_id"`
	Username             string    `db:"username"`
	Timezone             string    `db:"timezone"`
	LanguageCode         string    `db:"language_code"`
	Active               bool      `db:"active"`
	NotificationsEnabled bool      `db:"notifications_enabled"`
	CreatedAt            time.Time `db:"created_at"`
	LastActive           time.Time `db:"last_active"`
}

// SessionTTL is the sliding window a dialogue stays resumable.
const SessionTTL = 24 * time.Hour

// Session is the ephemeral per-user dialogue cursor. A session with
// StepNone is idle.
type Session struct {
	UserID    int64
	Step      Step
	Data      map[string]string
	ExpiresAt time.Time
}

// Idle reports whether no dialogue is in progress.
func (s *Session) Idle() bool { return s.Step == StepNone }

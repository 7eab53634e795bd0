// Package scheduler runs the periodic sweeps that drive deadline
// reminders and expiry transitions. It talks to users only through the
// Sender interface and to storage only through store.Repo; the intake
// side and the scheduler communicate exclusively via persisted records.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
)

// Sender is the minimal interface the scheduler needs to notify a user.
// telegram.Router implements it. Failed sends are logged by the caller
// and never retried.
type Sender interface {
	SendMessage(chatID int64, text string) error
	SendMenuMessage(chatID int64, text string) error
}

// Scheduler owns the two periodic sweeps.
type Scheduler struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender

	reminderEvery time.Duration
	expiryEvery   time.Duration
	now           func() time.Time

	reminderBusy atomic.Bool
	expiryBusy   atomic.Bool
}

// New creates a Scheduler with the given sweep periods.
func New(repo store.Repo, log *zap.Logger, sender Sender, reminderEvery, expiryEvery time.Duration) *Scheduler {
	return &Scheduler{
		repo:          repo,
		log:           log,
		sender:        sender,
		reminderEvery: reminderEvery,
		expiryEvery:   expiryEvery,
		now:           time.Now,
	}
}

// Run ticks both sweeps until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	reminder := time.NewTicker(s.reminderEvery)
	defer reminder.Stop()
	expiry := time.NewTicker(s.expiryEvery)
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-reminder.C:
			s.RunHourlySweep(ctx)
		case <-expiry.C:
			s.RunDailyExpirySweep(ctx)
		}
	}
}

// RunHourlySweep evaluates every non-expired case: flips newly expired
// ones and fires at most one reminder per 30/7/1 threshold. Safe to call
// on a fixed timer; a tick that lands while the previous sweep is still
// running is skipped.
func (s *Scheduler) RunHourlySweep(ctx context.Context) {
	if !s.reminderBusy.CompareAndSwap(false, true) {
		s.log.Warn("reminder sweep still running, skipping tick")
		return
	}
	defer s.reminderBusy.Store(false)

	s.log.Info("reminder sweep started")
	cases, err := s.repo.ListCasesNotExpired(ctx)
	if err != nil {
		s.log.Error("list cases failed", zap.Error(err))
		return
	}

	now := s.now()
	for i := range cases {
		// Failures are per case; one broken record never stops the rest.
		s.processCase(ctx, &cases[i], now)
	}
	s.log.Info("reminder sweep completed", zap.Int("cases", len(cases)))
}

func (s *Scheduler) processCase(ctx context.Context, c *domain.Case, now time.Time) {
	user, err := s.repo.GetUser(ctx, c.OwnerID)
	if err != nil {
		s.log.Error("load case owner failed",
			zap.String("case", c.ID), zap.Int64("owner", c.OwnerID), zap.Error(err))
		return
	}
	// Muted and zone-less users are not served here; the daily sweep and
	// the on-demand freshness pass keep their statuses from going stale.
	if !user.Active || user.Timezone == "" || !user.NotificationsEnabled {
		return
	}

	daysLeft, err := domain.DaysUntil(c.Deadline, user.Timezone, now)
	if err != nil {
		s.log.Error("days-until failed", zap.String("case", c.ID),
			zap.String("tz", user.Timezone), zap.Error(err))
		return
	}

	if daysLeft < 0 {
		// Once expired the status filter keeps this case out of every
		// later sweep, so the notice below cannot repeat.
		if err := s.repo.SetCaseStatus(ctx, c.ID, domain.StatusExpired); err != nil {
			s.log.Error("mark expired failed", zap.String("case", c.ID), zap.Error(err))
			return
		}
		s.log.Info("case expired", zap.String("case", c.ID), zap.String("file", c.FileNumber))
		if err := s.sender.SendMessage(c.OwnerID, fmt.Sprintf(textCaseExpired, c.FileNumber)); err != nil {
			s.log.Error("expiry notice failed", zap.String("case", c.ID), zap.Error(err))
		}
		return
	}

	// The bands are disjoint, so at most one fires per evaluation; flags
	// make each fire at most once per case lifetime.
	if daysLeft <= 30 && daysLeft > 7 && !c.Notified30 {
		s.remind(ctx, c, domain.Threshold30,
			fmt.Sprintf(textReminder30, c.FileNumber, c.Accuser, c.Defendant, daysLeft))
	}
	if daysLeft <= 7 && daysLeft > 1 && !c.Notified7 {
		s.remind(ctx, c, domain.Threshold7, fmt.Sprintf(textReminder7, c.FileNumber, daysLeft))
	}
	if daysLeft == 1 && !c.Notified1 {
		s.remind(ctx, c, domain.Threshold1, fmt.Sprintf(textReminder1, c.FileNumber))
	}
}

func (s *Scheduler) remind(ctx context.Context, c *domain.Case, threshold int, text string) {
	if err := s.sender.SendMenuMessage(c.OwnerID, text); err != nil {
		// Not retried; the flag stays clear so the next sweep tries again.
		s.log.Error("reminder send failed", zap.String("case", c.ID),
			zap.Int("threshold", threshold), zap.Error(err))
		return
	}
	if err := s.repo.SetReminderNotified(ctx, c.ID, threshold); err != nil {
		s.log.Error("set reminder flag failed", zap.String("case", c.ID),
			zap.Int("threshold", threshold), zap.Error(err))
		return
	}
	s.log.Info("reminder sent", zap.String("case", c.ID),
		zap.String("file", c.FileNumber), zap.Int("threshold", threshold))
}

// RunDailyExpirySweep bulk-marks expired cases for every active user.
// It is a safety net behind the hourly sweep, not a replacement for it.
func (s *Scheduler) RunDailyExpirySweep(ctx context.Context) {
	if !s.expiryBusy.CompareAndSwap(false, true) {
		s.log.Warn("expiry sweep still running, skipping tick")
		return
	}
	defer s.expiryBusy.Store(false)

	s.log.Info("expiry sweep started")
	users, err := s.repo.ListActiveUsers(ctx)
	if err != nil {
		s.log.Error("list users failed", zap.Error(err))
		return
	}

	now := s.now()
	var total int64
	for i := range users {
		u := &users[i]
		marked, err := ExpireUserCases(ctx, s.repo, u, now)
		if err != nil {
			s.log.Error("expire cases failed", zap.Int64("user", u.ID), zap.Error(err))
			continue
		}
		if marked == 0 {
			continue
		}
		total += marked
		s.log.Info("cases expired in bulk", zap.Int64("user", u.ID), zap.Int64("marked", marked))
		// The marking above is unconditional; only the notice honors the
		// notification preference.
		if !u.NotificationsEnabled {
			continue
		}
		if err := s.sender.SendMessage(u.ID, fmt.Sprintf(textBulkExpired, marked)); err != nil {
			s.log.Error("bulk expiry notice failed", zap.Int64("user", u.ID), zap.Error(err))
		}
	}
	s.log.Info("expiry sweep completed", zap.Int64("total", total))
}

// ExpireUserCases marks all of one user's lapsed active cases expired and
// returns how many changed. Shared by the daily sweep and the on-demand
// freshness pass the front end runs before listing cases.
func ExpireUserCases(ctx context.Context, repo store.Repo, u *domain.User, now time.Time) (int64, error) {
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}

	cases, err := repo.ListCasesByOwner(ctx, u.ID, domain.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("list cases: %w", err)
	}

	var lapsed []string
	for _, c := range cases {
		expired, err := domain.IsExpired(c.Deadline, tz, now)
		if err != nil {
			return 0, fmt.Errorf("case %s: %w", c.ID, err)
		}
		if expired {
			lapsed = append(lapsed, c.ID)
		}
	}
	if len(lapsed) == 0 {
		return 0, nil
	}
	return repo.MarkCasesExpired(ctx, lapsed)
}

// Notification texts.
const (
	textReminder30  = "⏰ Reminder: Case %q (%s vs %s) is due in %d days."
	textReminder7   = "🔔 Case %q is due in %d days."
	textReminder1   = "🚨 Case %q is due TOMORROW!"
	textCaseExpired = "🧹 The case %q has expired and has been marked as inactive."
	textBulkExpired = "🧹 I've marked %d case(s) as expired. These cases had already passed their deadline and are no longer active."
)

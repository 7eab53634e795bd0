// Package dialog implements the conversational intake state machine: a
// strict per-user linear dialogue that collects the four case fields and
// commits a Case, plus the shorter edit-deadline variant. State lives in
// the persisted Session; the in-memory marker only guards against
// duplicate dialogue starts.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
)

// Session data keys.
const (
	keyFileNumber = "file_number"
	keyAccuser    = "accuser"
	keyDefendant  = "defendant"
	keyCaseID     = "case_id"
)

// expiryWarnWindow is how close to session expiry the one-time warning
// fires.
const expiryWarnWindow = time.Hour

// Kind tags a dialogue result.
type Kind int

const (
	// KindIgnored: no dialogue in progress; the input is not ours.
	KindIgnored Kind = iota
	// KindBusy: a dialogue is already active for this user.
	KindBusy
	// KindPrompt: send Prompt and wait for the next input.
	KindPrompt
	// KindCommitted: the dialogue finished and Case was persisted.
	KindCommitted
	// KindAborted: the dialogue was discarded; Reason is user-facing.
	KindAborted
)

// Result is the outcome of one dialogue interaction.
type Result struct {
	Kind   Kind
	Prompt string
	Case   *domain.Case
	Reason string
	// ExpiryWarning asks the front end to warn that the pending
	// dialogue is close to timing out. The step is not altered.
	ExpiryWarning bool
}

// Manager drives all intake dialogues.
type Manager struct {
	repo store.Repo
	log  *zap.Logger
	now  func() time.Time

	mu     sync.Mutex
	active map[int64]struct{}
}

func New(repo store.Repo, log *zap.Logger) *Manager {
	return &Manager{
		repo:   repo,
		log:    log,
		now:    time.Now,
		active: make(map[int64]struct{}),
	}
}

// Active reports whether the user currently has a dialogue in progress.
func (m *Manager) Active(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[userID]
	return ok
}

func (m *Manager) acquire(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[userID]; ok {
		return false
	}
	m.active[userID] = struct{}{}
	return true
}

func (m *Manager) release(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, userID)
}

// StartIntake begins the four-step case creation dialogue. A second start
// while one is active is rejected, not queued.
func (m *Manager) StartIntake(ctx context.Context, userID int64) (Result, error) {
	if !m.acquire(userID) {
		return Result{Kind: KindBusy}, nil
	}

	s := &domain.Session{
		UserID:    userID,
		Step:      domain.StepFileNumber,
		Data:      map[string]string{},
		ExpiresAt: m.now().Add(domain.SessionTTL),
	}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		m.release(userID)
		return Result{}, fmt.Errorf("start intake: %w", err)
	}
	return Result{Kind: KindPrompt, Prompt: promptFileNumber}, nil
}

// StartEditDeadline begins the single-step payment date edit for an
// existing case.
func (m *Manager) StartEditDeadline(ctx context.Context, userID int64, caseID string) (Result, error) {
	c, err := m.repo.GetCase(ctx, caseID)
	if err != nil {
		if isNotFound(err) {
			return Result{Kind: KindAborted, Reason: reasonCaseNotFound}, nil
		}
		return Result{}, fmt.Errorf("load case: %w", err)
	}
	if c.OwnerID != userID {
		return Result{Kind: KindAborted, Reason: reasonCaseNotFound}, nil
	}

	if !m.acquire(userID) {
		return Result{Kind: KindBusy}, nil
	}

	s := &domain.Session{
		UserID:    userID,
		Step:      domain.StepEditPaymentDate,
		Data:      map[string]string{keyCaseID: caseID},
		ExpiresAt: m.now().Add(domain.SessionTTL),
	}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		m.release(userID)
		return Result{}, fmt.Errorf("start edit: %w", err)
	}
	return Result{Kind: KindPrompt, Prompt: promptEditPaymentDate}, nil
}

// Cancel synchronously clears any pending dialogue. It reports whether
// there was one to cancel.
func (m *Manager) Cancel(ctx context.Context, userID int64) (bool, error) {
	had := m.Active(userID)
	if err := m.clearToIdle(ctx, userID); err != nil {
		return had, err
	}
	return had, nil
}

// HandleInput feeds one free-text message into the user's dialogue.
func (m *Manager) HandleInput(ctx context.Context, userID int64, text string) (Result, error) {
	s, err := m.session(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	if s.Idle() {
		// No pending step. Make sure no stale lock survives a reset.
		m.release(userID)
		return Result{Kind: KindIgnored}, nil
	}

	warn := false
	if s.ExpiresAt.Sub(m.now()) < expiryWarnWindow {
		// Touch the session so the sliding window moves and the
		// warning fires only once.
		warn = true
		s.ExpiresAt = m.now().Add(domain.SessionTTL)
		if err := m.repo.SaveSession(ctx, s); err != nil {
			return Result{}, fmt.Errorf("touch session: %w", err)
		}
	}

	res, err := m.step(ctx, s, strings.TrimSpace(text))
	if err != nil {
		return Result{}, err
	}
	res.ExpiryWarning = warn
	return res, nil
}

// step dispatches on the session's current step. Adding a step means
// adding a case here; the compiler keeps the set closed.
func (m *Manager) step(ctx context.Context, s *domain.Session, text string) (Result, error) {
	switch s.Step {
	case domain.StepFileNumber:
		return m.collect(ctx, s, text, keyFileNumber, domain.StepAccuser, repromptFileNumber, promptAccuser)
	case domain.StepAccuser:
		return m.collect(ctx, s, text, keyAccuser, domain.StepDefendant, repromptAccuser, promptDefendant)
	case domain.StepDefendant:
		return m.collect(ctx, s, text, keyDefendant, domain.StepPaymentDate, repromptDefendant, promptPaymentDate)
	case domain.StepPaymentDate:
		return m.commitCreate(ctx, s, text)
	case domain.StepEditPaymentDate:
		return m.commitEdit(ctx, s, text)
	case domain.StepNone:
		return Result{Kind: KindIgnored}, nil
	default:
		// A session with an unknown step is an invariant violation;
		// degrade to idle instead of propagating.
		m.log.Warn("session in unknown step, resetting",
			zap.Int64("user", s.UserID), zap.String("step", string(s.Step)))
		if err := m.clearToIdle(ctx, s.UserID); err != nil {
			return Result{}, err
		}
		return Result{Kind: KindIgnored}, nil
	}
}

// collect validates one free-text field, merges it into the session and
// advances to the next step. Invalid input re-prompts the same step and
// never drops fields already collected.
func (m *Manager) collect(ctx context.Context, s *domain.Session, text, key string, next domain.Step, reprompt, prompt string) (Result, error) {
	if text == "" {
		return Result{Kind: KindPrompt, Prompt: reprompt}, nil
	}

	s.Data[key] = text
	s.Step = next
	s.ExpiresAt = m.now().Add(domain.SessionTTL)
	if err := m.repo.SaveSession(ctx, s); err != nil {
		return Result{}, fmt.Errorf("advance session: %w", err)
	}
	return Result{Kind: KindPrompt, Prompt: prompt}, nil
}

// commitCreate runs the ordered commit validation and persists the case.
// The first failing check discards the whole in-progress case; there is
// no partial retry of just the date step.
func (m *Manager) commitCreate(ctx context.Context, s *domain.Session, text string) (Result, error) {
	userID := s.UserID

	deadline, reason := m.validateDate(ctx, userID, text)
	if reason != "" {
		return m.abort(ctx, userID, reason)
	}

	fileNumber := s.Data[keyFileNumber]
	accuser := s.Data[keyAccuser]
	defendant := s.Data[keyDefendant]
	if fileNumber == "" || accuser == "" || defendant == "" {
		return m.abort(ctx, userID, reasonMissingData)
	}

	c := &domain.Case{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		FileNumber:  fileNumber,
		Accuser:     accuser,
		Defendant:   defendant,
		PaymentDate: text,
		Deadline:    deadline,
		Status:      domain.StatusActive,
	}
	if err := m.repo.CreateCase(ctx, c); err != nil {
		if isDuplicate(err) {
			return m.abort(ctx, userID, fmt.Sprintf(reasonDuplicateFmt, fileNumber))
		}
		// Storage failed; the dialogue is still discarded so the user
		// is never stuck mid-flow.
		m.log.Error("create case failed", zap.Int64("user", userID), zap.Error(err))
		return m.abort(ctx, userID, reasonInternal)
	}

	if err := m.clearToIdle(ctx, userID); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindCommitted, Case: c}, nil
}

// commitEdit rewrites the payment date of an existing case, resetting
// status and all reminder flags.
func (m *Manager) commitEdit(ctx context.Context, s *domain.Session, text string) (Result, error) {
	userID := s.UserID

	deadline, reason := m.validateDate(ctx, userID, text)
	if reason != "" {
		return m.abort(ctx, userID, reason)
	}

	caseID := s.Data[keyCaseID]
	c, err := m.repo.GetCase(ctx, caseID)
	if err != nil {
		if isNotFound(err) {
			return m.abort(ctx, userID, reasonCaseNotFound)
		}
		return Result{}, fmt.Errorf("load case: %w", err)
	}

	if err := m.repo.ReplaceDeadline(ctx, caseID, text, deadline); err != nil {
		if isNotFound(err) {
			return m.abort(ctx, userID, reasonCaseNotFound)
		}
		m.log.Error("replace deadline failed", zap.String("case", caseID), zap.Error(err))
		return m.abort(ctx, userID, reasonInternal)
	}

	c.PaymentDate = text
	c.Deadline = deadline
	c.Status = domain.StatusActive
	c.Notified30, c.Notified7, c.Notified1 = false, false, false

	if err := m.clearToIdle(ctx, userID); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindCommitted, Case: c}, nil
}

// validateDate runs the shared commit checks in order: parse, not in the
// future, deadline not already expired in the owner's timezone. It
// returns the computed deadline, or a user-facing reason on the first
// failure.
func (m *Manager) validateDate(ctx context.Context, userID int64, text string) (deadline, reason string) {
	d, err := domain.ParseDate(text)
	if err != nil {
		return "", reasonBadDate
	}
	if domain.IsFuture(d, m.now()) {
		return "", reasonFutureDate
	}
	deadline = domain.ComputeDeadline(d)

	tz := "UTC"
	if u, err := m.repo.GetUser(ctx, userID); err == nil && u.Timezone != "" {
		tz = u.Timezone
	}
	expired, err := domain.IsExpired(deadline, tz, m.now())
	if err != nil {
		m.log.Error("expiry check failed", zap.Int64("user", userID),
			zap.String("tz", tz), zap.Error(err))
		return "", reasonInternal
	}
	if expired {
		return "", reasonExpired
	}
	return deadline, ""
}

func (m *Manager) abort(ctx context.Context, userID int64, reason string) (Result, error) {
	if err := m.clearToIdle(ctx, userID); err != nil {
		return Result{}, err
	}
	return Result{Kind: KindAborted, Reason: reason}, nil
}

// clearToIdle resets the session and releases the dialogue lock. Called
// on commit, abort and cancel, so the lock is never left dangling.
func (m *Manager) clearToIdle(ctx context.Context, userID int64) error {
	defer m.release(userID)
	s := &domain.Session{
		UserID:    userID,
		Step:      domain.StepNone,
		Data:      map[string]string{},
		ExpiresAt: m.now().Add(domain.SessionTTL),
	}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// session loads the user's session, creating it lazily and resetting an
// expired one to idle before returning it.
func (m *Manager) session(ctx context.Context, userID int64) (*domain.Session, error) {
	s, err := m.repo.GetSession(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("load session: %w", err)
		}
		s = &domain.Session{
			UserID:    userID,
			Step:      domain.StepNone,
			Data:      map[string]string{},
			ExpiresAt: m.now().Add(domain.SessionTTL),
		}
		if err := m.repo.SaveSession(ctx, s); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return s, nil
	}

	if s.ExpiresAt.Before(m.now()) {
		// Timed out: discard partial fields and resume from idle.
		m.release(userID)
		s.Step = domain.StepNone
		s.Data = map[string]string{}
		s.ExpiresAt = m.now().Add(domain.SessionTTL)
		if err := m.repo.SaveSession(ctx, s); err != nil {
			return nil, fmt.Errorf("reset expired session: %w", err)
		}
	}
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	return s, nil
}

func isNotFound(err error) bool  { return errors.Is(err, store.ErrNotFound) }
func isDuplicate(err error) bool { return errors.Is(err, store.ErrDuplicate) }

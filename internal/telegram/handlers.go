package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/dialog"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/scheduler"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
)

// ensureUser returns the user row for chatID, creating it on first contact.
// from may be nil for callback-only paths where Telegram metadata is stale.
func (r *Router) ensureUser(ctx context.Context, chatID int64, from *tgbotapi.User) (*domain.User, bool, error) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	// The timezone is never persisted empty: every sweep decision reads
	// it, so a fresh row starts at UTC (or the language-based guess).
	u = &domain.User{
		ID:                   chatID,
		Timezone:             "UTC",
		Active:               true,
		NotificationsEnabled: true,
	}
	if from != nil {
		u.Username = from.UserName
		u.LanguageCode = from.LanguageCode
		u.Timezone = domain.DetectTimezone(from.LanguageCode)
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// freshness marks any of the user's lapsed cases expired before they are
// shown, so a list opened between sweeps never contains stale entries. It
// returns how many cases were marked.
func (r *Router) freshness(ctx context.Context, u *domain.User) int64 {
	marked, err := scheduler.ExpireUserCases(ctx, r.repo, u, time.Now())
	if err != nil {
		r.log.Error("freshness pass failed", zap.Int64("user", u.ID), zap.Error(err))
		return 0
	}
	if marked > 0 {
		r.log.Info("cases expired on demand", zap.Int64("user", u.ID), zap.Int64("marked", marked))
	}
	return marked
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u, created, err := r.ensureUser(ctx, chatID, msg.From)
	if err != nil {
		r.log.Error("ensure user failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}

	// Timezone guess from the Telegram client language. Retried on every
	// /start while the user still sits on the UTC default; once a real
	// zone is set, by detection or by hand, it belongs to the user.
	if msg.From != nil && (u.Timezone == "" || u.Timezone == "UTC") {
		tz := domain.DetectTimezone(msg.From.LanguageCode)
		if tz != u.Timezone {
			if err := r.repo.SetTimezone(ctx, chatID, tz); err != nil {
				r.log.Error("set timezone failed", zap.Int64("chat", chatID), zap.Error(err))
			} else {
				u.Timezone = tz
				r.sendText(chatID, fmt.Sprintf(textTimezoneAuto, tz))
			}
		}
	}

	if marked := r.freshness(ctx, u); marked > 0 {
		r.sendText(chatID, fmt.Sprintf(textExpiredOnStart, marked))
	}

	welcome := welcomeBack
	if created {
		welcome = welcomeNew
	}
	r.sendWithKeyboard(chatID, welcome, mainKeyboard())
}

func (r *Router) handleCancel(ctx context.Context, chatID int64) {
	had, err := r.dialogs.Cancel(ctx, chatID)
	if err != nil {
		r.log.Error("cancel failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	if !had {
		r.sendText(chatID, textNothingToCancel)
		return
	}
	r.sendWithKeyboard(chatID, textCancelled, mainKeyboard())
}

// --- Case intake ---

func (r *Router) handleAddCase(ctx context.Context, chatID int64) {
	if _, _, err := r.ensureUser(ctx, chatID, nil); err != nil {
		r.log.Error("ensure user failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	res, err := r.dialogs.StartIntake(ctx, chatID)
	if err != nil {
		r.log.Error("start intake failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.deliver(ctx, chatID, res)
}

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	res, err := r.dialogs.HandleInput(ctx, chatID, text)
	if err != nil {
		r.log.Error("dialogue input failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.deliver(ctx, chatID, res)
}

// deliver translates a dialogue result into outgoing messages.
func (r *Router) deliver(ctx context.Context, chatID int64, res dialog.Result) {
	if res.ExpiryWarning {
		r.sendText(chatID, textSessionWarning)
	}

	switch res.Kind {
	case dialog.KindIgnored:
		// Free text outside any form. Stay quiet.
	case dialog.KindBusy:
		r.sendText(chatID, textFinishFirst)
	case dialog.KindPrompt:
		r.sendText(chatID, res.Prompt)
	case dialog.KindCommitted:
		r.announceCommit(ctx, chatID, res.Case)
	case dialog.KindAborted:
		r.sendWithKeyboard(chatID, res.Reason, mainKeyboard())
	}
}

func (r *Router) announceCommit(ctx context.Context, chatID int64, c *domain.Case) {
	if c == nil {
		r.sendText(chatID, textInternal)
		return
	}
	tz := "UTC"
	if u, err := r.repo.GetUser(ctx, chatID); err == nil && u.Timezone != "" {
		tz = u.Timezone
	}
	daysLeft, err := domain.DaysUntil(c.Deadline, tz, time.Now())
	if err != nil {
		daysLeft = 0
	}
	r.sendWithKeyboard(chatID, fmt.Sprintf(textCaseSaved,
		c.FileNumber, c.Accuser, c.Defendant,
		domain.FormatForDisplay(c.PaymentDate),
		domain.FormatForDisplay(c.Deadline),
		daysLeft,
	), mainKeyboard())
}

// --- Case browsing ---

func (r *Router) handleMyCases(ctx context.Context, chatID int64) {
	u, _, err := r.ensureUser(ctx, chatID, nil)
	if err != nil {
		r.log.Error("ensure user failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.freshness(ctx, u)

	cases, err := r.repo.ListCasesByOwner(ctx, chatID, domain.StatusActive)
	if err != nil {
		r.log.Error("list cases failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	if len(cases) == 0 {
		r.sendText(chatID, textNoCases)
		return
	}

	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	now := time.Now()
	daysLeft := make([]int, len(cases))
	for i, c := range cases {
		d, err := domain.DaysUntil(c.Deadline, tz, now)
		if err != nil {
			d = 0
		}
		daysLeft[i] = d
	}

	title := fmt.Sprintf("📋 Your active cases (%d):", len(cases))
	r.sendInline(chatID, title, caseListKeyboard(cases, daysLeft))
}

// getOwnedCase loads a case and checks it belongs to chatID. Callback data
// is attacker-controlled, so ownership is re-checked on every case action.
func (r *Router) getOwnedCase(ctx context.Context, chatID int64, id string) (*domain.Case, bool) {
	c, err := r.repo.GetCase(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Error("get case failed", zap.String("case", id), zap.Error(err))
		}
		r.sendText(chatID, textCaseGone)
		return nil, false
	}
	if c.OwnerID != chatID {
		r.log.Warn("foreign case access blocked",
			zap.Int64("chat", chatID), zap.String("case", id))
		r.sendText(chatID, textCaseGone)
		return nil, false
	}
	return c, true
}

func (r *Router) handleCaseDetail(ctx context.Context, chatID int64, id string) {
	c, ok := r.getOwnedCase(ctx, chatID, id)
	if !ok {
		return
	}

	tz := "UTC"
	if u, err := r.repo.GetUser(ctx, chatID); err == nil && u.Timezone != "" {
		tz = u.Timezone
	}
	daysLeft, err := domain.DaysUntil(c.Deadline, tz, time.Now())
	if err != nil {
		daysLeft = 0
	}

	body := fmt.Sprintf(textCaseDetailFmt,
		c.FileNumber, c.Accuser, c.Defendant,
		domain.FormatForDisplay(c.PaymentDate),
		domain.FormatForDisplay(c.Deadline),
		daysLeft,
	)
	r.sendInline(chatID, body, caseDetailKeyboard(c.ID))
}

func (r *Router) handleCaseEdit(ctx context.Context, chatID int64, id string) {
	res, err := r.dialogs.StartEditDeadline(ctx, chatID, id)
	if err != nil {
		r.log.Error("start edit failed", zap.Int64("chat", chatID),
			zap.String("case", id), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.deliver(ctx, chatID, res)
}

func (r *Router) handleCaseDeleteAsk(ctx context.Context, chatID int64, id string) {
	c, ok := r.getOwnedCase(ctx, chatID, id)
	if !ok {
		return
	}
	r.sendInline(chatID, fmt.Sprintf(textConfirmDelete, c.FileNumber), confirmDeleteKeyboard(c.ID))
}

func (r *Router) handleCaseDeleteConfirm(ctx context.Context, chatID int64, id string) {
	if _, ok := r.getOwnedCase(ctx, chatID, id); !ok {
		return
	}
	if err := r.repo.DeleteCase(ctx, id); err != nil {
		r.log.Error("delete case failed", zap.String("case", id), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.log.Info("case deleted", zap.Int64("chat", chatID), zap.String("case", id))
	r.sendWithKeyboard(chatID, textCaseDeleted, mainKeyboard())
}

// --- Settings ---

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	u, _, err := r.ensureUser(ctx, chatID, nil)
	if err != nil {
		r.log.Error("ensure user failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	tz := u.Timezone
	if tz == "" {
		tz = "UTC (default)"
	}
	state := "🔔 on"
	if !u.NotificationsEnabled {
		state = "🔕 off"
	}
	r.sendInline(chatID, fmt.Sprintf(textSettingsFmt, tz, state), settingsKeyboard(u.NotificationsEnabled))
}

func (r *Router) handleSetTimezone(ctx context.Context, chatID int64, tz string) {
	// Presets come from our own keyboard but the payload is still client
	// data, so validate before persisting.
	if _, err := domain.LoadZone(tz); err != nil {
		r.log.Warn("bad timezone payload", zap.Int64("chat", chatID), zap.String("tz", tz))
		r.sendText(chatID, textInternal)
		return
	}
	if err := r.repo.SetTimezone(ctx, chatID, tz); err != nil {
		r.log.Error("set timezone failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.sendWithKeyboard(chatID, fmt.Sprintf(textTimezoneSet, tz), mainKeyboard())
}

func (r *Router) handleAutoTimezone(ctx context.Context, chatID int64, from *tgbotapi.User) {
	lang := ""
	if from != nil {
		lang = from.LanguageCode
	}
	tz := domain.DetectTimezone(lang)
	if err := r.repo.SetTimezone(ctx, chatID, tz); err != nil {
		r.log.Error("set timezone failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	r.sendWithKeyboard(chatID, fmt.Sprintf(textTimezoneSet, tz), mainKeyboard())
}

func (r *Router) handleToggleNotifications(ctx context.Context, chatID int64) {
	u, _, err := r.ensureUser(ctx, chatID, nil)
	if err != nil {
		r.log.Error("ensure user failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	next := !u.NotificationsEnabled
	if err := r.repo.SetNotificationsEnabled(ctx, chatID, next); err != nil {
		r.log.Error("toggle notifications failed", zap.Int64("chat", chatID), zap.Error(err))
		r.sendText(chatID, textInternal)
		return
	}
	text := textNotifOff
	if next {
		text = textNotifOn
	}
	r.sendWithKeyboard(chatID, text, mainKeyboard())
}

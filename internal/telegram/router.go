package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/dialog"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/ratelimit"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
)

// Callback data prefixes. Payload-carrying ones are joined with ":".
const (
	cbListCases     = "cases"
	cbCaseDetail    = "case"
	cbCaseEdit      = "case_edit"
	cbCaseDelete    = "case_del"
	cbCaseDeleteYes = "case_del_yes"
	cbSettings      = "settings"
	cbPickTimezone  = "tz_pick"
	cbSetTimezone   = "tz_set"
	cbAutoTimezone  = "tz_auto"
	cbToggleNotif   = "notif_toggle"
	cbBackToMenu    = "back_to_menu"
	cbAddCase       = "add_case"
)

// action is the decoded form of callback data.
type action int

const (
	actionUnknown action = iota
	actionListCases
	actionCaseDetail
	actionCaseEdit
	actionCaseDelete
	actionCaseDeleteYes
	actionSettings
	actionPickTimezone
	actionSetTimezone
	actionAutoTimezone
	actionToggleNotif
	actionBackToMenu
	actionAddCase
)

// parseAction splits callback data into an action and its payload. Data
// that fits no known shape maps to actionUnknown and is dropped upstream.
func parseAction(data string) (action, string) {
	head, payload := data, ""
	if i := strings.IndexByte(data, ':'); i >= 0 {
		head, payload = data[:i], data[i+1:]
	}
	switch head {
	case cbListCases:
		return actionListCases, ""
	case cbCaseDetail:
		return actionCaseDetail, payload
	case cbCaseEdit:
		return actionCaseEdit, payload
	case cbCaseDelete:
		return actionCaseDelete, payload
	case cbCaseDeleteYes:
		return actionCaseDeleteYes, payload
	case cbSettings:
		return actionSettings, ""
	case cbPickTimezone:
		return actionPickTimezone, ""
	case cbSetTimezone:
		return actionSetTimezone, payload
	case cbAutoTimezone:
		return actionAutoTimezone, ""
	case cbToggleNotif:
		return actionToggleNotif, ""
	case cbBackToMenu:
		return actionBackToMenu, ""
	case cbAddCase:
		return actionAddCase, ""
	default:
		return actionUnknown, ""
	}
}

// Router wires Telegram updates to handlers.
type Router struct {
	bot     *tgbotapi.BotAPI
	log     *zap.Logger
	repo    store.Repo
	dialogs *dialog.Manager
	limiter *ratelimit.Limiter
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, dialogs *dialog.Manager, limiter *ratelimit.Limiter) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		repo:    repo,
		dialogs: dialogs,
		limiter: limiter,
	}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		r.handleMessage(ctx, upd.Message)
		return
	}
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !r.limiter.Allow(chatID) {
		r.log.Warn("rate limited", zap.Int64("chat", chatID))
		r.sendText(chatID, textSlowDown)
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		r.sendWithKeyboard(chatID, helpText, mainKeyboard())
	case strings.HasPrefix(text, "/cancel"):
		r.handleCancel(ctx, chatID)
	case text == btnAddCase:
		r.handleAddCase(ctx, chatID)
	case text == btnMyCases:
		r.requireIdle(ctx, chatID, r.handleMyCases)
	case text == btnSettings:
		r.requireIdle(ctx, chatID, r.handleSettings)
	case text == btnHelp:
		r.sendWithKeyboard(chatID, helpText, mainKeyboard())
	default:
		r.handleFreeForm(ctx, chatID, text)
	}
}

// requireIdle warns instead of running fn while an intake form is pending,
// so a stray menu tap cannot be swallowed as form input.
func (r *Router) requireIdle(ctx context.Context, chatID int64, fn func(context.Context, int64)) {
	if r.dialogs.Active(chatID) {
		r.sendText(chatID, textFinishFirst)
		return
	}
	fn(ctx, chatID)
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	if !r.limiter.Allow(chatID) {
		_ = r.answerCallback(cb.ID, textSlowDown)
		return
	}
	_ = r.answerCallback(cb.ID, "")

	act, payload := parseAction(cb.Data)
	switch act {
	case actionListCases:
		r.handleMyCases(ctx, chatID)
	case actionCaseDetail:
		r.handleCaseDetail(ctx, chatID, payload)
	case actionCaseEdit:
		r.handleCaseEdit(ctx, chatID, payload)
	case actionCaseDelete:
		r.handleCaseDeleteAsk(ctx, chatID, payload)
	case actionCaseDeleteYes:
		r.handleCaseDeleteConfirm(ctx, chatID, payload)
	case actionSettings:
		r.handleSettings(ctx, chatID)
	case actionPickTimezone:
		r.sendInline(chatID, textPickTimezone, timezoneKeyboard())
	case actionSetTimezone:
		r.handleSetTimezone(ctx, chatID, payload)
	case actionAutoTimezone:
		r.handleAutoTimezone(ctx, chatID, cb.From)
	case actionToggleNotif:
		r.handleToggleNotifications(ctx, chatID)
	case actionBackToMenu:
		r.sendWithKeyboard(chatID, welcomeBack, mainKeyboard())
	case actionAddCase:
		r.handleAddCase(ctx, chatID)
	case actionUnknown:
		r.log.Debug("unknown callback", zap.String("data", cb.Data))
	}
}

// --- Outgoing helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) sendInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// SendMessage sends a plain text message to the given chat. Together with
// SendMenuMessage it makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendMenuMessage sends a message with the quick-access inline menu.
func (r *Router) SendMenuMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menuKeyboard()
	_, err := r.bot.Send(msg)
	return err
}

package telegram

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/dialog"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/domain"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/ratelimit"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/scheduler"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
)

// fakeTelegram answers every Bot API call with an empty success and keeps
// the form-encoded payloads for inspection.
type fakeTelegram struct {
	mu       sync.Mutex
	payloads []url.Values
}

func (f *fakeTelegram) Do(req *http.Request) (*http.Response, error) {
	var vals url.Values
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		vals, _ = url.ParseQuery(string(b))
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, vals)
	f.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":true,"result":{}}`)),
	}, nil
}

// texts returns every outgoing message text, in send order.
func (f *fakeTelegram) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.payloads {
		if t := p.Get("text"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func newTestRouter(t *testing.T) (*Router, store.Repo, *fakeTelegram) {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	tg := &fakeTelegram{}
	bot, err := tgbotapi.NewBotAPIWithClient("test-token", tgbotapi.APIEndpoint, tg)
	if err != nil {
		t.Fatalf("fake bot: %v", err)
	}
	r := NewRouter(bot, zap.NewNop(), db, dialog.New(db, zap.NewNop()), ratelimit.New(30))
	return r, db, tg
}

func textMsg(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func TestEnsureUserNeverPersistsEmptyTimezone(t *testing.T) {
	r, db, _ := newTestRouter(t)
	ctx := context.Background()

	// First contact with no sender metadata, e.g. a callback path.
	_, created, err := r.ensureUser(ctx, 1, nil)
	if err != nil || !created {
		t.Fatalf("ensure user: created=%v err=%v", created, err)
	}
	u, err := db.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Timezone != "UTC" {
		t.Fatalf("fresh user must default to UTC, got %q", u.Timezone)
	}

	// With metadata the language guess applies immediately.
	if _, _, err := r.ensureUser(ctx, 2, &tgbotapi.User{ID: 2, LanguageCode: "ja"}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	u, err = db.GetUser(ctx, 2)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Timezone != "Asia/Tokyo" {
		t.Fatalf("want Asia/Tokyo from language code, got %q", u.Timezone)
	}
}

func TestSweepServesUserCreatedOutsideStart(t *testing.T) {
	r, db, tg := newTestRouter(t)
	ctx := context.Background()

	// The user's first contact was not /start, so no detection ran; the
	// UTC default must keep them eligible for reminders.
	if _, _, err := r.ensureUser(ctx, 1, nil); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	c := &domain.Case{
		ID: uuid.NewString(), OwnerID: 1, FileNumber: "F-1",
		Accuser: "A", Defendant: "B",
		PaymentDate: "2024-01-01",
		Deadline:    time.Now().UTC().AddDate(0, 0, 1).Format(domain.ISODate),
		Status:      domain.StatusActive,
	}
	if err := db.CreateCase(ctx, c); err != nil {
		t.Fatalf("create case: %v", err)
	}

	s := scheduler.New(db, zap.NewNop(), r, time.Hour, 24*time.Hour)
	s.RunHourlySweep(ctx)

	got, err := db.GetCase(ctx, c.ID)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if !got.Notified1 {
		t.Fatalf("1-day reminder not sent for user created outside /start: %+v", got)
	}
	if len(tg.texts()) == 0 {
		t.Fatal("no message went out")
	}
}

func TestStartRetriesTimezoneDetection(t *testing.T) {
	r, db, _ := newTestRouter(t)
	ctx := context.Background()

	// Created before /start: sits on the UTC default.
	if _, _, err := r.ensureUser(ctx, 1, nil); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	r.handleStart(ctx, &tgbotapi.Message{
		Text: "/start",
		Chat: &tgbotapi.Chat{ID: 1},
		From: &tgbotapi.User{ID: 1, LanguageCode: "am"},
	})
	u, err := db.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Timezone != "Africa/Addis_Ababa" {
		t.Fatalf("detection must retry while on the UTC default, got %q", u.Timezone)
	}

	// A real zone, however it was set, is never overridden.
	if err := db.SetTimezone(ctx, 1, "Europe/Paris"); err != nil {
		t.Fatalf("set timezone: %v", err)
	}
	r.handleStart(ctx, &tgbotapi.Message{
		Text: "/start",
		Chat: &tgbotapi.Chat{ID: 1},
		From: &tgbotapi.User{ID: 1, LanguageCode: "ja"},
	})
	u, _ = db.GetUser(ctx, 1)
	if u.Timezone != "Europe/Paris" {
		t.Fatalf("explicit timezone overridden to %q", u.Timezone)
	}
}

func TestHandleMessageDispatch(t *testing.T) {
	r, db, tg := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, textMsg(1, btnAddCase))
	if !r.dialogs.Active(1) {
		t.Fatal("add case button must start an intake")
	}
	s, err := db.GetSession(ctx, 1)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if s.Step != domain.StepFileNumber {
		t.Fatalf("want file number step, got %q", s.Step)
	}

	// A menu button mid-dialogue warns instead of hijacking the step.
	r.HandleUpdate(ctx, textMsg(1, btnMyCases))
	s, _ = db.GetSession(ctx, 1)
	if s.Step != domain.StepFileNumber {
		t.Fatalf("menu tap advanced the form to %q", s.Step)
	}
	warned := false
	for _, txt := range tg.texts() {
		if txt == textFinishFirst {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected the finish-first warning, got %v", tg.texts())
	}

	// Free text is form input.
	r.HandleUpdate(ctx, textMsg(1, "F-77"))
	s, _ = db.GetSession(ctx, 1)
	if s.Step != domain.StepAccuser {
		t.Fatalf("free text must advance the form, got %q", s.Step)
	}

	r.HandleUpdate(ctx, textMsg(1, "/cancel"))
	if r.dialogs.Active(1) {
		t.Fatal("cancel must release the dialogue")
	}
}

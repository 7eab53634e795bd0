package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/config"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/dialog"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/ratelimit"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/scheduler"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/store"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting lawyer-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("sweep", a.cfg.SweepInterval),
		zap.Duration("expiry_sweep", a.cfg.ExpirySweepInterval),
	)

	repo, err := store.Open(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	dialogs := dialog.New(a.repo, a.log)
	limiter := ratelimit.New(a.cfg.RateLimitPerMinute)
	a.router = telegram.NewRouter(a.bot, a.log, a.repo, dialogs, limiter)
	a.sched = scheduler.New(a.repo, a.log, a.router, a.cfg.SweepInterval, a.cfg.ExpirySweepInterval)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.sched.Run(ctx)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

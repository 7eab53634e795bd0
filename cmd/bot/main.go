package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/app"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/config"
	"github.com/Johnmesfn/Telegram-Lawyer-Bot/internal/logger"
)

func main() {
	// A missing .env is fine; production injects real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// No logger yet; exit immediately.
		_, _ = os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(2)
	}
	// Sync errors are common on some platforms; nothing to do about them.
	defer func() { _ = log.Sync() }()

	application, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("app init failed", zap.Error(err))
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatal("app run failed", zap.Error(err))
	}
}

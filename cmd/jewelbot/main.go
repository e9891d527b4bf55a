package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/m3rciful/jewelbot/bot"
	"github.com/m3rciful/jewelbot/bot/store"
	"github.com/m3rciful/jewelbot/core/config"
	"github.com/m3rciful/jewelbot/core/database"
	"github.com/m3rciful/jewelbot/core/logger"
	"github.com/m3rciful/jewelbot/core/telegram"
	"github.com/m3rciful/jewelbot/core/telegram/sender"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("config load failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Profile: cfg.Logging.Profile,
	})

	if err := database.Migrate(cfg.Database); err != nil {
		logger.L.Error("migrations failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.L.Error("database connect failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	b, err := telegram.NewBot(cfg)
	if err != nil {
		logger.L.Error("bot init failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	dispatch := sender.New(sender.Options{})
	defer dispatch.Close()

	app := bot.New(b, store.New(db), cfg, dispatch)
	app.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telegram.Run(ctx, b); err != nil {
		logger.L.Error("bot stopped with error", slog.String("err", err.Error()))
		os.Exit(1)
	}
	logger.L.Info("shutdown complete")
}

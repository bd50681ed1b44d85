package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/paddy-api/internal/config"
	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_TOKEN is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	predictor := model.Load(model.Options{
		ModelPath:    cfg.ModelPath(),
		MetadataPath: cfg.MetadataPath(),
		LabelsPath:   cfg.LabelsPath(),
		OrtLibPath:   cfg.OrtLibPath,
	}, logger)
	defer predictor.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		predictor.Close()
		os.Exit(1)
	}
	logger.Info("authorized", "account", api.Self.UserName, "mode", predictor.Mode())

	bot := telegram.NewBot(api, diagnosis.NewService(predictor, nil, logger), logger)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot error", "error", err)
	}
	api.StopReceivingUpdates()
}

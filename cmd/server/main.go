package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/paddy-api/internal/config"
	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
	"github.com/Brownie44l1/paddy-api/internal/handlers"
	"github.com/Brownie44l1/paddy-api/internal/metrics"
	"github.com/Brownie44l1/paddy-api/internal/model"
	"github.com/Brownie44l1/paddy-api/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := upload.NewStore(cfg.UploadDir, logger)
	if err != nil {
		logger.Error("failed to prepare upload directory", "dir", cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	logger.Info("loading model", "path", cfg.ModelPath())
	predictor := model.Load(model.Options{
		ModelPath:    cfg.ModelPath(),
		MetadataPath: cfg.MetadataPath(),
		LabelsPath:   cfg.LabelsPath(),
		OrtLibPath:   cfg.OrtLibPath,
	}, logger)
	defer predictor.Close()

	m := metrics.New()
	service := diagnosis.NewService(predictor, m, logger)
	handler := handlers.NewHandler(service, store, cfg.MaxUploadBytes, logger)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handler, m, cfg.CORSOrigins, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server starting", "port", cfg.Port, "mode", predictor.Mode(), "classes", predictor.Classes())
	logger.Info("endpoints",
		"index", "GET /",
		"health", "GET /health",
		"predict", "POST /predict (multipart field 'file')",
		"metrics", "GET /metrics",
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			predictor.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

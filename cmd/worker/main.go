package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vinayj16/PromptPad-sub000/internal/config"
	"github.com/vinayj16/PromptPad-sub000/internal/infrastructure/database"
	queueAdapter "github.com/vinayj16/PromptPad-sub000/internal/infrastructure/queue/adapter"
	"github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/application/task"
	repoAdapter "github.com/vinayj16/PromptPad-sub000/internal/pkg/collab/persistence/repository/adapter"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found or could not be loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	srv, err := queueAdapter.NewAsynqServer(queueAdapter.ServerConfig{
		RedisURL:    cfg.RedisURL,
		Concurrency: cfg.AsynqConcurrency,
		Queues:      cfg.AsynqQueues,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to create queue server", "error", err)
		os.Exit(1)
	}

	task.RegisterSaveDocumentTask(srv, repoAdapter.NewPgDocumentRepository(pool))

	logger.Info("worker started")
	if err := srv.Run(ctx); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

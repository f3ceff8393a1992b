// Package main runs the background job worker (lesson telemetry, waitlist email).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/treppan-learn/backend/config"
	"github.com/treppan-learn/backend/internal/analytics"
	"github.com/treppan-learn/backend/internal/emaillogs"
	"github.com/treppan-learn/backend/internal/waitlist"
	"github.com/treppan-learn/backend/internal/worker"
	"github.com/treppan-learn/backend/pkg/database"
	"github.com/treppan-learn/backend/pkg/mailer"
	"github.com/treppan-learn/backend/pkg/queue"
	"github.com/treppan-learn/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var sender worker.EmailSender
	sg, err := mailer.NewSendGrid(mailer.Config{
		APIKey:    cfg.Email.SendGridAPIKey,
		BaseURL:   cfg.Email.BaseURL,
		FromEmail: cfg.Email.FromAddress,
		FromName:  cfg.Email.FromName,
		Timeout:   cfg.Email.Timeout,
	}, logger)
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		logger.Warn("SENDGRID_API_KEY not set; email jobs will be logged as failed")
	case err != nil:
		logger.Fatal("sendgrid", zap.Error(err))
	default:
		sender = sg
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(
		jobQueue,
		analytics.NewRepository(pool),
		sender,
		emaillogs.NewRepository(pool),
		waitlist.NewRepository(pool),
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.DequeueTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}

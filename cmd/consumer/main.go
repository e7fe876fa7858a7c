package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/config"
	"github.com/iliyamo/movie-reservation/internal/logger"
	"github.com/iliyamo/movie-reservation/internal/queue"
)

func main() {
	_ = config.LoadDotEnv()
	log, err := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(queue.URLFromEnv(), log.Named("consumer"))
	if path := os.Getenv("BOOKING_LOG_PATH"); path != "" {
		c.LogPath = path
	}
	log.Info("booking consumer started", zap.String("log_path", c.LogPath))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("booking consumer stopped", zap.Error(err))
	}
	log.Info("booking consumer stopped")
}

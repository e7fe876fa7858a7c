package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/movie-reservation/internal/config"
	"github.com/iliyamo/movie-reservation/internal/database"
	"github.com/iliyamo/movie-reservation/internal/logger"
	"github.com/iliyamo/movie-reservation/internal/repository"
	"github.com/iliyamo/movie-reservation/internal/seed"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		_, _ = os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(ctx, db, log); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	s := &seed.Seeder{
		Halls:     repository.NewHallRepo(db),
		Movies:    repository.NewMovieRepo(db),
		Showtimes: repository.NewShowtimeRepo(db),
		Log:       log.Named("seed"),
	}
	offset := cfg.CatalogUTCOffsetHours
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", offset), offset*3600)
	if _, err := s.Run(ctx, time.Now(), zone); err != nil {
		log.Fatal("seed", zap.Error(err))
	}
}

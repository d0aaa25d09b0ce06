package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.New(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}

	var opts server.Options
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(cfg)
		if err != nil {
			logging.Warn().Err(err).Msg("redis unavailable, rate limits are per instance")
		} else {
			opts.Redis = client
			defer client.Close()
		}
	}

	if cfg.S3Bucket != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err == nil {
			err = s3Config.HeadBucket(ctx)
		}
		cancel()
		if err != nil {
			logging.Fatal().Err(err).Str("bucket", cfg.S3Bucket).Msg("failed to initialize image bucket")
		}
		opts.Images = service.NewS3ImageStore(s3Config)
	}

	srv, err := server.New(cfg, db, opts)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create server")
	}

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)

	go func() {
		logging.Info().Str("host", cfg.ServerHost).Str("port", cfg.ServerPort).Msg("starting server")
		errChan <- srv.Start()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logging.Fatal().Err(err).Msg("server error")
		}
		return
	case sig := <-quit:
		logging.Info().Str("signal", sig.String()).Msg("received signal")
	}

	logging.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("server shutdown error")
		return
	}
	logging.Info().Msg("server stopped")
}

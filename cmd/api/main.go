package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"agritrace-backend/internal/app"
	"agritrace-backend/internal/config"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("App create failed")
	}

	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		log.Info().Msg("Database connected")
	}
	if a.Rdb != nil {
		if err := a.Rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		log.Info().Msg("Redis connected")
	}

	a.RateLimiter.Start()
	defer a.RateLimiter.Stop()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("Shutting down")
		_ = a.Fiber.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Msg("Server listening")
	if err := a.Fiber.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

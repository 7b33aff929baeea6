package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/teqbay/accounts-api/internal/api"
	"github.com/teqbay/accounts-api/internal/core/domain"
	"github.com/teqbay/accounts-api/internal/core/service"
	"github.com/teqbay/accounts-api/internal/infrastructure/config"
	mongodb "github.com/teqbay/accounts-api/internal/infrastructure/db/mongo"
	redisdb "github.com/teqbay/accounts-api/internal/infrastructure/db/redis"
	"github.com/teqbay/accounts-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	rootCtx := context.Background()

	client, db, err := mongodb.Connect(rootCtx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		_ = client.Disconnect(rootCtx)
	}()

	rdb, err := redisdb.Connect(rootCtx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	// One-time idempotent bootstrap: unique email index and the fixed role set.
	credStore := mongodb.NewCredentialStore(db)
	if err := credStore.EnsureIndexes(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}
	roleRepo := mongodb.NewRepository[domain.Role](db, "roles")
	if err := service.SeedRoles(rootCtx, roleRepo); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles")
	}

	e := api.NewRouter(db, rdb, cfg, log)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting http server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("graceful shutdown completed")
}

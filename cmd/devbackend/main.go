// Command devbackend runs the local identity backend: tenant registration,
// login and bearer-verified identity, backed by MongoDB.
//
//	@title						Brewline console API
//	@version					1.0
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brewline/console/internal/core/service"
	mongodb "github.com/brewline/console/internal/infrastructure/db/mongo"
	httpserver "github.com/brewline/console/internal/infrastructure/http"
	"github.com/brewline/console/internal/infrastructure/http/handlers"
	"github.com/brewline/console/internal/pkg/config"
	"github.com/brewline/console/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "devbackend"})

	if cfg.Identity.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "brewline-devbackend"})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() { _ = mongodb.Disconnect(client) }()

	repo := mongodb.NewIdentityRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure identity indexes")
	}
	identity := service.NewIdentityService(repo, cfg.Identity.JWTSecret, cfg.Identity.TokenTTL)

	e := httpserver.NewRouter(identity, cfg.Identity.JWTSecret, log, handlers.MongoCheck(db))

	go func() {
		log.Info().Str("port", cfg.Identity.Port).Msg("identity backend listening")
		if err := e.Start(":" + cfg.Identity.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("identity backend stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/brewline/console/internal/api"
	"github.com/brewline/console/internal/core/credential"
	"github.com/brewline/console/internal/core/ports"
	"github.com/brewline/console/internal/infrastructure/backend"
	"github.com/brewline/console/internal/infrastructure/cookie"
	mongodb "github.com/brewline/console/internal/infrastructure/db/mongo"
	redisdb "github.com/brewline/console/internal/infrastructure/db/redis"
	"github.com/brewline/console/internal/infrastructure/http/handlers"
	"github.com/brewline/console/internal/infrastructure/queue"
	"github.com/brewline/console/internal/pkg/config"
	"github.com/brewline/console/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backend.Config{BaseURL: cfg.Backend.BaseURL, Timeout: cfg.Backend.Timeout})
	checks := []handlers.Check{{Name: "backend", Ping: client.Ping}}

	if rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, readiness will not report it")
	} else {
		defer rdb.Close()
		checks = append(checks, handlers.RedisCheck(rdb))
	}

	audit, auditChecks, closeAudit := startAudit(ctx, cfg, log)
	defer closeAudit()
	checks = append(checks, auditChecks...)

	e, err := api.NewRouter(api.Options{
		API:     client,
		Decoder: credential.NewDecoder(logger.Component("credential")),
		Audit:   audit,
		Cookie:  cookie.Options{Name: cfg.Cookie.Name, Secure: cfg.Cookie.Secure, TTL: cfg.Cookie.TTL},
		Checks:  checks,
		Log:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	go func() {
		log.Info().Str("port", cfg.Console.Port).Str("backend", cfg.Backend.BaseURL).Msg("console listening")
		if err := e.Start(":" + cfg.Console.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("console server stopped")
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

// startAudit wires session event recording to MongoDB. Recording is optional:
// when disabled or unreachable the console runs without it.
func startAudit(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.AuditSink, []handlers.Check, func()) {
	noop := func() {}
	if !cfg.Audit.Enabled {
		return nil, nil, noop
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "brewline-console"})
	if err != nil {
		log.Warn().Err(err).Msg("mongodb unavailable, session audit disabled")
		return nil, nil, noop
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, mongodb.NewSessionEventRepository(db), logger.Component("audit"))
	// Workers outlive the signal so events from requests still draining in
	// e.Shutdown are persisted; closeFn stops them afterwards.
	dispatcher.Start(context.WithoutCancel(ctx))

	closeFn := func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(drainCtx); err != nil {
			log.Warn().Err(err).Msg("audit queue not fully drained")
		}
		_ = mongodb.Disconnect(client)
	}
	return dispatcher, []handlers.Check{handlers.MongoCheck(db)}, closeFn
}

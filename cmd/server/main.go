// Command server runs the identity service HTTP API.
//
//	@title						Identity Service API
//	@version					1.0
//	@description				User registration, login and lifecycle management with bearer tokens.
//	@BasePath					/
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

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/crypto"
	mongodb "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/http/handlers"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
	"github.com/99minutos/identity-service/internal/infrastructure/token"
	"github.com/99minutos/identity-service/internal/pkg/config"
	"github.com/99minutos/identity-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "identity-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		AppName:     "identity-service",
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() {
		if err := mongodb.Disconnect(mongoClient); err != nil {
			log.Error().Err(err).Msg("disconnect mongo")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure user indexes")
	}

	dispatcher := queue.NewDispatcher(cfg.Auth.AuditWorkers, mongodb.NewAuditRepository(db), logger.Component("audit"))
	dispatcher.Start(ctx)

	// --- Core ---
	hasher := crypto.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := service.NewTokenIssuer(token.NewHS256Signer(cfg.JWTSecret), cfg.JWTTTL)

	validator, err := service.NewValidator(service.DefaultValidationPolicy())
	if err != nil {
		log.Fatal().Err(err).Msg("build validator")
	}

	verifier, err := service.NewCredentialVerifier(userRepo, hasher)
	if err != nil {
		log.Fatal().Err(err).Msg("build credential verifier")
	}

	users := service.NewUserService(
		userRepo,
		validator,
		hasher,
		redisdb.NewClaimLocker(rdb, cfg.Auth.ClaimTTL),
		dispatcher,
		logger.Component("user_service"),
	)
	sessions := service.NewSessionService(verifier, users, userRepo, tokens, dispatcher, logger.Component("session_service"))

	// --- Transport ---
	e := api.NewRouter(api.Dependencies{
		Sessions: sessions,
		Users:    users,
		Tokens:   tokens,
		Checks: map[string]handlers.DependencyCheck{
			"mongodb": handlers.MongoCheck(db),
			"redis":   handlers.RedisCheck(rdb),
		},
		Log: logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	// In-flight requests are done; flush their audit events.
	dispatcher.Close()
	dispatcher.Wait()
}

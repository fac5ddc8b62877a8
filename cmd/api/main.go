package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crm-service/internal/api/http"
	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/repository/memory"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	repos := memory.NewRepositories()
	if pool := pg.PoolHandle(); pool != nil {
		repos = repository.NewPostgres(pool)
	}

	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if redis != nil {
		revocations = auth.NewRedisRevocationStore(redis.Client)
	}

	authorizer, err := auth.NewAuthorizer()
	if err != nil {
		logger.Fatal("failed to build authorizer", zap.Error(err))
	}
	tokens := auth.NewTokenManager(cfg.Auth)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics))

	deps := service.Dependencies{
		Repos:      repos,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Dependencies: deps,
		Tokens:       tokens,
		Revocations:  revocations,
	})
	userService := service.NewUserService(cfg.Auth, deps, revocations)
	customerService := service.NewCustomerService(deps)
	interactionService := service.NewInteractionService(deps)
	reviewService := service.NewReviewService(deps)

	app := httptransport.NewServer(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService, authorizer),
		Customers:      handlers.NewCustomersHandler(customerService, authorizer, logger),
		Interactions:   handlers.NewInteractionsHandler(interactionService, authorizer),
		Reviews:        handlers.NewReviewsHandler(reviewService, authorizer),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, revocations, logger),
		Authorizer:     authorizer,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

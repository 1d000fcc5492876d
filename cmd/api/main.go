package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/workspace-auth/internal/api/http"
	"github.com/spec-kit/workspace-auth/internal/api/http/handlers"
	"github.com/spec-kit/workspace-auth/internal/auth"
	"github.com/spec-kit/workspace-auth/internal/config"
	"github.com/spec-kit/workspace-auth/internal/events"
	"github.com/spec-kit/workspace-auth/internal/observability"
	"github.com/spec-kit/workspace-auth/internal/persistence"
	"github.com/spec-kit/workspace-auth/internal/repository"
	"github.com/spec-kit/workspace-auth/internal/service"
	"github.com/spec-kit/workspace-auth/internal/worker"
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

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var credentialRepo repository.CredentialRepository
	if pg.Enabled() {
		credentialRepo = repository.NewCredentialRepository(pg.PoolHandle())
	} else {
		credentialRepo = repository.NewMemoryCredentialRepository()
	}

	var attemptRepo repository.LoginAttemptRepository
	if redis.Enabled() {
		attemptRepo = repository.NewRedisLoginAttemptRepository(redis.Client)
	} else {
		attemptRepo = repository.NewMemoryLoginAttemptRepository(time.Now)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Credentials:   credentialRepo,
		LoginAttempts: attemptRepo,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}

	accountService, err := service.NewAccountService(cfg.Auth.BcryptCost, service.AccountDependencies{
		Credentials: credentialRepo,
		Secrets:     authService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to init account service", zap.Error(err))
	}

	worker.StartAuditWorker(service.NewAuditService(dispatcher, credentialRepo, logger))

	if cfg.Auth.BootstrapAdminIdentifier != "" {
		created, err := accountService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminIdentifier, cfg.Auth.BootstrapAdminSecret)
		if err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap admin created", zap.String("identifier", cfg.Auth.BootstrapAdminIdentifier))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService, accountService),
		Admin:          handlers.NewAdminHandler(accountService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Duration("token_ttl", authService.TokenTTL()))

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/model-gateway/internal/api/http"
	"github.com/spec-kit/model-gateway/internal/api/http/handlers"
	"github.com/spec-kit/model-gateway/internal/auth"
	"github.com/spec-kit/model-gateway/internal/config"
	"github.com/spec-kit/model-gateway/internal/events"
	"github.com/spec-kit/model-gateway/internal/observability"
	"github.com/spec-kit/model-gateway/internal/persistence"
	"github.com/spec-kit/model-gateway/internal/repository"
	"github.com/spec-kit/model-gateway/internal/service"
	"github.com/spec-kit/model-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger,
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)
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

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	registry, registryPinger, closeRegistry := newRevocationRegistry(ctx, cfg, logger)
	defer closeRegistry()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger, metrics).RegisterHandlers()

	pool := pg.PoolHandle()
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   repository.NewUserRepository(pool),
		Tokens:     tokens,
		Registry:   registry,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
	})
	modelService := service.NewModelService(repository.NewModelRepository(pool))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.LatencyThreshold, cfg.App.RequestTimeout())

	routes := auth.NewRouteTable()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres":   pg,
			"revocation": registryPinger,
		}),
		Auth:        handlers.NewAuthHandler(authService),
		Models:      handlers.NewModelsHandler(modelService),
		Metrics:     metrics,
		Routes:      routes,
		Pipeline:    httptransport.NewGuardPipeline(routes, tokens, registry, metrics, logger),
		RateLimiter: auth.NewRateLimiter(cfg.Auth.RateLimitPerMinute),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// newRevocationRegistry selects the configured backend.
func newRevocationRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.Registry, handlers.Pinger, func()) {
	switch cfg.Auth.RevocationBackend {
	case config.RevocationBackendRedis:
		rdb := persistence.NewRedis(cfg.Redis, logger)
		registry := auth.NewRedisRegistry(rdb.Client)
		logger.Info("revocation registry ready", zap.String("backend", "redis"))
		return registry, registry, rdb.Close
	default:
		registry := auth.NewMemoryRegistry()
		worker.StartRevocationReaper(ctx, registry, cfg.Auth.RevocationReapInterval, logger)
		logger.Info("revocation registry ready", zap.String("backend", "memory"))
		return registry, registry, func() {}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/authgate/jwt-auth/internal/api/http"
	"github.com/authgate/jwt-auth/internal/api/http/handlers"
	"github.com/authgate/jwt-auth/internal/auth"
	"github.com/authgate/jwt-auth/internal/config"
	"github.com/authgate/jwt-auth/internal/events"
	"github.com/authgate/jwt-auth/internal/observability"
	"github.com/authgate/jwt-auth/internal/persistence"
	"github.com/authgate/jwt-auth/internal/repository"
	"github.com/authgate/jwt-auth/internal/service"
	"github.com/authgate/jwt-auth/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger,
		zap.String("service", cfg.App.Name),
		zap.String("env", cfg.App.Env))
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	var (
		pg     *persistence.Postgres
		redis  *persistence.Redis
		routes httptransport.RouteConfig
	)

	if cfg.Auth.Enabled {
		var store repository.UserStore
		store, pg, redis, err = openUserStore(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to open user store", zap.Error(err))
		}
		defer pg.Close()
		defer redis.Close()

		authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
			Users:      store,
			Dispatcher: dispatcher,
			Logger:     logger,
		})
		if err != nil {
			logger.Fatal("failed to init token engine", zap.Error(err))
		}
		logger.Info("token engine ready",
			zap.String("store", cfg.Auth.UserStore),
			zap.Duration("expiration", authService.TokenManager().Expiration()))

		routes.Auth = handlers.NewAuthHandler(authService)
		routes.AuthMiddleware = auth.NewAuthMiddleware(authService, service.ErrUnauthenticated)
	} else {
		logger.Warn("authentication disabled; only health routes are served")
	}
	routes.Health = handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()
	logger.Info("listening", zap.String("addr", cfg.App.Addr()))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func openUserStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.UserStore, *persistence.Postgres, *persistence.Redis, error) {
	switch cfg.Auth.UserStore {
	case config.UserStoreRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewRedisUserStore(redis.Client, cfg.Redis.KeyPrefix), nil, redis, nil
	case config.UserStorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewPostgresUserStore(pg.Pool), pg, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown user store %q", cfg.Auth.UserStore)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

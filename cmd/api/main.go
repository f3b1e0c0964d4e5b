package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/login-service/internal/api/http"
	"github.com/spec-kit/login-service/internal/api/http/handlers"
	"github.com/spec-kit/login-service/internal/auth"
	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/events"
	"github.com/spec-kit/login-service/internal/observability"
	"github.com/spec-kit/login-service/internal/persistence"
	"github.com/spec-kit/login-service/internal/service"
	"github.com/spec-kit/login-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.JWTSecret == "" {
		if cfg.App.IsProduction() {
			logger.Fatal("JWT_ACCESS_SECRET must be set in production")
		}
		logger.Warn("JWT_ACCESS_SECRET is not set; logins will fail with CONFIGURATION_ERROR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := persistence.OpenAccountStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open account store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics, cfg.Notification))

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	accountService := service.NewAccountService(store.Accounts, hasher, logger, nil)
	if err := accountService.SeedDefaults(ctx, cfg.Seed); err != nil {
		logger.Fatal("failed to seed accounts", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: store.Accounts,
		Hasher:      hasher,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.NewErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(store.Postgres, store.Redis),
		Auth:           handlers.NewAuthHandler(authService),
		Debug:          handlers.NewDebugHandler(accountService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		Metrics:        metrics,
		DebugConfig:    cfg.Debug,
	})
	if cfg.Debug.Enabled && !cfg.Debug.RequireAdmin {
		logger.Warn("unauthenticated debug account listing is enabled", zap.String("path", "/api/debug/users"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Store.Driver))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

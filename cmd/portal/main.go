package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/withalice/portal/internal/admin"
	"github.com/withalice/portal/internal/app"
	"github.com/withalice/portal/internal/authz"
	"github.com/withalice/portal/internal/content"
	"github.com/withalice/portal/internal/identity"
	"github.com/withalice/portal/internal/nav"
	"github.com/withalice/portal/internal/observability"
	"github.com/withalice/portal/internal/platform/cache"
	"github.com/withalice/portal/internal/platform/db"
	"github.com/withalice/portal/internal/shared"
	"github.com/withalice/portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "portal_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	ledger := authz.NewLedger()
	contentRepo := content.Repository(content.NewSeededRegistry())

	var grantSink admin.GrantSink
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		grantStore := authz.NewGrantStore(pool)
		persisted, err := grantStore.All(ctx)
		if err != nil {
			logger.Error("restore grants", slog.Any("error", err))
			os.Exit(1)
		}
		ledger.Restore(persisted)

		contentRepo = content.NewSQLRepository(pool)

		jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, logger)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		grantSink = jobClient
	}

	directory, err := identity.NewDirectory(cfg.DevPassword)
	if err != nil {
		logger.Error("init directory", slog.Any("error", err))
		os.Exit(1)
	}

	resolver := identity.NewResolver(identity.SessionStoreSource{}, logger)
	metrics := observability.NewMetrics()

	guard := authz.Middleware{
		Principals: resolver,
		Ledger:     ledger,
		Logger:     logger,
		Metrics:    metrics,
	}

	identityHandler := identity.NewHandler(logger, directory, resolver, sessionManager, csrfManager, cfg.DevLogin, cfg.Impersonation)
	authzHandler := authz.NewHandler(logger, ledger, resolver, metrics)
	contentHandler := content.NewHandler(logger, content.NewService(contentRepo), resolver, metrics)
	navHandler := nav.NewHandler(resolver)
	adminHandler := admin.NewHandler(logger, ledger, directory, guard, grantSink)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		IdentityHandler: identityHandler,
		AuthzHandler:    authzHandler,
		ContentHandler:  contentHandler,
		NavHandler:      navHandler,
		AdminHandler:    adminHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

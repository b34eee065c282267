package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/survey-service/internal/cache"
	"github.com/SAP-F-2025/survey-service/internal/config"
	"github.com/SAP-F-2025/survey-service/internal/handlers"
	"github.com/SAP-F-2025/survey-service/internal/middleware"
	"github.com/SAP-F-2025/survey-service/internal/repositories"
	"github.com/SAP-F-2025/survey-service/internal/repositories/memory"
	"github.com/SAP-F-2025/survey-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-service/internal/services"
	"github.com/SAP-F-2025/survey-service/internal/utils"
	"github.com/SAP-F-2025/survey-service/internal/validator"
	"github.com/SAP-F-2025/survey-service/pkg"
)

type storage interface {
	repositories.Repository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Environment, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.LogError(err, "Server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	slogger := utils.ToSlogLogger(logger)

	store, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer publisher.Close()

	serviceManager := services.NewServiceManager(
		store,
		openCache(cfg, logger),
		publisher,
		slogger,
		validator.New(),
		services.ManagerConfig{
			ResponseTTL:       cfg.ResponseTTL,
			AnalyticsWorkers:  cfg.AnalyticsWorkers,
			AnalyticsCacheTTL: cfg.AnalyticsCacheTTL,
		},
	)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestID(), utils.LoggerMiddleware(logger), utils.ContextLogger(logger))

	handlers.NewHandlerManager(
		serviceManager,
		store,
		middleware.NewCasdoorParser(cfg.Casdoor),
		middleware.AuthOptions{AllowDevHeader: cfg.IsDevelopment()},
		logger,
	).SetupRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go serviceManager.Expiry().Run(ctx, cfg.ExpirySweepInterval)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func openStorage(cfg *config.Config, logger utils.Logger) (storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := pkg.Migrate(db); err != nil {
		return nil, err
	}
	return postgres.NewRepository(db), nil
}

// openCache prefers redis and falls back to a per-process cache.
func openCache(cfg *config.Config, logger utils.Logger) cache.CacheService {
	client, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory cache", "error", err)
		return cache.NewMemoryCache()
	}
	return cache.NewRedisCache(client, utils.ToSlogLogger(logger))
}

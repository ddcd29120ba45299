package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sparksai/insight-server/internal/adapter/repository"
	"github.com/sparksai/insight-server/internal/config"
	"github.com/sparksai/insight-server/internal/infrastructure/cache"
	"github.com/sparksai/insight-server/internal/infrastructure/database"
	httpServer "github.com/sparksai/insight-server/internal/infrastructure/http"
	"github.com/sparksai/insight-server/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis-backed cache
	redisClient, err := cache.NewRedisClient(&cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	store := cache.NewRedisStore(redisClient, logger)

	// Initialize repositories
	hierarchyRepo := repository.NewHierarchyRepository(db, logger)
	definitionRepo := repository.NewReportDefinitionRepository(db, logger)
	sprintRepo := repository.NewSprintMetricsRepository(db, logger)
	piRepo := repository.NewPIRepository(db, logger)
	issueRepo := repository.NewIssueRepository(db, logger)

	// Initialize usecases
	ttls := cfg.Cache.WithDefaults()
	hierarchy := usecase.NewHierarchyUsecase(hierarchyRepo, store, ttls.HierarchyTTL, logger)

	registry := usecase.NewReportRegistry()
	resolvers := usecase.NewReportResolvers(sprintRepo, piRepo, issueRepo, hierarchy, usecase.SystemClock(), logger)
	resolvers.RegisterAll(registry)

	reports := usecase.NewReportService(definitionRepo, registry, store, store, ttls, logger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize server
	srv := httpServer.NewServer(cfg, logger, &httpServer.Dependencies{
		Hierarchy: hierarchy,
		Reports:   reports,
		Sprints:   sprintRepo,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("Server shut down successfully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coinplan/coinplan-backend/internal/adapter/httpapi"
	"github.com/coinplan/coinplan-backend/internal/adapter/ratesource"
	"github.com/coinplan/coinplan-backend/internal/adapter/repository/memory"
	"github.com/coinplan/coinplan-backend/internal/adapter/repository/postgres"
	"github.com/coinplan/coinplan-backend/internal/config"
	"github.com/coinplan/coinplan-backend/internal/domain"
	"github.com/coinplan/coinplan-backend/internal/logging"
	"github.com/coinplan/coinplan-backend/internal/usecase/contribution"
	"github.com/coinplan/coinplan-backend/internal/usecase/execution"
	"github.com/coinplan/coinplan-backend/internal/usecase/progress"
	"github.com/coinplan/coinplan-backend/internal/usecase/snapshotter"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 1. Initialize Repositories
	var (
		assetRepo        domain.AssetRepository
		goalRepo         domain.GoalRepository
		ledgerRepo       domain.LedgerRepository
		planRepo         domain.PlanRepository
		recordRepo       domain.ExecutionRecordRepository
		contributionRepo domain.ContributionRepository
	)

	switch cfg.DataBackend {
	case "postgres":
		db, err := postgres.NewDB(cfg.DBConnString())
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		assetRepo = postgres.NewAssetRepository(db)
		goalRepo = postgres.NewGoalRepository(db)
		ledgerRepo = postgres.NewLedgerRepository(db)
		planRepo = postgres.NewPlanRepository(db)
		recordRepo = postgres.NewExecutionRecordRepository(db)
		contributionRepo = postgres.NewContributionRepository(db)
	default:
		store := memory.NewStore()
		assetRepo = store.Assets()
		goalRepo = store.Goals()
		ledgerRepo = store
		planRepo = store.Plans()
		recordRepo = store.Records()
		contributionRepo = store.Contributions()
	}

	// 2. Initialize Rate Source
	var rates domain.RateSource
	if cfg.RateSourceURL != "" {
		client := ratesource.NewClient(cfg.RateSourceURL, cfg.RateTimeout)
		breaker := ratesource.NewBreaker(client, ratesource.DefaultBreakerConfig(), logger)
		rates = ratesource.NewCached(breaker, cfg.RateCacheTTL)
	} else {
		logger.Warn("no rate source configured, cross-currency amounts degrade to 1:1")
		rates = ratesource.NewStatic()
	}

	// 3. Initialize Services (Use Cases)
	executionService := execution.NewService(recordRepo, planRepo, ledgerRepo, cfg.UndoGraceWindow, logger)
	progressCalculator := progress.NewCalculator(ledgerRepo, assetRepo, goalRepo, rates, logger)
	contributionService := contribution.NewService(assetRepo, goalRepo, ledgerRepo, contributionRepo)
	snapshotterService := snapshotter.NewService(assetRepo, ledgerRepo)

	// 4. Start HTTP Server
	server := httpapi.NewServer(
		":"+cfg.Port,
		executionService,
		progressCalculator,
		contributionService,
		snapshotterService,
		logger,
	)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("backend", cfg.DataBackend))
		if err := server.Start(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *httpapi.Server, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

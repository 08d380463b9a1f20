// Package main is the entry point for the portfolio dashboard backend.
// It validates and executes trades, reconciles positions against the
// immutable transaction ledger, and serves the portfolio read API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/clientdata"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/clients/quotes"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/config"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/events"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/holdings"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/ledger"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/trading"
	tradinghandlers "github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/trading/handlers"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/modules/universe"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/reliability"
	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/server"
	"github.com/Mohitkundu360/jp-morgan-dashboard/pkg/logger"
)

// Nightly maintenance schedules (seconds-resolution cron specs)
const (
	maintenanceSchedule  = "0 0 3 * * *"  // 03:00 daily
	ledgerAuditSchedule  = "0 15 3 * * *" // 03:15 daily, after maintenance
	cacheCleanupSchedule = "0 0 4 * * *"  // 04:00 daily
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting dashboard backend")

	// Single portfolio database: holdings and the transaction ledger live
	// together so a trade commits both in one transaction.
	portfolioDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "portfolio.db"),
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	if err := portfolioDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate portfolio database")
	}

	// Repositories
	holdingsRepo := holdings.NewRepository(portfolioDB.Conn(), log)
	ledgerRepo := ledger.NewRepository(portfolioDB.Conn(), log)
	securityRepo := universe.NewSecurityRepository(portfolioDB.Conn(), log)
	cacheRepo := clientdata.NewRepository(portfolioDB.Conn())

	if err := universe.SeedDefaults(securityRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed securities")
	}

	// Quote service client with persistent caching
	quotesClient := quotes.NewClient(cfg.QuoteServiceURL, cacheRepo, log)
	quotesClient.SetCacheTTL(time.Duration(cfg.QuoteCacheTTL) * time.Second)

	// Event bus for the live trade stream
	eventManager := events.NewManager(log)
	defer eventManager.Close()

	// Trade processor
	processor := trading.NewProcessor(
		portfolioDB.Conn(),
		holdingsRepo,
		ledgerRepo,
		quotesClient,
		eventManager,
		cfg.MaxTradeShares,
		log,
	)

	tradingHandlers := tradinghandlers.NewTradingHandlers(processor, holdingsRepo, ledgerRepo, securityRepo, log)

	srv := server.New(server.Config{
		Log:             log,
		PortfolioDB:     portfolioDB,
		Config:          cfg,
		Port:            cfg.Port,
		DevMode:         cfg.DevMode,
		EventManager:    eventManager,
		TradingHandlers: tradingHandlers,
	})

	// Scheduled maintenance: integrity checks, WAL checkpoints, ledger
	// audit, cache cleanup, and optional cloud backups.
	sched := reliability.NewScheduler(log)

	maintenanceJob := reliability.NewDailyMaintenanceJob(portfolioDB, cfg.DataDir, log)
	if err := sched.Register(maintenanceSchedule, maintenanceJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule maintenance")
	}

	auditJob := reliability.NewLedgerAuditJob(holdingsRepo, ledgerRepo, log)
	if err := sched.Register(ledgerAuditSchedule, auditJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule ledger audit")
	}

	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	if err := sched.Register(cacheCleanupSchedule, cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			Bucket:          cfg.Backup.Bucket,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup storage client")
		}

		backupService := reliability.NewBackupService(portfolioDB, s3Client, cfg.DataDir, log)
		backupJob := reliability.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
		if err := sched.Register(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule backups")
		}
	} else {
		log.Warn().Msg("Cloud backups disabled - no bucket configured")
	}

	sched.Start()
	defer sched.Stop()

	// Start server in a goroutine so shutdown signals can be handled here
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

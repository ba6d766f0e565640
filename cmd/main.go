package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/kickplan/tournament-mirror/config"
	"github.com/kickplan/tournament-mirror/db"
	"github.com/kickplan/tournament-mirror/handlers"
	"github.com/kickplan/tournament-mirror/kickertool"
	"github.com/kickplan/tournament-mirror/live"
	"github.com/kickplan/tournament-mirror/repositories"
	api "github.com/kickplan/tournament-mirror/routes"
	"github.com/kickplan/tournament-mirror/services"
	"github.com/kickplan/tournament-mirror/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := db.Migrate(migrateCtx, dbConn); err != nil {
		logger.Error("schema migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema up to date")

	apiClient, err := kickertool.NewHTTPClient(kickertool.ClientConfig{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.APITimeout,
		MaxRetries: uint64(cfg.APIMaxRetries),
	}, logger)
	if err != nil {
		logger.Error("failed to initialize platform client", slog.Any("error", err))
		os.Exit(1)
	}

	var auditRecorder services.AuditRecorder
	if cfg.AuditEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize audit store", slog.Any("error", err))
			os.Exit(1)
		}
		auditRecorder = services.NewAuditRecorder(uploader, logger)
		logger.Info("audit store initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("audit store not configured, diagnostic snapshots disabled")
	}

	wsHub := live.NewHub(logger)
	go wsHub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	courtRepo := repositories.NewPostgresCourtRepository(dbConn)
	disciplineRepo := repositories.NewPostgresDisciplineRepository(dbConn)
	stageRepo := repositories.NewPostgresStageRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	graphStore := repositories.NewPostgresGraphStore(
		dbConn,
		tournamentRepo,
		courtRepo,
		disciplineRepo,
		stageRepo,
		groupRepo,
		entryRepo,
		standingRepo,
		matchRepo,
	)
	ledger := repositories.NewPostgresWebhookLedger(dbConn)

	syncService := services.NewSyncService(apiClient, graphStore, logger)
	webhookService := services.NewWebhookService(syncService, ledger, wsHub, auditRecorder, logger)

	webhookHandler := handlers.NewWebhookHandler(webhookService)
	syncHandler := handlers.NewSyncHandler(syncService, ledger, logger)
	liveHandler := handlers.NewLiveHandler(wsHub, logger)
	healthHandler := handlers.NewHealthHandler(dbConn)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, webhookHandler, syncHandler, liveHandler, healthHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
